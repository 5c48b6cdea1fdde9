package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/orbgate-go/internal/application/services"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/tenant"
)

func newAdminTestRouter(t *testing.T) (*gin.Engine, *services.AuthService, *tenant.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		LogDirectory:    t.TempDir(),
	})
	require.NoError(t, err)
	perfTracker := performance.NewTracker(nil)
	authService := services.NewAuthService(logger, perfTracker)

	tenantCtx := &tenant.Context{
		TenantID: "default",
		Config: &tenant.Config{
			TenantID:  "default",
			JWTSecret: "test-secret",
		},
		Status: "active",
		Logger: logger,
	}

	authHandlers := NewAuthHandlers(authService, logger, perfTracker)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("tenant", tenantCtx)
		c.Set("tenantId", "default")
		c.Next()
	})
	r.GET("/admin-only", authHandlers.AdminOnlyMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r, authService, tenantCtx
}

func adminTestToken(t *testing.T, authService *services.AuthService, tenantCtx *tenant.Context, role string) string {
	t.Helper()
	token, err := authService.GenerateJWT(jwt.MapClaims{
		"role":     role,
		"tenantId": tenantCtx.TenantID,
		"type":     "admin_auth",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}, tenantCtx.Config.JWTSecret)
	require.NoError(t, err)
	return token
}

func TestAdminOnlyMiddleware(t *testing.T) {
	r, authService, tenantCtx := newAdminTestRouter(t)

	do := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("no token is forbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, do("").Code)
	})

	t.Run("editor token is forbidden", func(t *testing.T) {
		token := adminTestToken(t, authService, tenantCtx, "editor")
		assert.Equal(t, http.StatusForbidden, do(token).Code)
	})

	t.Run("admin token passes", func(t *testing.T) {
		token := adminTestToken(t, authService, tenantCtx, "admin")
		assert.Equal(t, http.StatusOK, do(token).Code)
	})

	t.Run("token signed with another secret is forbidden", func(t *testing.T) {
		token, err := authService.GenerateJWT(jwt.MapClaims{
			"role":     "admin",
			"tenantId": tenantCtx.TenantID,
			"type":     "admin_auth",
		}, "some-other-secret")
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, do(token).Code)
	})
}
