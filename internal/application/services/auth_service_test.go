package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
)

func TestAuthenticateAdmin(t *testing.T) {
	tenantCtx := newTestTenantContext(t)
	tenantCtx.Config.JWTSecret = "test-secret"

	adminHash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	editorHash, err := bcrypt.GenerateFromPassword([]byte("editor-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	tenantCtx.Config.AdminPassword = string(adminHash)
	tenantCtx.Config.EditorPassword = string(editorHash)

	svc := NewAuthService(tenantCtx.Logger, performance.NewTracker(nil))

	t.Run("admin password yields an admin token", func(t *testing.T) {
		result := svc.AuthenticateAdmin("admin-pass", tenantCtx)
		require.True(t, result.Success)
		assert.Equal(t, "admin", result.Role)
		assert.NotEmpty(t, result.Token)
		assert.True(t, svc.ValidateAdminToken(result.Token, tenantCtx))
	})

	t.Run("editor password yields an editor token", func(t *testing.T) {
		result := svc.AuthenticateAdmin("editor-pass", tenantCtx)
		require.True(t, result.Success)
		assert.Equal(t, "editor", result.Role)
		assert.False(t, svc.ValidateAdminToken(result.Token, tenantCtx))
		assert.True(t, svc.ValidateAdminOrEditorToken(result.Token, tenantCtx))
	})

	t.Run("wrong password fails", func(t *testing.T) {
		result := svc.AuthenticateAdmin("nope", tenantCtx)
		assert.False(t, result.Success)
		assert.Empty(t, result.Token)
	})

	t.Run("plaintext fallback still authenticates", func(t *testing.T) {
		plain := newTestTenantContext(t)
		plain.Config.JWTSecret = "test-secret"
		plain.Config.AdminPassword = "letmein"

		result := svc.AuthenticateAdmin("letmein", plain)
		require.True(t, result.Success)
		assert.Equal(t, "admin", result.Role)
	})
}

func TestTokenValidation(t *testing.T) {
	tenantCtx := newTestTenantContext(t)
	tenantCtx.Config.JWTSecret = "test-secret"
	svc := NewAuthService(tenantCtx.Logger, performance.NewTracker(nil))

	adminClaims := jwt.MapClaims{
		"role":     "admin",
		"tenantId": "default",
		"type":     "admin_auth",
	}

	t.Run("empty and garbage tokens fail", func(t *testing.T) {
		assert.False(t, svc.ValidateAdminToken("", tenantCtx))
		assert.False(t, svc.ValidateAdminToken("not-a-jwt", tenantCtx))
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		token, err := svc.GenerateJWT(adminClaims, "other-secret")
		require.NoError(t, err)
		assert.False(t, svc.ValidateAdminToken(token, tenantCtx))
	})

	t.Run("wrong tenant fails", func(t *testing.T) {
		token, err := svc.GenerateJWT(jwt.MapClaims{
			"role":     "admin",
			"tenantId": "someone-else",
			"type":     "admin_auth",
		}, "test-secret")
		require.NoError(t, err)
		assert.False(t, svc.ValidateAdminToken(token, tenantCtx))
	})

	t.Run("wrong token type fails", func(t *testing.T) {
		token, err := svc.GenerateJWT(jwt.MapClaims{
			"role":     "admin",
			"tenantId": "default",
			"type":     "refresh",
		}, "test-secret")
		require.NoError(t, err)
		assert.False(t, svc.ValidateAdminToken(token, tenantCtx))
	})

	t.Run("expired token fails", func(t *testing.T) {
		token, err := svc.GenerateJWT(jwt.MapClaims{
			"role":     "admin",
			"tenantId": "default",
			"type":     "admin_auth",
			"exp":      time.Now().Add(-time.Hour).Unix(),
			"iat":      time.Now().Add(-2 * time.Hour).Unix(),
		}, "test-secret")
		require.NoError(t, err)
		assert.False(t, svc.ValidateAdminToken(token, tenantCtx))
	})

	t.Run("token info decodes claims", func(t *testing.T) {
		token, err := svc.GenerateJWT(adminClaims, "test-secret")
		require.NoError(t, err)

		info := svc.GetTokenInfo(token, tenantCtx)
		require.True(t, info.Valid)
		assert.Equal(t, "admin", info.Role)
		assert.Equal(t, "default", info.TenantID)
		assert.True(t, info.ExpiresAt.After(time.Now()))
	})

	t.Run("secure tokens are unique", func(t *testing.T) {
		first, err := svc.GenerateSecureToken(32)
		require.NoError(t, err)
		second, err := svc.GenerateSecureToken(32)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("brokered tokens carry their id through validation", func(t *testing.T) {
		jti, err := svc.GenerateSecureToken(16)
		require.NoError(t, err)

		token, err := svc.GenerateJWT(jwt.MapClaims{
			"role":     "admin",
			"tenantId": "default",
			"type":     "admin_auth",
			"jti":      jti,
		}, "test-secret")
		require.NoError(t, err)

		require.True(t, svc.ValidateAdminToken(token, tenantCtx))
		info := svc.GetTokenInfo(token, tenantCtx)
		require.True(t, info.Valid)
		assert.Equal(t, jti, info.Claims["jti"])
	})
}
