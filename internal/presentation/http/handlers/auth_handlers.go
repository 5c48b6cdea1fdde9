package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/application/services"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/orbgate-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// AuthHandlers contains all authentication-related HTTP handlers
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostLogin handles POST /api/v1/auth/login - admin/editor authentication
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("post_login_request", tenantCtx.TenantID)
	defer marker.Complete()
	h.logger.Auth().Debug("Received login request", "method", c.Request.Method, "path", c.Request.URL.Path, "tenantId", tenantCtx.TenantID)

	var loginReq struct {
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&loginReq); err != nil {
		h.logger.Auth().Error("Login request JSON binding failed", "tenantId", tenantCtx.TenantID, "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result := h.authService.AuthenticateAdmin(loginReq.Password, tenantCtx)

	if !result.Success {
		h.logger.Auth().Warn("Login attempt failed", "tenantId", tenantCtx.TenantID, "error", result.Error, "duration", time.Since(start))
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": result.Error})
		return
	}

	// Set role-specific HTTP-only cookie
	cookieName := "admin_auth"
	if result.Role == "editor" {
		cookieName = "editor_auth"
	}

	c.SetCookie(
		cookieName,
		result.Token,
		86400,
		"/",
		"",
		false,
		true,
	)

	marker.SetSuccess(true)
	h.logger.Auth().Info("Login successful", "tenantId", tenantCtx.TenantID, "role", result.Role, "duration", time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"role":    result.Role,
		"token":   result.Token,
	})
}

// PostLogout handles POST /api/v1/auth/logout - clears auth cookies
func (h *AuthHandlers) PostLogout(c *gin.Context) {
	c.SetCookie("admin_auth", "", -1, "/", "", false, true)
	c.SetCookie("editor_auth", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetAuthStatus handles GET /api/v1/auth/status - reports token validity
func (h *AuthHandlers) GetAuthStatus(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("get_auth_status_request", tenantCtx.TenantID)
	defer marker.Complete()

	var tokenInfo *services.TokenInfo
	var authenticated bool
	var authMethod string

	if token := bearerToken(c); token != "" {
		tokenInfo = h.authService.GetTokenInfo(token, tenantCtx)
		if tokenInfo.Valid {
			authenticated = true
			authMethod = "bearer"
		}
	}

	if !authenticated {
		for _, cookieName := range []string{"admin_auth", "editor_auth"} {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie == "" {
				continue
			}
			tokenInfo = h.authService.GetTokenInfo(cookie, tenantCtx)
			if tokenInfo.Valid {
				authenticated = true
				authMethod = "cookie"
				break
			}
		}
	}

	response := gin.H{
		"authenticated": authenticated,
		"method":        authMethod,
	}

	if authenticated && tokenInfo != nil {
		response["role"] = tokenInfo.Role
		response["tenantId"] = tokenInfo.TenantID
		response["expiresAt"] = tokenInfo.ExpiresAt
	}

	h.logger.Auth().Info("Auth status check completed", "tenantId", tenantCtx.TenantID, "authenticated", authenticated, "method", authMethod, "duration", time.Since(start))
	marker.SetSuccess(true)

	c.JSON(http.StatusOK, response)
}

// AuthMiddleware requires an admin or editor token. Sandbox mode waves
// every request through for local development.
func (h *AuthHandlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.SandboxAuthEnabled {
			c.Next()
			return
		}

		tenantCtx, exists := middleware.GetTenantContext(c)
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
			c.Abort()
			return
		}

		authenticated := false

		if token := bearerToken(c); token != "" {
			authenticated = h.authService.ValidateAdminOrEditorToken(token, tenantCtx)
		} else {
			if adminCookie, err := c.Cookie("admin_auth"); err == nil {
				authenticated = h.authService.ValidateAdminOrEditorToken(adminCookie, tenantCtx)
			}
			if !authenticated {
				if editorCookie, err := c.Cookie("editor_auth"); err == nil {
					authenticated = h.authService.ValidateAdminOrEditorToken(editorCookie, tenantCtx)
				}
			}
		}

		if !authenticated {
			h.logger.Auth().Warn("Unauthorized access attempt", "tenantId", tenantCtx.TenantID, "path", c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// AdminOnlyMiddleware requires an admin token.
func (h *AuthHandlers) AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.SandboxAuthEnabled {
			c.Next()
			return
		}

		tenantCtx, exists := middleware.GetTenantContext(c)
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
			c.Abort()
			return
		}

		authenticated := false

		if token := bearerToken(c); token != "" {
			authenticated = h.authService.ValidateAdminToken(token, tenantCtx)
		} else if adminCookie, err := c.Cookie("admin_auth"); err == nil {
			authenticated = h.authService.ValidateAdminToken(adminCookie, tenantCtx)
		}

		if !authenticated {
			h.logger.Auth().Warn("Unauthorized admin access attempt", "tenantId", tenantCtx.TenantID, "path", c.Request.URL.Path)
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
