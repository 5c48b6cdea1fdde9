// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/AtRiskMedia/orbgate-go/internal/application/container"
	"github.com/AtRiskMedia/orbgate-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/orbgate-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Serve static SysOp dashboard files from the /sysop URL.
	r.Static("/sysop", "web/sysop")
	r.StaticFile("/favicon.ico", "web/sysop/favicon.ico")

	// Initialize handlers
	policyHandlers := handlers.NewPolicyHandlers(
		container.ClassifierService,
		container.SignalService,
		container.AttemptService,
		container.EnvelopeService,
		container.MessageService,
		container.ContextService,
		container.Broadcaster,
		container.Logger,
		container.PerfTracker,
	)
	sseHandlers := handlers.NewSSEHandlers(container.Broadcaster, container.Logger, container.PerfTracker)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.PerfTracker)
	dbHandlers := handlers.NewDBHandlers(container.DBService, container.Logger, container.PerfTracker)
	sysopHandlers := handlers.NewSysOpHandlers(container)

	// SysOp API endpoints live at /api/sysop to avoid conflict with static file serving
	sysopAPI := r.Group("/api/sysop")
	{
		sysopAPI.GET("/auth", sysopHandlers.AuthCheck)
		sysopAPI.POST("/login", sysopHandlers.Login)

		// SysOp Authenticated endpoints
		sysopAPI.Use(sysopHandlers.SysOpAuthMiddleware())
		{
			sysopAPI.GET("/tenants", sysopHandlers.GetTenants)
			sysopAPI.GET("/activity", sysopHandlers.GetActivityMetrics)
			sysopAPI.GET("/overview", sysopHandlers.GetOverview)
			sysopAPI.POST("/tenant-token", sysopHandlers.GetTenantToken)
			sysopAPI.GET("/sessions/stream", sysopHandlers.StreamSessions)
			sysopAPI.GET("/logs/levels", sysopHandlers.GetLogLevels)
			sysopAPI.POST("/logs/levels", sysopHandlers.SetLogLevel)
		}
	}

	// Log streaming is a special case and can remain at top level
	r.GET("/sysop-logs/stream", sysopHandlers.StreamLogs)

	// API routes with tenant middleware
	api := r.Group("/api/v1")
	api.Use(middleware.TenantMiddleware(container.TenantManager, container.PerfTracker))
	api.Use(middleware.DomainValidationMiddleware(container.TenantManager))
	{
		// Authentication routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandlers.PostLogin)
			auth.POST("/logout", authHandlers.PostLogout)
			auth.GET("/status", authHandlers.GetAuthStatus)
		}

		// Database status exposes schema state; admins only
		api.GET("/db/status", authHandlers.AdminOnlyMiddleware(), dbHandlers.GetDatabaseStatus)

		// Policy engine endpoints
		policy := api.Group("/monetization")
		policy.Use(authHandlers.AuthMiddleware())
		{
			policy.POST("/detect", policyHandlers.PostDetect)
			policy.POST("/message", policyHandlers.PostMessage)
			policy.POST("/compute-context", policyHandlers.PostComputeContext)
			policy.POST("/signals", policyHandlers.PostSignal)
			policy.POST("/attempts", policyHandlers.PostAttempt)
			policy.GET("/envelope", policyHandlers.GetEnvelope)
			policy.GET("/history", policyHandlers.GetHistory)
			policy.GET("/context", policyHandlers.GetContext)
			policy.GET("/orb-context", policyHandlers.GetOrbContext)
			policy.GET("/stream", sseHandlers.GetStream)
		}
	}

	return r
}
