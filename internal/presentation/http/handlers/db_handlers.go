package handlers

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/application/services"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// DBHandlers contains database status HTTP handlers
type DBHandlers struct {
	dbService   *services.DBService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewDBHandlers creates db handlers with injected dependencies
func NewDBHandlers(dbService *services.DBService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *DBHandlers {
	return &DBHandlers{
		dbService:   dbService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetDatabaseStatus handles GET /api/v1/db/status
func (h *DBHandlers) GetDatabaseStatus(c *gin.Context) {
	// Default tenant awaiting setup has no database yet
	if setupNeeded, exists := c.Get("setupNeeded"); exists && setupNeeded.(bool) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "setup_needed",
			"tenantId":    c.GetString("tenantId"),
			"timestamp":   time.Now(),
			"description": "tenant requires activation before database checks",
		})
		return
	}

	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("get_db_status_request", tenantCtx.TenantID)
	defer marker.Complete()

	status := h.dbService.CheckStatus(tenantCtx)
	status["connectionStats"] = h.dbService.GetConnectionStats(tenantCtx)

	h.logger.Database().Debug("Database status check completed",
		"tenantId", tenantCtx.TenantID,
		"status", status["status"],
		"duration", time.Since(start))
	marker.SetSuccess(true)

	c.JSON(http.StatusOK, status)
}
