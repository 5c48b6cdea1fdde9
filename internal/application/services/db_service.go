package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/tenant"
)

// DBService handles database connectivity and health checking
type DBService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewDBService creates a new database service
func NewDBService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *DBService {
	return &DBService{
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// CheckStatus performs basic database health check
func (d *DBService) CheckStatus(tenantCtx *tenant.Context) map[string]any {
	result := map[string]any{
		"tenantId":  tenantCtx.TenantID,
		"status":    "checking",
		"timestamp": time.Now(),
	}

	if tenantCtx.Database == nil || tenantCtx.Database.Conn == nil {
		result["status"] = "error"
		result["error"] = "no database connection"
		return result
	}

	var testResult int
	err := tenantCtx.Database.Conn.QueryRow("SELECT 1").Scan(&testResult)
	if err != nil {
		result["status"] = "error"
		result["error"] = fmt.Sprintf("connection test failed: %v", err)
		return result
	}

	if testResult != 1 {
		result["status"] = "error"
		result["error"] = "unexpected test result"
		return result
	}

	requiredTables := []string{"signals", "attempts"}

	tableStatus := make(map[string]bool)
	allTablesExist := true

	for _, table := range requiredTables {
		exists := d.tableExists(tenantCtx, table)
		tableStatus[table] = exists
		if !exists {
			allTablesExist = false
		}
	}

	result["status"] = "healthy"
	result["allTablesExist"] = allTablesExist
	result["tableStatus"] = tableStatus

	if !allTablesExist {
		result["status"] = "degraded"
		result["warning"] = "some tables missing"
	}

	return result
}

// GetConnectionStats returns database connection statistics
func (d *DBService) GetConnectionStats(tenantCtx *tenant.Context) map[string]any {
	if tenantCtx.Database == nil || tenantCtx.Database.Conn == nil {
		return map[string]any{"available": false}
	}

	stats := tenantCtx.Database.Conn.Stats()
	return map[string]any{
		"available": true,
		"openConns": stats.OpenConnections,
		"inUse":     stats.InUse,
		"idle":      stats.Idle,
	}
}

// tableExists checks if a table exists
func (d *DBService) tableExists(tenantCtx *tenant.Context, tableName string) bool {
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
	var count int
	err := tenantCtx.Database.Conn.QueryRow(query, tableName).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}
