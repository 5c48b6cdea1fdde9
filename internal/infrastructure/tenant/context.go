// Package tenant provides tenant context management for multi-tenant support.
package tenant

import (
	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/persistence/database"
	persistenceMonetization "github.com/AtRiskMedia/orbgate-go/internal/infrastructure/persistence/monetization"
)

// Context holds tenant-specific request context
type Context struct {
	TenantID     string
	Config       *Config
	Database     *Database
	Status       string
	CacheManager *manager.Manager
	Logger       *logging.ChanneledLogger
}

// Close cleans up the tenant context
func (ctx *Context) Close() error {
	if ctx.Database != nil {
		return ctx.Database.Close()
	}
	return nil
}

// GetTenantID returns the tenant ID for this context
func (ctx *Context) GetTenantID() string {
	return ctx.TenantID
}

// GetConfig returns the tenant configuration
func (ctx *Context) GetConfig() *Config {
	return ctx.Config
}

// GetDatabase returns the tenant database connection
func (ctx *Context) GetDatabase() *Database {
	return ctx.Database
}

// GetStatus returns the tenant status
func (ctx *Context) GetStatus() string {
	return ctx.Status
}

// GetCacheManager returns the cache manager
func (ctx *Context) GetCacheManager() *manager.Manager {
	return ctx.CacheManager
}

// IsActive returns true if the tenant is active
func (ctx *Context) IsActive() bool {
	return ctx.Status == "active"
}

// IsReserved returns true if the tenant is reserved (awaiting activation)
func (ctx *Context) IsReserved() bool {
	return ctx.Status == "reserved"
}

// GetDatabaseInfo returns database connection information for logging
func (ctx *Context) GetDatabaseInfo() string {
	if ctx.Database != nil {
		return ctx.Database.GetConnectionInfo()
	}
	return "no database connection"
}

// EnsureSchema creates the tenant's tables and indexes if missing
func (ctx *Context) EnsureSchema() error {
	db := &database.DB{DB: ctx.Database.Conn}
	return persistenceMonetization.EnsureSchema(db, ctx.Logger)
}

// =============================================================================
// Repository Factory Methods
// =============================================================================

// SignalRepo returns a signal repository instance.
// It returns the interface type from the domain layer.
func (ctx *Context) SignalRepo() monetization.SignalRepository {
	db := &database.DB{DB: ctx.Database.Conn}
	return persistenceMonetization.NewSQLSignalRepository(db, ctx.TenantID, ctx.Logger)
}

// AttemptRepo returns an attempt repository instance.
// It returns the interface type from the domain layer.
func (ctx *Context) AttemptRepo() monetization.AttemptRepository {
	db := &database.DB{DB: ctx.Database.Conn}
	return persistenceMonetization.NewSQLAttemptRepository(db, ctx.TenantID, ctx.Logger)
}
