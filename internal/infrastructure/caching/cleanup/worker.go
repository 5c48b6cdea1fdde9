// Package cleanup provides background worker
package cleanup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/tenant"
)

// Worker handles background cache cleanup operations
type Worker struct {
	cache    interfaces.Cache
	detector *tenant.Detector
	config   *Config
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(cache interfaces.Cache, detector *tenant.Detector, config *Config) *Worker {
	return &Worker{
		cache:    cache,
		detector: detector,
		config:   config,
	}
}

// Start begins the cleanup worker routine, using the configured interval
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	log.Printf("Cache cleanup worker started (interval: %v, verbose: %v)",
		w.config.CleanupInterval, w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			log.Println("Cache cleanup worker stopping...")
			return
		case <-ticker.C:
			w.performCleanup(ctx)
		}
	}
}

// performCleanup executes cleanup for all active tenants
func (w *Worker) performCleanup(ctx context.Context) {
	start := time.Now()
	reporter := NewReporter(w.cache)

	tenants, err := w.getActiveTenants()
	if err != nil {
		reporter.LogError("Cache cleanup failed to get active tenants", err)
		return
	}

	if w.config.VerboseReporting {
		reporter.LogStage("PERIODIC CACHE CLEANUP")

		for _, tenantID := range tenants {
			fmt.Print(reporter.GenerateTenantReport(tenantID))
		}
	}

	var totalCleaned int
	for _, tenantID := range tenants {
		select {
		case <-ctx.Done():
			return
		default:
			cleaned := w.cleanupTenant(tenantID)
			totalCleaned += cleaned
		}
	}

	totalCleaned += w.evictIdleTenants()

	duration := time.Since(start)
	if totalCleaned > 0 {
		reporter.LogSuccess("Cache cleanup finished: %d items cleaned from %d tenants in %v",
			totalCleaned, len(tenants), duration)
	} else if w.config.VerboseReporting {
		reporter.LogInfo("Cache cleanup completed - no expired items found (%v)", duration)
	}
}

// cleanupTenant performs TTL-based cleanup for a single tenant
func (w *Worker) cleanupTenant(tenantID string) int {
	var totalCleaned int
	now := time.Now().UTC()

	mgr, ok := w.cache.(*manager.Manager)
	if !ok {
		// Generic fallback: drop sessions idle past the session TTL
		for _, sessionID := range w.cache.GetAllSessionIDs(tenantID) {
			state, found := w.cache.GetSessionState(tenantID, sessionID)
			if found && w.evictIfIdle(w.cache, tenantID, sessionID, state, now) {
				totalCleaned++
			}
		}
		return totalCleaned
	}

	for _, sessionID := range mgr.GetAllSessionIDs(tenantID) {
		state, found := mgr.GetSessionState(tenantID, sessionID)
		if !found {
			continue
		}

		idle := now.Sub(state.LastActivity)

		// Sessions idle past the session TTL are evicted entirely.
		// The durable signal and attempt logs stay in the database.
		if idle > w.config.SessionTTL {
			if w.evictIfIdle(mgr, tenantID, sessionID, state, now) {
				totalCleaned++
			}
			continue
		}

		// Idle sessions keep their record but shed the cached envelope
		// once it has been unused past the policy state TTL.
		if idle > w.config.PolicyStateTTL && state.Envelope != nil {
			state.Mu.Lock()
			if state.Envelope != nil {
				state.Envelope = nil
				totalCleaned++
			}
			state.Mu.Unlock()
		}
	}

	return totalCleaned
}

// evictIfIdle removes a session only when no operation is mid-flight on
// it. An in-flight computation holds the session mutex and would write
// back against a recreated state with a fresh generation counter, so a
// held mutex means skip and retry on the next sweep. LastActivity is
// re-checked under the lock in case the session was touched between the
// scan and the eviction.
func (w *Worker) evictIfIdle(cache interfaces.Cache, tenantID, sessionID string, state *types.SessionPolicyState, now time.Time) bool {
	if !state.Mu.TryLock() {
		return false
	}
	defer state.Mu.Unlock()

	if now.Sub(state.LastActivity) <= w.config.SessionTTL {
		return false
	}

	cache.RemoveSession(tenantID, sessionID)
	return true
}

// evictIdleTenants removes cache structures for tenants with no recent access
func (w *Worker) evictIdleTenants() int {
	var evicted int
	for _, tenantID := range w.cache.GetTenantIDs() {
		lastAccessed, ok := w.cache.GetTenantLastAccessed(tenantID)
		if !ok {
			continue
		}
		if time.Since(lastAccessed) > w.config.TenantTimeout {
			w.cache.RemoveTenant(tenantID)
			evicted++
		}
	}
	return evicted
}

// getActiveTenants loads the tenant registry and returns active tenant IDs
func (w *Worker) getActiveTenants() ([]string, error) {
	registry, err := tenant.LoadTenantRegistry()
	if err != nil {
		return nil, err
	}

	activeTenants := make([]string, 0)
	for tenantID, tenantInfo := range registry.Tenants {
		if tenantInfo.Status == "active" {
			activeTenants = append(activeTenants, tenantID)
		}
	}

	return activeTenants, nil
}
