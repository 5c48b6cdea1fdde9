// Package manager provides the unified cache manager facade
package manager

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
)

// Manager coordinates all cache stores and tracks tenant access times
type Manager struct {
	policyStore *stores.PolicyStore

	lastAccessed   map[string]time.Time
	lastAccessedMu sync.RWMutex

	logger *logging.ChanneledLogger
}

// Compile-time contract check
var _ interfaces.Cache = (*Manager)(nil)

// NewManager creates a cache manager with all stores initialized
func NewManager(logger *logging.ChanneledLogger) *Manager {
	if logger != nil {
		logger.Cache().Info("Initializing cache manager")
	}
	return &Manager{
		policyStore:  stores.NewPolicyStore(logger),
		lastAccessed: make(map[string]time.Time),
		logger:       logger,
	}
}

// InitializeTenant creates cache structures for a tenant across all stores
func (m *Manager) InitializeTenant(tenantID string) {
	m.policyStore.InitializeTenant(tenantID)
	m.updateTenantAccessTime(tenantID)
}

// RemoveTenant evicts a tenant from all stores
func (m *Manager) RemoveTenant(tenantID string) {
	m.policyStore.RemoveTenant(tenantID)

	m.lastAccessedMu.Lock()
	delete(m.lastAccessed, tenantID)
	m.lastAccessedMu.Unlock()
}

// GetTenantIDs returns all tenant IDs with initialized caches
func (m *Manager) GetTenantIDs() []string {
	return m.policyStore.GetTenantIDs()
}

// GetTenantLastAccessed returns when a tenant's cache was last touched
func (m *Manager) GetTenantLastAccessed(tenantID string) (time.Time, bool) {
	m.lastAccessedMu.RLock()
	defer m.lastAccessedMu.RUnlock()
	t, ok := m.lastAccessed[tenantID]
	return t, ok
}

func (m *Manager) updateTenantAccessTime(tenantID string) {
	m.lastAccessedMu.Lock()
	m.lastAccessed[tenantID] = time.Now().UTC()
	m.lastAccessedMu.Unlock()
}

// GetSessionState returns the cached policy state for a session
func (m *Manager) GetSessionState(tenantID, sessionID string) (*types.SessionPolicyState, bool) {
	m.updateTenantAccessTime(tenantID)
	return m.policyStore.GetSessionState(tenantID, sessionID)
}

// GetOrCreateSessionState returns the session state, creating it on first use
func (m *Manager) GetOrCreateSessionState(tenantID, sessionID string) *types.SessionPolicyState {
	m.updateTenantAccessTime(tenantID)
	return m.policyStore.GetOrCreateSessionState(tenantID, sessionID)
}

// GetEnvelope returns the cached envelope for a session
func (m *Manager) GetEnvelope(tenantID, sessionID string) (*monetization.Envelope, bool) {
	m.updateTenantAccessTime(tenantID)
	return m.policyStore.GetEnvelope(tenantID, sessionID)
}

// SetEnvelope stores an envelope if the generation still matches
func (m *Manager) SetEnvelope(tenantID, sessionID string, envelope *monetization.Envelope, generation uint64) bool {
	m.updateTenantAccessTime(tenantID)
	return m.policyStore.SetEnvelope(tenantID, sessionID, envelope, generation)
}

// InvalidateEnvelope clears the cached envelope and bumps the generation
func (m *Manager) InvalidateEnvelope(tenantID, sessionID string) {
	m.updateTenantAccessTime(tenantID)
	m.policyStore.InvalidateEnvelope(tenantID, sessionID)
}

// TouchSession records activity on a session
func (m *Manager) TouchSession(tenantID, sessionID string) {
	m.updateTenantAccessTime(tenantID)
	m.policyStore.TouchSession(tenantID, sessionID)
}

// GetAllSessionIDs returns every session ID cached for a tenant
func (m *Manager) GetAllSessionIDs(tenantID string) []string {
	return m.policyStore.GetAllSessionIDs(tenantID)
}

// RemoveSession evicts a session's policy state
func (m *Manager) RemoveSession(tenantID, sessionID string) {
	m.policyStore.RemoveSession(tenantID, sessionID)
}
