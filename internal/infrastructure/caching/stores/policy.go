// Package stores provides concrete cache store implementations
package stores

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
)

// PolicyStore implements session policy state caching with tenant isolation.
// Callers serialize per-session mutation by holding SessionPolicyState.Mu
// around SetEnvelope, InvalidateEnvelope, and TouchSession.
type PolicyStore struct {
	tenantCaches map[string]*types.TenantPolicyCache
	mu           sync.RWMutex
	logger       *logging.ChanneledLogger
}

// NewPolicyStore creates a new policy cache store
func NewPolicyStore(logger *logging.ChanneledLogger) *PolicyStore {
	if logger != nil {
		logger.Cache().Info("Initializing policy cache store")
	}
	return &PolicyStore{
		tenantCaches: make(map[string]*types.TenantPolicyCache),
		logger:       logger,
	}
}

// InitializeTenant creates cache structures for a tenant
func (ps *PolicyStore) InitializeTenant(tenantID string) {
	start := time.Now()
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.logger != nil {
		ps.logger.Cache().Debug("Initializing tenant policy cache", "tenantId", tenantID)
	}

	if ps.tenantCaches[tenantID] == nil {
		ps.tenantCaches[tenantID] = types.NewTenantPolicyCache()

		if ps.logger != nil {
			ps.logger.Cache().Info("Tenant policy cache initialized", "tenantId", tenantID, "duration", time.Since(start))
		}
	}
}

// RemoveTenant evicts a tenant's entire policy cache
func (ps *PolicyStore) RemoveTenant(tenantID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.tenantCaches, tenantID)

	if ps.logger != nil {
		ps.logger.Cache().Info("Tenant policy cache removed", "tenantId", tenantID)
	}
}

// GetTenantIDs returns all tenant IDs with an initialized policy cache
func (ps *PolicyStore) GetTenantIDs() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	ids := make([]string, 0, len(ps.tenantCaches))
	for id := range ps.tenantCaches {
		ids = append(ids, id)
	}
	return ids
}

// GetTenantCache safely retrieves a tenant's policy cache
func (ps *PolicyStore) GetTenantCache(tenantID string) (*types.TenantPolicyCache, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	cache, exists := ps.tenantCaches[tenantID]
	return cache, exists
}

// GetSessionState returns the cached policy state for a session
func (ps *PolicyStore) GetSessionState(tenantID, sessionID string) (*types.SessionPolicyState, bool) {
	start := time.Now()
	cache, exists := ps.GetTenantCache(tenantID)
	if !exists {
		if ps.logger != nil {
			ps.logger.Cache().Debug("Cache operation", "operation", "get_session_state", "tenantId", tenantID, "sessionId", sessionID, "hit", false, "reason", "tenant_not_initialized", "duration", time.Since(start))
		}
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	state, found := cache.SessionStates[sessionID]
	if ps.logger != nil {
		ps.logger.Cache().Debug("Cache operation", "operation", "get_session_state", "tenantId", tenantID, "sessionId", sessionID, "hit", found, "duration", time.Since(start))
	}
	return state, found
}

// GetOrCreateSessionState returns the session state, creating it on first use.
// Sessions exist implicitly; first reference creates the record.
func (ps *PolicyStore) GetOrCreateSessionState(tenantID, sessionID string) *types.SessionPolicyState {
	start := time.Now()
	cache, exists := ps.GetTenantCache(tenantID)
	if !exists {
		ps.InitializeTenant(tenantID)
		cache, _ = ps.GetTenantCache(tenantID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	state, found := cache.SessionStates[sessionID]
	if !found {
		now := time.Now().UTC()
		state = &types.SessionPolicyState{
			SessionID:    sessionID,
			CreatedAt:    now,
			LastActivity: now,
		}
		cache.SessionStates[sessionID] = state
		cache.LastLoaded = now
	} else {
		state.LastActivity = time.Now().UTC()
	}

	if ps.logger != nil {
		ps.logger.Cache().Debug("Cache operation", "operation", "get_or_create_session_state", "tenantId", tenantID, "sessionId", sessionID, "created", !found, "duration", time.Since(start))
	}
	return state
}

// GetEnvelope returns the cached envelope for a session. Expired envelopes
// are returned too; the caller decides whether staleness matters.
func (ps *PolicyStore) GetEnvelope(tenantID, sessionID string) (*monetization.Envelope, bool) {
	start := time.Now()
	state, found := ps.GetSessionState(tenantID, sessionID)
	if !found || state.Envelope == nil {
		if ps.logger != nil {
			ps.logger.Cache().Debug("Cache operation", "operation", "get_envelope", "tenantId", tenantID, "sessionId", sessionID, "hit", false, "duration", time.Since(start))
		}
		return nil, false
	}

	if ps.logger != nil {
		ps.logger.Cache().Debug("Cache operation", "operation", "get_envelope", "tenantId", tenantID, "sessionId", sessionID, "hit", true, "reason", state.Envelope.Reason, "duration", time.Since(start))
	}
	return state.Envelope, true
}

// SetEnvelope stores a computed envelope if generation still matches the
// session's current generation. A mismatch means the session's inputs
// changed while the envelope was being computed; the write is discarded.
func (ps *PolicyStore) SetEnvelope(tenantID, sessionID string, envelope *monetization.Envelope, generation uint64) bool {
	start := time.Now()
	state := ps.GetOrCreateSessionState(tenantID, sessionID)

	if state.Generation != generation {
		if ps.logger != nil {
			ps.logger.Cache().Debug("Cache operation", "operation", "set_envelope", "tenantId", tenantID, "sessionId", sessionID, "written", false, "reason", "stale_generation", "duration", time.Since(start))
		}
		return false
	}

	state.Envelope = envelope
	state.LastActivity = time.Now().UTC()

	if ps.logger != nil {
		ps.logger.Cache().Debug("Cache operation", "operation", "set_envelope", "tenantId", tenantID, "sessionId", sessionID, "written", true, "allowPaid", envelope.AllowPaid, "reason", envelope.Reason, "duration", time.Since(start))
	}
	return true
}

// InvalidateEnvelope clears the cached envelope and bumps the generation
// so in-flight computations against the old inputs cannot write back
func (ps *PolicyStore) InvalidateEnvelope(tenantID, sessionID string) {
	start := time.Now()
	state := ps.GetOrCreateSessionState(tenantID, sessionID)

	state.Generation++
	state.Envelope = nil
	state.LastActivity = time.Now().UTC()

	if ps.logger != nil {
		ps.logger.Cache().Debug("Cache operation", "operation", "invalidate_envelope", "tenantId", tenantID, "sessionId", sessionID, "generation", state.Generation, "duration", time.Since(start))
	}
}

// TouchSession records activity on a session without other mutation
func (ps *PolicyStore) TouchSession(tenantID, sessionID string) {
	state, found := ps.GetSessionState(tenantID, sessionID)
	if !found {
		return
	}
	state.LastActivity = time.Now().UTC()
}

// GetAllSessionIDs returns every session ID cached for a tenant
func (ps *PolicyStore) GetAllSessionIDs(tenantID string) []string {
	cache, exists := ps.GetTenantCache(tenantID)
	if !exists {
		return nil
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	ids := make([]string, 0, len(cache.SessionStates))
	for id := range cache.SessionStates {
		ids = append(ids, id)
	}
	return ids
}

// RemoveSession evicts a session's policy state
func (ps *PolicyStore) RemoveSession(tenantID, sessionID string) {
	cache, exists := ps.GetTenantCache(tenantID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()
	delete(cache.SessionStates, sessionID)

	if ps.logger != nil {
		ps.logger.Cache().Debug("Cache operation", "operation", "remove_session", "tenantId", tenantID, "sessionId", sessionID)
	}
}
