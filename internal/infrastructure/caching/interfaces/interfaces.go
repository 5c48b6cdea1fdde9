// Package interfaces defines cache contracts for policy state
package interfaces

import (
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/types"
)

// PolicyCache manages per-session monetization policy state
type PolicyCache interface {
	// GetSessionState returns the cached state for a session, if present
	GetSessionState(tenantID, sessionID string) (*types.SessionPolicyState, bool)

	// GetOrCreateSessionState returns the session state, creating it on first use
	GetOrCreateSessionState(tenantID, sessionID string) *types.SessionPolicyState

	// GetEnvelope returns the cached envelope for a session. Expired
	// envelopes are returned too; callers decide whether staleness matters.
	GetEnvelope(tenantID, sessionID string) (*monetization.Envelope, bool)

	// SetEnvelope stores an envelope if generation still matches the
	// session's current generation. Returns false when the write was stale.
	SetEnvelope(tenantID, sessionID string, envelope *monetization.Envelope, generation uint64) bool

	// InvalidateEnvelope clears the cached envelope and bumps the generation
	InvalidateEnvelope(tenantID, sessionID string)

	// TouchSession records activity on a session without other mutation
	TouchSession(tenantID, sessionID string)

	// GetAllSessionIDs returns every session ID currently cached for a tenant
	GetAllSessionIDs(tenantID string) []string

	// RemoveSession evicts a session's policy state
	RemoveSession(tenantID, sessionID string)
}

// TenantLifecycle manages per-tenant cache initialization and eviction
type TenantLifecycle interface {
	InitializeTenant(tenantID string)
	RemoveTenant(tenantID string)
	GetTenantIDs() []string
	GetTenantLastAccessed(tenantID string) (time.Time, bool)
}

// Cache is the full cache contract used by services and cleanup
type Cache interface {
	PolicyCache
	TenantLifecycle
}
