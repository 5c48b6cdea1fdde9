// Package types defines cache structures for session policy state
package types

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
)

// SessionPolicyState holds the cached policy artifacts for one session.
// Mu serializes envelope computation for the session; Generation is
// bumped on every invalidation so stale write-backs can be discarded.
type SessionPolicyState struct {
	SessionID    string
	Envelope     *monetization.Envelope
	Generation   uint64
	CreatedAt    time.Time
	LastActivity time.Time

	Mu sync.Mutex
}

// TenantPolicyCache holds per-session policy state for a tenant
type TenantPolicyCache struct {
	SessionStates map[string]*SessionPolicyState
	LastLoaded    time.Time

	Mu sync.RWMutex
}

// NewTenantPolicyCache creates an empty policy cache for a tenant
func NewTenantPolicyCache() *TenantPolicyCache {
	return &TenantPolicyCache{
		SessionStates: make(map[string]*SessionPolicyState),
		LastLoaded:    time.Now().UTC(),
	}
}
