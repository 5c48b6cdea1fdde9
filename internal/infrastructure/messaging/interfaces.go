// Package messaging defines interfaces for real-time communication.
package messaging

import "github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"

// Broadcaster defines the interface for managing SSE client connections and broadcasting messages.
type Broadcaster interface {
	AddClientWithSession(tenantID, sessionID string) chan string
	RemoveClientWithSession(ch chan string, tenantID, sessionID string)
	GetSessionConnectionCount(tenantID, sessionID string) int
	BroadcastEnvelopeUpdated(tenantID, sessionID string, envelope *monetization.Envelope)
	BroadcastEnvelopeInvalidated(tenantID, sessionID, cause string)
	HasListeningSessions(tenantID string) bool
}
