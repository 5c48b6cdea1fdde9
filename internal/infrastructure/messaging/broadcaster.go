// Package messaging provides the concrete implementation of the SSE broadcaster.
package messaging

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
)

// SSEBroadcaster manages tenant-scoped, session-specific SSE connections.
type SSEBroadcaster struct {
	tenantSessions map[string]map[string][]chan string // tenantId -> sessionId -> []channels
	mu             sync.Mutex
	logger         *logging.ChanneledLogger
}

var (
	globalBroadcaster *SSEBroadcaster
	once              sync.Once
)

// NewSSEBroadcaster creates the singleton SSEBroadcaster instance.
func NewSSEBroadcaster(logger *logging.ChanneledLogger) *SSEBroadcaster {
	once.Do(func() {
		globalBroadcaster = &SSEBroadcaster{
			tenantSessions: make(map[string]map[string][]chan string),
			logger:         logger,
		}
	})
	return globalBroadcaster
}

// AddClientWithSession registers a new SSE client with tenant and session isolation.
func (b *SSEBroadcaster) AddClientWithSession(tenantID, sessionID string) chan string {
	ch := make(chan string, 10)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tenantSessions[tenantID] == nil {
		b.tenantSessions[tenantID] = make(map[string][]chan string)
	}

	if b.tenantSessions[tenantID][sessionID] == nil {
		b.tenantSessions[tenantID][sessionID] = make([]chan string, 0)
	}
	b.tenantSessions[tenantID][sessionID] = append(b.tenantSessions[tenantID][sessionID], ch)

	b.logger.SSE().Debug("SSE client registered", "tenantId", tenantID, "sessionId", sessionID)
	return ch
}

// RemoveClientWithSession removes an SSE client with tenant and session context.
func (b *SSEBroadcaster) RemoveClientWithSession(ch chan string, tenantID, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tenantSessions, exists := b.tenantSessions[tenantID]; exists {
		if sessionClients, exists := tenantSessions[sessionID]; exists {
			newClients := make([]chan string, 0, len(sessionClients)-1)
			for _, client := range sessionClients {
				if client != ch {
					newClients = append(newClients, client)
				}
			}
			tenantSessions[sessionID] = newClients

			if len(tenantSessions[sessionID]) == 0 {
				delete(tenantSessions, sessionID)
			}
		}

		if len(tenantSessions) == 0 {
			delete(b.tenantSessions, tenantID)
		}
	}
	b.logger.SSE().Debug("SSE client unregistered", "tenantId", tenantID, "sessionId", sessionID)
}

// GetSessionConnectionCount returns the connection count for a specific tenant session.
func (b *SSEBroadcaster) GetSessionConnectionCount(tenantID, sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tenantSessions, exists := b.tenantSessions[tenantID]; exists {
		if sessionClients, exists := tenantSessions[sessionID]; exists {
			return len(sessionClients)
		}
	}
	return 0
}

// BroadcastEnvelopeUpdated notifies a session's clients that a fresh
// envelope decision exists for it.
func (b *SSEBroadcaster) BroadcastEnvelopeUpdated(tenantID, sessionID string, envelope *monetization.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.SSE().Error("Panic recovered in BroadcastEnvelopeUpdated", "error", r, "tenantId", tenantID, "sessionId", sessionID)
		}
	}()

	payload, err := json.Marshal(envelope)
	if err != nil {
		b.logger.SSE().Error("Failed to marshal envelope for broadcast", "error", err.Error(), "tenantId", tenantID, "sessionId", sessionID)
		return
	}
	message := fmt.Sprintf("event: envelope_updated\ndata: %s\n\n", payload)

	b.sendToSession(tenantID, sessionID, message)
}

// BroadcastEnvelopeInvalidated notifies a session's clients that the cached
// envelope was discarded and the next read will recompute.
func (b *SSEBroadcaster) BroadcastEnvelopeInvalidated(tenantID, sessionID, cause string) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.SSE().Error("Panic recovered in BroadcastEnvelopeInvalidated", "error", r, "tenantId", tenantID, "sessionId", sessionID)
		}
	}()

	message := fmt.Sprintf("event: envelope_invalidated\ndata: {\"sessionId\":%q,\"cause\":%q}\n\n", sessionID, cause)

	b.sendToSession(tenantID, sessionID, message)
}

func (b *SSEBroadcaster) sendToSession(tenantID, sessionID, message string) {
	b.logger.SSE().Debug("Broadcasting to session", "message", strings.ReplaceAll(message, "\n", "\\n"), "tenantId", tenantID, "sessionId", sessionID)

	b.mu.Lock()
	defer b.mu.Unlock()

	if tenantSessions, exists := b.tenantSessions[tenantID]; exists {
		if sessionClients, exists := tenantSessions[sessionID]; exists {
			for _, ch := range sessionClients {
				select {
				case ch <- message:
				default:
					b.logger.SSE().Warn("SSE channel full, message dropped", "tenantId", tenantID, "sessionId", sessionID)
				}
			}
		}
	}
}

// HasListeningSessions checks if any sessions for a tenant hold open streams.
func (b *SSEBroadcaster) HasListeningSessions(tenantID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tenantSessions, exists := b.tenantSessions[tenantID]; exists {
		return len(tenantSessions) > 0
	}
	return false
}
