package handlers

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/orbgate-go/pkg/config"
	"github.com/gin-gonic/gin"
)

var activeSSEConnections int64

// SSEHandlers manages envelope update streams
type SSEHandlers struct {
	broadcaster *messaging.SSEBroadcaster
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewSSEHandlers creates SSE handlers with injected dependencies
func NewSSEHandlers(broadcaster *messaging.SSEBroadcaster, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SSEHandlers {
	return &SSEHandlers{
		broadcaster: broadcaster,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetStream handles GET /api/v1/monetization/stream - pushes envelope_updated
// and envelope_invalidated events for one session.
func (h *SSEHandlers) GetStream(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("get_sse_request", tenantCtx.TenantID)
	defer marker.Complete()
	h.logger.SSE().Debug("Received SSE connection request", "method", c.Request.Method, "path", c.Request.URL.Path, "tenantId", tenantCtx.TenantID)

	sessionID := sessionIDFromRequest(c)
	if sessionID == "" {
		h.logger.SSE().Error("SSE connection request missing session ID", "tenantId", tenantCtx.TenantID)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID required for SSE connection"})
		return
	}

	currentConnections := atomic.LoadInt64(&activeSSEConnections)
	if currentConnections >= int64(config.MaxSessionsPerClient) {
		h.logger.SSE().Warn("SSE connection limit reached",
			"tenantId", tenantCtx.TenantID,
			"sessionId", sessionID,
			"currentConnections", currentConnections)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "SSE connection limit reached. Please try again later.",
		})
		return
	}

	if h.broadcaster.GetSessionConnectionCount(tenantCtx.TenantID, sessionID) >= config.MaxSessionConnections {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session connection limit reached"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Cache-Control")

	ch := h.broadcaster.AddClientWithSession(tenantCtx.TenantID, sessionID)
	tenantCtx.CacheManager.TouchSession(tenantCtx.TenantID, sessionID)

	atomic.AddInt64(&activeSSEConnections, 1)
	defer func() {
		atomic.AddInt64(&activeSSEConnections, -1)
		h.broadcaster.RemoveClientWithSession(ch, tenantCtx.TenantID, sessionID)
	}()

	fmt.Fprintf(c.Writer, "data: {\"type\":\"connected\",\"sessionId\":\"%s\",\"timestamp\":\"%s\"}\n\n", sessionID, time.Now().Format(time.RFC3339))
	c.Writer.Flush()

	clientCtx := c.Request.Context()

	h.logger.SSE().Info("SSE connection established",
		"tenantId", tenantCtx.TenantID,
		"sessionId", sessionID,
		"totalConnections", atomic.LoadInt64(&activeSSEConnections),
		"setupDuration", time.Since(start))
	marker.SetSuccess(true)

	heartbeat := time.NewTicker(time.Duration(config.SSEHeartbeatIntervalSeconds) * time.Second)
	defer heartbeat.Stop()

	connectionStart := time.Now()
	for {
		select {
		case <-clientCtx.Done():
			h.logger.SSE().Info("SSE client disconnected",
				"tenantId", tenantCtx.TenantID,
				"sessionId", sessionID,
				"connectionDuration", time.Since(connectionStart))
			return

		case message, ok := <-ch:
			if !ok {
				h.logger.SSE().Info("SSE connection channel closed",
					"tenantId", tenantCtx.TenantID,
					"sessionId", sessionID,
					"connectionDuration", time.Since(connectionStart))
				return
			}
			if _, err := c.Writer.WriteString(message); err != nil {
				h.logger.SSE().Error("SSE write failed",
					"tenantId", tenantCtx.TenantID,
					"sessionId", sessionID,
					"error", err.Error())
				return
			}
			c.Writer.Flush()

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(c.Writer, ": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
			// A connected listener counts as session activity; keep the
			// cleanup worker from evicting its policy state mid-stream.
			tenantCtx.CacheManager.TouchSession(tenantCtx.TenantID, sessionID)
		}
	}
}
