package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/application/services"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// PolicyHandlers contains the HTTP surface of the policy engine
type PolicyHandlers struct {
	classifierService *services.ClassifierService
	signalService     *services.SignalService
	attemptService    *services.AttemptService
	envelopeService   *services.EnvelopeService
	messageService    *services.MessageService
	contextService    *services.ContextService
	broadcaster       messaging.Broadcaster
	logger            *logging.ChanneledLogger
	perfTracker       *performance.Tracker
}

// NewPolicyHandlers creates policy handlers with injected dependencies
func NewPolicyHandlers(
	classifierService *services.ClassifierService,
	signalService *services.SignalService,
	attemptService *services.AttemptService,
	envelopeService *services.EnvelopeService,
	messageService *services.MessageService,
	contextService *services.ContextService,
	broadcaster messaging.Broadcaster,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *PolicyHandlers {
	return &PolicyHandlers{
		classifierService: classifierService,
		signalService:     signalService,
		attemptService:    attemptService,
		envelopeService:   envelopeService,
		messageService:    messageService,
		contextService:    contextService,
		broadcaster:       broadcaster,
		logger:            logger,
		perfTracker:       perfTracker,
	}
}

// PostDetect handles POST /api/v1/monetization/detect - classifies a message
// without recording anything.
func (h *PolicyHandlers) PostDetect(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	classification, err := h.classifierService.Detect(tenantCtx.TenantID, req.Message)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, classification)
}

// PostMessage handles POST /api/v1/monetization/message - the full pipeline:
// classify, record signals, recompute the envelope.
func (h *PolicyHandlers) PostMessage(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	start := time.Now()
	sessionID := sessionIDFromRequest(c)

	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	result, err := h.messageService.Process(tenantCtx, sessionID, req.Message, h.broadcaster)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.logger.Policy().Debug("Message pipeline completed",
		"tenantId", tenantCtx.TenantID,
		"sessionId", sessionID,
		"duration", time.Since(start))

	c.JSON(http.StatusOK, result)
}

// PostComputeContext handles POST /api/v1/monetization/compute-context.
// It runs the message pipeline and returns the session's rendered
// monetization context in one round trip, so a conversation engine can
// classify, recompute, and fetch injectable context with a single call.
func (h *PolicyHandlers) PostComputeContext(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	start := time.Now()
	sessionID := sessionIDFromRequest(c)

	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	result, err := h.messageService.Process(tenantCtx, sessionID, req.Message, h.broadcaster)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	rendered, err := h.contextService.Render(tenantCtx, sessionID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.logger.Policy().Debug("Context computation completed",
		"tenantId", tenantCtx.TenantID,
		"sessionId", sessionID,
		"signalsDetected", len(result.Signals),
		"duration", time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"signals":     result.Signals,
		"envelope":    result.Envelope,
		"has_context": rendered.HasContext,
		"context":     rendered.Context,
		"orb_context": rendered.OrbContext,
	})
}

// PostSignal handles POST /api/v1/monetization/signals - appends one signal
// to the session's log.
func (h *PolicyHandlers) PostSignal(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	sessionID := sessionIDFromRequest(c)

	var req struct {
		SignalType string `json:"signalType"`
		Indicator  string `json:"indicator"`
		Context    string `json:"context"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	signal, err := h.signalService.RecordSignal(tenantCtx, sessionID, req.SignalType, req.Indicator, req.Context, h.broadcaster)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, signal)
}

// PostAttempt handles POST /api/v1/monetization/attempts - records one
// monetization attempt outcome.
func (h *PolicyHandlers) PostAttempt(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	sessionID := sessionIDFromRequest(c)

	var req struct {
		AttemptType  string `json:"attemptType"`
		Outcome      string `json:"outcome"`
		UserResponse string `json:"userResponse"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	result, err := h.attemptService.RecordAttempt(tenantCtx, sessionID, req.AttemptType, req.Outcome, req.UserResponse, h.broadcaster)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetEnvelope handles GET /api/v1/monetization/envelope - returns the
// session's authorization envelope, computing one when needed.
func (h *PolicyHandlers) GetEnvelope(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	sessionID := sessionIDFromRequest(c)
	productType := c.Query("productType")
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	envelope, err := h.envelopeService.ComputeOrGet(tenantCtx, sessionID, productType, force, h.broadcaster)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope)
}

// GetHistory handles GET /api/v1/monetization/history - returns the session's
// signal and attempt logs.
func (h *PolicyHandlers) GetHistory(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	sessionID := sessionIDFromRequest(c)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	signals, attempts, err := h.signalService.GetHistory(tenantCtx, sessionID, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": sessionID,
		"signals":   signals,
		"attempts":  attempts,
	})
}

// GetContext handles GET /api/v1/monetization/context - renders the session's
// monetization context summary.
func (h *PolicyHandlers) GetContext(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	result, err := h.contextService.Render(tenantCtx, sessionIDFromRequest(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetOrbContext handles GET /api/v1/monetization/orb-context - returns only
// the compact agent-facing context line.
func (h *PolicyHandlers) GetOrbContext(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	result, err := h.contextService.GetOrbContext(tenantCtx, sessionIDFromRequest(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
