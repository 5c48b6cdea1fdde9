package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/classifier"
	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/tenant"
)

// MessageService runs the full pipeline for an inbound chat message:
// classify, record the detected signals, and recompute the envelope,
// atomically. Either the signals and the fresh envelope both commit or
// neither does; a partial outcome is never observable.
type MessageService struct {
	config      monetization.PolicyConfig
	readiness   *ReadinessService
	attempts    *AttemptService
	envelopes   *EnvelopeService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewMessageService creates a new message pipeline singleton
func NewMessageService(config monetization.PolicyConfig, readiness *ReadinessService, attempts *AttemptService, envelopes *EnvelopeService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *MessageService {
	return &MessageService{
		config:      config,
		readiness:   readiness,
		attempts:    attempts,
		envelopes:   envelopes,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// MessageResult is the committed outcome of processing one message.
type MessageResult struct {
	Signals  []*monetization.Signal `json:"signals"`
	Envelope *monetization.Envelope `json:"envelope"`
}

// Process classifies the message, appends any detected signals, and
// recomputes the session's envelope. Classification runs outside the
// session's critical section; everything that reads or writes session
// state runs inside it. The envelope is computed over the combined
// signal log before the append commits, so a storage failure leaves
// both the log and the cache untouched.
func (s *MessageService) Process(tenantCtx *tenant.Context, sessionID, message string, broadcaster messaging.Broadcaster) (*MessageResult, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("message_process", tenantCtx.TenantID)
	defer marker.Complete()

	if sessionID == "" {
		marker.SetSuccess(false)
		return nil, monetization.ErrSessionIDRequired
	}
	if message == "" {
		marker.SetSuccess(false)
		return nil, monetization.ErrMessageBodyRequired
	}

	classification := classifier.Classify(message)

	now := time.Now().UTC()
	newSignals := make([]*monetization.Signal, 0, len(classification.All()))
	for _, detected := range classification.All() {
		newSignals = append(newSignals, &monetization.Signal{
			ID:         security.GenerateULID(),
			SessionID:  sessionID,
			Type:       detected.Type,
			Indicator:  detected.Indicator,
			Context:    detected.Context,
			RecordedAt: now,
		})
	}

	state := tenantCtx.CacheManager.GetOrCreateSessionState(tenantCtx.TenantID, sessionID)

	state.Mu.Lock()
	defer state.Mu.Unlock()

	existing, err := tenantCtx.SignalRepo().ListBySession(sessionID)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("%w: %v", monetization.ErrUpstreamUnavailable, err)
	}

	combined := append(existing, newSignals...)
	readiness := s.readiness.Score(combined, now)

	attemptState, err := s.attempts.DeriveState(tenantCtx, sessionID, now)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}

	envelope := s.envelopes.decide(sessionID, readiness, attemptState, "", now)

	if len(newSignals) > 0 {
		if err := tenantCtx.SignalRepo().AppendBatch(newSignals); err != nil {
			marker.SetError(err)
			return nil, fmt.Errorf("%w: %v", monetization.ErrUpstreamUnavailable, err)
		}
	}

	tenantCtx.CacheManager.InvalidateEnvelope(tenantCtx.TenantID, sessionID)
	if !tenantCtx.CacheManager.SetEnvelope(tenantCtx.TenantID, sessionID, envelope, state.Generation) {
		s.logger.LogError(logging.ChannelPolicy, "message_envelope_write_back",
			monetization.ErrStaleComputation, tenantCtx.TenantID, map[string]any{"sessionId": sessionID})
		marker.SetSuccess(false)
		return nil, monetization.ErrStaleComputation
	}

	s.logger.LogEnvelopeDecision(tenantCtx.TenantID, sessionID, envelope.AllowPaid, string(envelope.Reason), time.Since(start))
	s.logger.Signal().Info("Message processed",
		"tenantId", tenantCtx.TenantID,
		"sessionId", sessionID,
		"signalsDetected", len(newSignals),
		"allowPaid", envelope.AllowPaid,
		"duration", time.Since(start))

	if broadcaster != nil {
		go broadcaster.BroadcastEnvelopeUpdated(tenantCtx.TenantID, sessionID, envelope)
	}

	return &MessageResult{Signals: newSignals, Envelope: envelope}, nil
}
