package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/tenant"
)

// EnvelopeService combines readiness, sensitivity, and attempt state
// into the time-bounded authorization envelope, cached per session.
type EnvelopeService struct {
	config      monetization.PolicyConfig
	readiness   *ReadinessService
	attempts    *AttemptService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewEnvelopeService creates a new envelope computer singleton
func NewEnvelopeService(config monetization.PolicyConfig, readiness *ReadinessService, attempts *AttemptService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *EnvelopeService {
	return &EnvelopeService{
		config:      config,
		readiness:   readiness,
		attempts:    attempts,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// ComputeOrGet returns the session's envelope, recomputing only when the
// cached one is missing, expired, incoherent, or force is set. Repeated
// calls inside the validity window return the identical envelope with no
// recomputation. Safe for concurrent callers on the same session: the
// whole read-modify-write runs under the session's mutex, and the
// write-back is additionally guarded by the generation counter.
func (s *EnvelopeService) ComputeOrGet(tenantCtx *tenant.Context, sessionID, productType string, force bool, broadcaster messaging.Broadcaster) (*monetization.Envelope, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("envelope_compute", tenantCtx.TenantID)
	defer marker.Complete()

	if sessionID == "" {
		marker.SetSuccess(false)
		return nil, monetization.ErrSessionIDRequired
	}

	var requestedType monetization.AttemptType
	if productType != "" {
		parsed, err := monetization.ParseAttemptType(productType)
		if err != nil {
			marker.SetError(err)
			return nil, err
		}
		requestedType = parsed
	}

	now := time.Now().UTC()
	state := tenantCtx.CacheManager.GetOrCreateSessionState(tenantCtx.TenantID, sessionID)

	state.Mu.Lock()
	defer state.Mu.Unlock()

	if cached := state.Envelope; cached != nil && !force {
		if !cached.Valid() {
			// Incoherent timestamps must never be trusted; fall through
			// to a forced recomputation.
			s.logger.LogError(logging.ChannelPolicy, "envelope_cache_read",
				fmt.Errorf("%w: envelope valid_until precedes computed_at", monetization.ErrInvariantViolation),
				tenantCtx.TenantID, map[string]any{"sessionId": sessionID})
		} else if !cached.Expired(now) {
			marker.AddCacheHit()
			s.logger.Policy().Debug("Envelope cache hit",
				"tenantId", tenantCtx.TenantID,
				"sessionId", sessionID,
				"reason", cached.Reason,
				"duration", time.Since(start))
			return cached, nil
		}
	}
	marker.AddCacheMiss()

	generation := state.Generation

	signals, err := tenantCtx.SignalRepo().ListBySession(sessionID)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("%w: %v", monetization.ErrUpstreamUnavailable, err)
	}

	readiness := s.readiness.Score(signals, now)

	attemptState, err := s.attempts.DeriveState(tenantCtx, sessionID, now)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}

	envelope := s.decide(sessionID, readiness, attemptState, requestedType, now)

	if !tenantCtx.CacheManager.SetEnvelope(tenantCtx.TenantID, sessionID, envelope, generation) {
		// The generation moved while we held the session lock. That can
		// only mean a locking bug elsewhere; refuse the stale write.
		s.logger.LogError(logging.ChannelPolicy, "envelope_write_back",
			monetization.ErrStaleComputation, tenantCtx.TenantID, map[string]any{"sessionId": sessionID})
		marker.SetSuccess(false)
		return nil, monetization.ErrStaleComputation
	}

	s.logger.LogEnvelopeDecision(tenantCtx.TenantID, sessionID, envelope.AllowPaid, string(envelope.Reason), time.Since(start))

	if broadcaster != nil {
		go broadcaster.BroadcastEnvelopeUpdated(tenantCtx.TenantID, sessionID, envelope)
	}

	return envelope, nil
}

// decide evaluates the decision policy in precedence order, first match
// wins: sensitivity, cooldown, attempt ceiling, low readiness, ready.
func (s *EnvelopeService) decide(sessionID string, readiness monetization.Readiness, attemptState *monetization.AttemptState, requestedType monetization.AttemptType, now time.Time) *monetization.Envelope {
	envelope := &monetization.Envelope{
		SessionID:  sessionID,
		ComputedAt: now,
		ValidUntil: now.Add(s.config.EnvelopeValidity),
	}

	switch {
	case readiness.SensitivityBlocked:
		envelope.Reason = monetization.ReasonSensitivityBlocked
	case attemptState.CooldownActive:
		envelope.Reason = monetization.ReasonCooldownActive
	case attemptState.CeilingReached:
		envelope.Reason = monetization.ReasonAttemptLimit
	case readiness.Score < s.config.ReadinessThreshold:
		envelope.Reason = monetization.ReasonReadinessLow
	default:
		envelope.AllowPaid = true
		envelope.Reason = monetization.ReasonReady
		if requestedType != "" {
			// The requested type survived every block above, so it is
			// echoed back as the sole allowed type.
			envelope.AllowedTypes = []monetization.AttemptType{requestedType}
		} else {
			envelope.AllowedTypes = monetization.AllAttemptTypes()
		}
	}

	return envelope
}
