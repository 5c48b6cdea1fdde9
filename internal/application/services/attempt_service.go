package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/tenant"
)

// AttemptService records monetization attempt outcomes and derives the
// cooldown and ceiling state the envelope computer consults.
type AttemptService struct {
	config      monetization.PolicyConfig
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAttemptService creates a new attempt tracker singleton
func NewAttemptService(config monetization.PolicyConfig, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AttemptService {
	return &AttemptService{
		config:      config,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// AttemptResult is the outcome of recording an attempt.
type AttemptResult struct {
	Attempt           *monetization.Attempt `json:"attempt"`
	CooldownTriggered bool                  `json:"cooldownTriggered"`
}

// RecordAttempt validates, appends, and invalidates in one critical
// section per session. A rejection restarts the cooldown window from
// this attempt's timestamp.
func (s *AttemptService) RecordAttempt(tenantCtx *tenant.Context, sessionID, rawType, rawOutcome, userResponse string, broadcaster messaging.Broadcaster) (*AttemptResult, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("record_attempt", tenantCtx.TenantID)
	defer marker.Complete()

	if sessionID == "" {
		marker.SetSuccess(false)
		return nil, monetization.ErrSessionIDRequired
	}

	attemptType, err := monetization.ParseAttemptType(rawType)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	outcome, err := monetization.ParseOutcome(rawOutcome)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}

	attempt := &monetization.Attempt{
		ID:           security.GenerateULID(),
		SessionID:    sessionID,
		Type:         attemptType,
		Outcome:      outcome,
		UserResponse: userResponse,
		RecordedAt:   time.Now().UTC(),
	}

	state := tenantCtx.CacheManager.GetOrCreateSessionState(tenantCtx.TenantID, sessionID)
	state.Mu.Lock()

	if err := tenantCtx.AttemptRepo().Append(attempt); err != nil {
		state.Mu.Unlock()
		marker.SetError(err)
		return nil, fmt.Errorf("%w: %v", monetization.ErrUpstreamUnavailable, err)
	}
	tenantCtx.CacheManager.InvalidateEnvelope(tenantCtx.TenantID, sessionID)

	state.Mu.Unlock()

	cooldownTriggered := outcome == monetization.OutcomeRejected

	if broadcaster != nil {
		broadcaster.BroadcastEnvelopeInvalidated(tenantCtx.TenantID, sessionID, "attempt_recorded")
	}

	s.logger.Signal().Info("Attempt recorded",
		"tenantId", tenantCtx.TenantID,
		"sessionId", sessionID,
		"attemptId", attempt.ID,
		"type", attempt.Type,
		"outcome", attempt.Outcome,
		"cooldownTriggered", cooldownTriggered,
		"duration", time.Since(start))

	return &AttemptResult{Attempt: attempt, CooldownTriggered: cooldownTriggered}, nil
}

// DeriveState computes the cooldown and ceiling view of a session's
// attempt ledger. Cooldown is never persisted; it is derived each time
// from the most recent rejection.
func (s *AttemptService) DeriveState(tenantCtx *tenant.Context, sessionID string, now time.Time) (*monetization.AttemptState, error) {
	repo := tenantCtx.AttemptRepo()

	nonRejected, err := repo.CountNonRejected(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", monetization.ErrUpstreamUnavailable, err)
	}

	lastRejection, err := repo.LastRejection(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", monetization.ErrUpstreamUnavailable, err)
	}

	attemptState := &monetization.AttemptState{
		NonRejectedCount: nonRejected,
		CeilingReached:   nonRejected >= s.config.MaxAttemptsPerSession,
	}

	if lastRejection != nil {
		cooldownUntil := lastRejection.RecordedAt.Add(s.config.RejectionCooldown)
		if now.Before(cooldownUntil) {
			attemptState.CooldownActive = true
			attemptState.CooldownUntil = cooldownUntil
		}
	}

	return attemptState, nil
}
