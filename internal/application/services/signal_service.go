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

// SignalService records classified signals against a session's
// append-only log and keeps the cached envelope honest about them.
type SignalService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewSignalService creates a new signal service singleton
func NewSignalService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SignalService {
	return &SignalService{
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// RecordSignal validates, appends, and invalidates in one critical
// section per session. The signal is never silently ignored by a stale
// cached envelope: invalidation happens before the lock is released,
// and the SSE notification goes out after it.
func (s *SignalService) RecordSignal(tenantCtx *tenant.Context, sessionID, rawType, rawIndicator, context string, broadcaster messaging.Broadcaster) (*monetization.Signal, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("record_signal", tenantCtx.TenantID)
	defer marker.Complete()

	if sessionID == "" {
		marker.SetSuccess(false)
		return nil, monetization.ErrSessionIDRequired
	}

	signalType, err := monetization.ParseSignalType(rawType)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	indicator, err := monetization.ParseIndicator(rawIndicator)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}

	signal := &monetization.Signal{
		ID:         security.GenerateULID(),
		SessionID:  sessionID,
		Type:       signalType,
		Indicator:  indicator,
		Context:    context,
		RecordedAt: time.Now().UTC(),
	}

	state := tenantCtx.CacheManager.GetOrCreateSessionState(tenantCtx.TenantID, sessionID)
	state.Mu.Lock()

	if err := tenantCtx.SignalRepo().Append(signal); err != nil {
		state.Mu.Unlock()
		marker.SetError(err)
		return nil, fmt.Errorf("%w: %v", monetization.ErrUpstreamUnavailable, err)
	}
	tenantCtx.CacheManager.InvalidateEnvelope(tenantCtx.TenantID, sessionID)

	state.Mu.Unlock()

	if broadcaster != nil {
		broadcaster.BroadcastEnvelopeInvalidated(tenantCtx.TenantID, sessionID, "signal_recorded")
	}

	s.logger.Signal().Info("Signal recorded",
		"tenantId", tenantCtx.TenantID,
		"sessionId", sessionID,
		"signalId", signal.ID,
		"type", signal.Type,
		"indicator", signal.Indicator,
		"duration", time.Since(start))

	return signal, nil
}

// GetHistory returns a session's signals and attempts. A limit of zero
// returns the full logs in chronological order; a positive limit
// returns that many of the most recent entries, newest first.
func (s *SignalService) GetHistory(tenantCtx *tenant.Context, sessionID string, limit int) ([]*monetization.Signal, []*monetization.Attempt, error) {
	marker := s.perfTracker.StartOperation("history_query", tenantCtx.TenantID)
	defer marker.Complete()

	if sessionID == "" {
		marker.SetSuccess(false)
		return nil, nil, monetization.ErrSessionIDRequired
	}
	if limit < 0 {
		marker.SetSuccess(false)
		return nil, nil, monetization.ErrHistoryLimitNegative
	}

	var (
		signals  []*monetization.Signal
		attempts []*monetization.Attempt
		err      error
	)

	if limit == 0 {
		signals, err = tenantCtx.SignalRepo().ListBySession(sessionID)
	} else {
		signals, err = tenantCtx.SignalRepo().ListRecentBySession(sessionID, limit)
	}
	if err != nil {
		marker.SetError(err)
		return nil, nil, fmt.Errorf("%w: %v", monetization.ErrUpstreamUnavailable, err)
	}

	if limit == 0 {
		attempts, err = tenantCtx.AttemptRepo().ListBySession(sessionID)
	} else {
		attempts, err = tenantCtx.AttemptRepo().ListRecentBySession(sessionID, limit)
	}
	if err != nil {
		marker.SetError(err)
		return nil, nil, fmt.Errorf("%w: %v", monetization.ErrUpstreamUnavailable, err)
	}

	return signals, attempts, nil
}
