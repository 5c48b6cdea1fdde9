package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/tenant"
)

// ContextService projects engine state into a compact summary for
// prompt injection. Strictly read-only: it never mutates state and
// never triggers a recomputation. It surfaces whatever the envelope
// computer last decided, flagged stale when the validity window has
// passed; callers needing freshness compute an envelope first.
type ContextService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewContextService creates a new context renderer singleton
func NewContextService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ContextService {
	return &ContextService{
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// ContextResult carries the rendered context for a session. HasContext
// false means no decision exists yet for the session; callers must not
// read that as a denial.
type ContextResult struct {
	HasContext bool   `json:"has_context"`
	Stale      bool   `json:"stale,omitempty"`
	Context    string `json:"context,omitempty"`
	OrbContext string `json:"orb_context,omitempty"`
}

// Render returns the session's context summary, or an absent result
// when the envelope computer has never decided for this session.
func (s *ContextService) Render(tenantCtx *tenant.Context, sessionID string) (*ContextResult, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("context_render", tenantCtx.TenantID)
	defer marker.Complete()

	if sessionID == "" {
		marker.SetSuccess(false)
		return nil, monetization.ErrSessionIDRequired
	}

	envelope, exists := tenantCtx.CacheManager.GetEnvelope(tenantCtx.TenantID, sessionID)
	if !exists {
		marker.AddCacheMiss()
		return &ContextResult{HasContext: false}, nil
	}
	marker.AddCacheHit()

	now := time.Now().UTC()
	stale := envelope.Expired(now)

	signals, err := tenantCtx.SignalRepo().ListBySession(sessionID)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("%w: %v", monetization.ErrUpstreamUnavailable, err)
	}

	result := &ContextResult{
		HasContext: true,
		Stale:      stale,
		Context:    renderNarrative(envelope, signals, stale),
		OrbContext: renderOrbContext(envelope, stale),
	}

	s.logger.Policy().Debug("Context rendered",
		"tenantId", tenantCtx.TenantID,
		"sessionId", sessionID,
		"stale", stale,
		"duration", time.Since(start))

	return result, nil
}

// GetOrbContext returns only the compact agent-facing line.
func (s *ContextService) GetOrbContext(tenantCtx *tenant.Context, sessionID string) (*ContextResult, error) {
	result, err := s.Render(tenantCtx, sessionID)
	if err != nil {
		return nil, err
	}
	if !result.HasContext {
		return result, nil
	}
	return &ContextResult{
		HasContext: true,
		Stale:      result.Stale,
		OrbContext: result.OrbContext,
	}, nil
}

// renderNarrative builds the human-readable summary of the last decision.
func renderNarrative(envelope *monetization.Envelope, signals []*monetization.Signal, stale bool) string {
	var b strings.Builder

	if envelope.AllowPaid {
		types := make([]string, len(envelope.AllowedTypes))
		for i, t := range envelope.AllowedTypes {
			types[i] = string(t)
		}
		fmt.Fprintf(&b, "Monetization is currently allowed (%s).", strings.Join(types, ", "))
	} else {
		fmt.Fprintf(&b, "Monetization is currently not allowed: %s.", describeReason(envelope.Reason))
	}

	if trend := describeTrend(signals); trend != "" {
		b.WriteString(" ")
		b.WriteString(trend)
	}

	if stale {
		b.WriteString(" This decision has expired and reflects the last known state.")
	}

	return b.String()
}

// renderOrbContext builds the bracketed one-liner injected into agent prompts.
func renderOrbContext(envelope *monetization.Envelope, stale bool) string {
	decision := "DENIED"
	if envelope.AllowPaid {
		decision = "ALLOWED"
	}
	freshness := "current"
	if stale {
		freshness = "stale"
	}
	return fmt.Sprintf("[monetization: %s reason=%s valid_until=%s state=%s]",
		decision, envelope.Reason, envelope.ValidUntil.UTC().Format(time.RFC3339), freshness)
}

func describeReason(reason monetization.EnvelopeReason) string {
	switch reason {
	case monetization.ReasonSensitivityBlocked:
		return "the user is in a sensitive state or has explicitly declined offers"
	case monetization.ReasonCooldownActive:
		return "a recent offer was rejected and a cooldown is active"
	case monetization.ReasonAttemptLimit:
		return "the attempt limit for this session has been reached"
	case monetization.ReasonReadinessLow:
		return "the user has not shown enough readiness"
	default:
		return string(reason)
	}
}

func describeTrend(signals []*monetization.Signal) string {
	var positive, negative int
	for _, signal := range signals {
		switch signal.Type {
		case monetization.SignalValuePerceived, monetization.SignalValueDoubted,
			monetization.SignalFinancialDistress, monetization.SignalFinancialCapacity:
			switch signal.Indicator {
			case monetization.IndicatorPositive:
				positive++
			case monetization.IndicatorNegative:
				negative++
			}
		}
	}

	switch {
	case positive == 0 && negative == 0:
		return ""
	case positive > negative:
		return "Readiness signals trend positive."
	case negative > positive:
		return "Readiness signals trend negative."
	default:
		return "Readiness signals are mixed."
	}
}
