package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
)

func TestRenderContext(t *testing.T) {
	tenantCtx := newTestTenantContext(t)
	svc := NewContextService(tenantCtx.Logger, performance.NewTracker(nil))

	t.Run("requires a session", func(t *testing.T) {
		_, err := svc.Render(tenantCtx, "")
		assert.ErrorIs(t, err, monetization.ErrSessionIDRequired)
	})

	t.Run("no cached decision means no context", func(t *testing.T) {
		result, err := svc.Render(tenantCtx, "session-1")
		require.NoError(t, err)
		assert.False(t, result.HasContext)
		assert.Empty(t, result.Context)
	})

	t.Run("current decision renders narrative and orb context", func(t *testing.T) {
		now := time.Now().UTC()
		state := tenantCtx.CacheManager.GetOrCreateSessionState("default", "session-2")
		envelope := &monetization.Envelope{
			SessionID:  "session-2",
			Reason:     monetization.ReasonReadinessLow,
			ComputedAt: now,
			ValidUntil: now.Add(15 * time.Minute),
		}
		require.True(t, tenantCtx.CacheManager.SetEnvelope("default", "session-2", envelope, state.Generation))

		result, err := svc.Render(tenantCtx, "session-2")
		require.NoError(t, err)
		assert.True(t, result.HasContext)
		assert.False(t, result.Stale)
		assert.Contains(t, result.Context, "not allowed")
		assert.Contains(t, result.OrbContext, "DENIED")
		assert.Contains(t, result.OrbContext, "state=current")
	})

	t.Run("expired decision is surfaced as stale", func(t *testing.T) {
		now := time.Now().UTC()
		state := tenantCtx.CacheManager.GetOrCreateSessionState("default", "session-3")
		envelope := &monetization.Envelope{
			SessionID:    "session-3",
			AllowPaid:    true,
			Reason:       monetization.ReasonReady,
			AllowedTypes: monetization.AllAttemptTypes(),
			ComputedAt:   now.Add(-30 * time.Minute),
			ValidUntil:   now.Add(-15 * time.Minute),
		}
		require.True(t, tenantCtx.CacheManager.SetEnvelope("default", "session-3", envelope, state.Generation))

		result, err := svc.Render(tenantCtx, "session-3")
		require.NoError(t, err)
		assert.True(t, result.HasContext)
		assert.True(t, result.Stale)
		assert.Contains(t, result.Context, "expired")
		assert.Contains(t, result.OrbContext, "state=stale")
	})

	t.Run("orb context strips the narrative", func(t *testing.T) {
		result, err := svc.GetOrbContext(tenantCtx, "session-2")
		require.NoError(t, err)
		assert.True(t, result.HasContext)
		assert.Empty(t, result.Context)
		assert.NotEmpty(t, result.OrbContext)
	})
}

func TestRenderNarrative(t *testing.T) {
	now := time.Now().UTC()

	t.Run("allowed lists the permitted types", func(t *testing.T) {
		envelope := &monetization.Envelope{
			AllowPaid:    true,
			Reason:       monetization.ReasonReady,
			AllowedTypes: []monetization.AttemptType{monetization.AttemptUpsell, monetization.AttemptSubscription},
			ComputedAt:   now,
			ValidUntil:   now.Add(15 * time.Minute),
		}
		narrative := renderNarrative(envelope, nil, false)
		assert.Equal(t, "Monetization is currently allowed (upsell, subscription).", narrative)
	})

	t.Run("denied explains the reason", func(t *testing.T) {
		envelope := &monetization.Envelope{
			Reason:     monetization.ReasonCooldownActive,
			ComputedAt: now,
			ValidUntil: now.Add(15 * time.Minute),
		}
		narrative := renderNarrative(envelope, nil, false)
		assert.Contains(t, narrative, "not allowed")
		assert.Contains(t, narrative, "cooldown is active")
	})

	t.Run("trend and staleness are appended", func(t *testing.T) {
		envelope := &monetization.Envelope{
			Reason:     monetization.ReasonReadinessLow,
			ComputedAt: now.Add(-20 * time.Minute),
			ValidUntil: now.Add(-5 * time.Minute),
		}
		signals := []*monetization.Signal{
			testSignal(monetization.SignalValueDoubted, monetization.IndicatorNegative, "", now.Add(-10*time.Minute)),
		}
		narrative := renderNarrative(envelope, signals, true)
		assert.Contains(t, narrative, "Readiness signals trend negative.")
		assert.Contains(t, narrative, "This decision has expired and reflects the last known state.")
	})
}

func TestRenderOrbContext(t *testing.T) {
	validUntil := time.Date(2026, 8, 28, 12, 30, 0, 0, time.UTC)

	t.Run("allowed and current", func(t *testing.T) {
		envelope := &monetization.Envelope{
			AllowPaid:  true,
			Reason:     monetization.ReasonReady,
			ValidUntil: validUntil,
		}
		assert.Equal(t,
			"[monetization: ALLOWED reason=READY valid_until=2026-08-28T12:30:00Z state=current]",
			renderOrbContext(envelope, false))
	})

	t.Run("denied and stale", func(t *testing.T) {
		envelope := &monetization.Envelope{
			Reason:     monetization.ReasonSensitivityBlocked,
			ValidUntil: validUntil,
		}
		assert.Equal(t,
			"[monetization: DENIED reason=SENSITIVITY_BLOCKED valid_until=2026-08-28T12:30:00Z state=stale]",
			renderOrbContext(envelope, true))
	})
}

func TestDescribeTrend(t *testing.T) {
	now := time.Now().UTC()

	t.Run("no scoring signals yields no trend", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalEmotionalState, monetization.IndicatorNegative, "stressed", now),
			testSignal(monetization.SignalExplicitRefusal, monetization.IndicatorNegative, "", now),
		}
		assert.Equal(t, "", describeTrend(signals))
	})

	t.Run("mixed signals", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "", now),
			testSignal(monetization.SignalFinancialDistress, monetization.IndicatorNegative, "", now),
		}
		assert.Equal(t, "Readiness signals are mixed.", describeTrend(signals))
	})

	t.Run("positive outweighs negative", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "", now),
			testSignal(monetization.SignalFinancialCapacity, monetization.IndicatorPositive, "", now),
			testSignal(monetization.SignalValueDoubted, monetization.IndicatorNegative, "", now),
		}
		assert.Equal(t, "Readiness signals trend positive.", describeTrend(signals))
	})
}
