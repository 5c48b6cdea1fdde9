package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
)

func TestEnvelopeDecision(t *testing.T) {
	svc := &EnvelopeService{config: monetization.DefaultPolicyConfig()}
	now := time.Now().UTC()
	calm := &monetization.AttemptState{}

	t.Run("ready above threshold", func(t *testing.T) {
		readiness := monetization.Readiness{Score: 0.75}
		envelope := svc.decide("session-1", readiness, calm, "", now)

		assert.True(t, envelope.AllowPaid)
		assert.Equal(t, monetization.ReasonReady, envelope.Reason)
		assert.Equal(t, monetization.AllAttemptTypes(), envelope.AllowedTypes)
		assert.Equal(t, now, envelope.ComputedAt)
		assert.Equal(t, now.Add(15*time.Minute), envelope.ValidUntil)
		assert.True(t, envelope.Valid())
	})

	t.Run("requested type is echoed when allowed", func(t *testing.T) {
		readiness := monetization.Readiness{Score: 0.9}
		envelope := svc.decide("session-1", readiness, calm, monetization.AttemptUpsell, now)

		assert.True(t, envelope.AllowPaid)
		assert.Equal(t, []monetization.AttemptType{monetization.AttemptUpsell}, envelope.AllowedTypes)
	})

	t.Run("low readiness denies", func(t *testing.T) {
		readiness := monetization.Readiness{Score: 0.45}
		envelope := svc.decide("session-1", readiness, calm, "", now)

		assert.False(t, envelope.AllowPaid)
		assert.Equal(t, monetization.ReasonReadinessLow, envelope.Reason)
		assert.Empty(t, envelope.AllowedTypes)
	})

	t.Run("score exactly at threshold allows", func(t *testing.T) {
		readiness := monetization.Readiness{Score: 0.6}
		envelope := svc.decide("session-1", readiness, calm, "", now)

		assert.True(t, envelope.AllowPaid)
	})

	t.Run("sensitivity beats everything", func(t *testing.T) {
		readiness := monetization.Readiness{Score: 0.9, SensitivityBlocked: true, BlockingReason: "explicit_refusal"}
		state := &monetization.AttemptState{
			CooldownActive: true,
			CooldownUntil:  now.Add(10 * time.Minute),
			CeilingReached: true,
		}
		envelope := svc.decide("session-1", readiness, state, monetization.AttemptSubscription, now)

		assert.False(t, envelope.AllowPaid)
		assert.Equal(t, monetization.ReasonSensitivityBlocked, envelope.Reason)
		assert.Empty(t, envelope.AllowedTypes)
	})

	t.Run("cooldown beats ceiling and readiness", func(t *testing.T) {
		readiness := monetization.Readiness{Score: 0.9}
		state := &monetization.AttemptState{
			CooldownActive: true,
			CooldownUntil:  now.Add(10 * time.Minute),
			CeilingReached: true,
		}
		envelope := svc.decide("session-1", readiness, state, "", now)

		assert.False(t, envelope.AllowPaid)
		assert.Equal(t, monetization.ReasonCooldownActive, envelope.Reason)
	})

	t.Run("ceiling beats low readiness", func(t *testing.T) {
		readiness := monetization.Readiness{Score: 0.2}
		state := &monetization.AttemptState{NonRejectedCount: 2, CeilingReached: true}
		envelope := svc.decide("session-1", readiness, state, "", now)

		assert.False(t, envelope.AllowPaid)
		assert.Equal(t, monetization.ReasonAttemptLimit, envelope.Reason)
	})
}

func TestEnvelopeLifecycle(t *testing.T) {
	now := time.Now().UTC()

	t.Run("expired at the boundary", func(t *testing.T) {
		envelope := &monetization.Envelope{
			SessionID:  "session-1",
			ComputedAt: now.Add(-15 * time.Minute),
			ValidUntil: now,
		}
		assert.True(t, envelope.Expired(now))
		assert.False(t, envelope.Expired(now.Add(-time.Second)))
	})

	t.Run("incoherent timestamps fail validation", func(t *testing.T) {
		envelope := &monetization.Envelope{
			SessionID:  "session-1",
			ComputedAt: now,
			ValidUntil: now.Add(-time.Minute),
		}
		assert.False(t, envelope.Valid())
	})

	t.Run("three positive value signals cross the threshold", func(t *testing.T) {
		readinessSvc := NewReadinessService(monetization.DefaultPolicyConfig(), newQuietLogger(t))
		envelopeSvc := &EnvelopeService{config: monetization.DefaultPolicyConfig()}

		signals := []*monetization.Signal{
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "this is exactly what i needed", now.Add(-3*time.Minute)),
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "saved me hours", now.Add(-2*time.Minute)),
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "this is great", now.Add(-time.Minute)),
		}
		readiness := readinessSvc.Score(signals, now)
		require.InDelta(t, 0.75, readiness.Score, 1e-9)

		envelope := envelopeSvc.decide("session-1", readiness, &monetization.AttemptState{}, "", now)
		assert.True(t, envelope.AllowPaid)
		assert.Equal(t, monetization.ReasonReady, envelope.Reason)
	})
}
