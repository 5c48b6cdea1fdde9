package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
)

func newTestServices(t *testing.T) (*MessageService, *EnvelopeService, *AttemptService) {
	t.Helper()
	config := monetization.DefaultPolicyConfig()
	logger := newQuietLogger(t)
	perfTracker := performance.NewTracker(nil)

	readiness := NewReadinessService(config, logger)
	attempts := NewAttemptService(config, logger, perfTracker)
	envelopes := NewEnvelopeService(config, readiness, attempts, logger, perfTracker)
	messages := NewMessageService(config, readiness, attempts, envelopes, logger, perfTracker)
	return messages, envelopes, attempts
}

func TestProcessMessage(t *testing.T) {
	tenantCtx := newTestTenantContext(t)
	messages, _, _ := newTestServices(t)

	t.Run("requires session and message", func(t *testing.T) {
		_, err := messages.Process(tenantCtx, "", "hello", nil)
		assert.ErrorIs(t, err, monetization.ErrSessionIDRequired)

		_, err = messages.Process(tenantCtx, "session-1", "", nil)
		assert.ErrorIs(t, err, monetization.ErrMessageBodyRequired)
	})

	t.Run("detected signals are persisted with the decision", func(t *testing.T) {
		result, err := messages.Process(tenantCtx, "session-1", "this is exactly what i needed", nil)
		require.NoError(t, err)
		require.Len(t, result.Signals, 1)
		assert.Equal(t, monetization.SignalValuePerceived, result.Signals[0].Type)
		require.NotNil(t, result.Envelope)
		assert.False(t, result.Envelope.AllowPaid)
		assert.Equal(t, monetization.ReasonReadinessLow, result.Envelope.Reason)

		stored, err := tenantCtx.SignalRepo().ListBySession("session-1")
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})

	t.Run("neutral message records nothing but still decides", func(t *testing.T) {
		result, err := messages.Process(tenantCtx, "session-1", "what time is the meeting", nil)
		require.NoError(t, err)
		assert.Empty(t, result.Signals)
		require.NotNil(t, result.Envelope)

		stored, err := tenantCtx.SignalRepo().ListBySession("session-1")
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})
}

func TestProcessMessageReadinessAccumulation(t *testing.T) {
	tenantCtx := newTestTenantContext(t)
	messages, _, _ := newTestServices(t)

	result, err := messages.Process(tenantCtx, "session-1", "this is exactly what i needed", nil)
	require.NoError(t, err)
	assert.False(t, result.Envelope.AllowPaid)
	assert.Equal(t, monetization.ReasonReadinessLow, result.Envelope.Reason)

	result, err = messages.Process(tenantCtx, "session-1", "that report saved me hours", nil)
	require.NoError(t, err)
	assert.True(t, result.Envelope.AllowPaid)
	assert.Equal(t, monetization.ReasonReady, result.Envelope.Reason)
	assert.Equal(t, monetization.AllAttemptTypes(), result.Envelope.AllowedTypes)
}

func TestProcessMessageSensitivity(t *testing.T) {
	tenantCtx := newTestTenantContext(t)
	messages, _, _ := newTestServices(t)

	result, err := messages.Process(tenantCtx, "session-1", "please stop asking me to upgrade", nil)
	require.NoError(t, err)
	require.Len(t, result.Signals, 1)
	assert.Equal(t, monetization.SignalExplicitRefusal, result.Signals[0].Type)
	assert.Equal(t, monetization.ReasonSensitivityBlocked, result.Envelope.Reason)

	result, err = messages.Process(tenantCtx, "session-1", "i changed my mind about that", nil)
	require.NoError(t, err)
	require.Len(t, result.Signals, 1)
	assert.Equal(t, monetization.SignalRefusalReversal, result.Signals[0].Type)
	assert.NotEqual(t, monetization.ReasonSensitivityBlocked, result.Envelope.Reason)
}

func TestComputeOrGetEnvelope(t *testing.T) {
	tenantCtx := newTestTenantContext(t)
	messages, envelopes, attempts := newTestServices(t)

	t.Run("requires a session", func(t *testing.T) {
		_, err := envelopes.ComputeOrGet(tenantCtx, "", "", false, nil)
		assert.ErrorIs(t, err, monetization.ErrSessionIDRequired)
	})

	t.Run("rejects unknown product types", func(t *testing.T) {
		_, err := envelopes.ComputeOrGet(tenantCtx, "session-1", "donation", false, nil)
		assert.ErrorIs(t, err, monetization.ErrInvalidAttemptType)
	})

	t.Run("repeated calls return the cached envelope", func(t *testing.T) {
		first, err := envelopes.ComputeOrGet(tenantCtx, "session-1", "", false, nil)
		require.NoError(t, err)
		assert.Equal(t, monetization.ReasonReadinessLow, first.Reason)

		second, err := envelopes.ComputeOrGet(tenantCtx, "session-1", "", false, nil)
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("force recomputes", func(t *testing.T) {
		cached, err := envelopes.ComputeOrGet(tenantCtx, "session-1", "", false, nil)
		require.NoError(t, err)

		forced, err := envelopes.ComputeOrGet(tenantCtx, "session-1", "", true, nil)
		require.NoError(t, err)
		assert.NotSame(t, cached, forced)
		assert.Equal(t, cached.Reason, forced.Reason)
	})

	t.Run("expired cached envelopes are recomputed", func(t *testing.T) {
		sessionID := "session-expired"
		state := tenantCtx.CacheManager.GetOrCreateSessionState(tenantCtx.TenantID, sessionID)
		now := time.Now().UTC()

		stale := &monetization.Envelope{
			SessionID:  sessionID,
			AllowPaid:  true,
			Reason:     monetization.ReasonReady,
			ComputedAt: now.Add(-20 * time.Minute),
			ValidUntil: now.Add(-5 * time.Minute),
		}
		require.True(t, tenantCtx.CacheManager.SetEnvelope(tenantCtx.TenantID, sessionID, stale, state.Generation))

		fresh, err := envelopes.ComputeOrGet(tenantCtx, sessionID, "", false, nil)
		require.NoError(t, err)
		assert.NotSame(t, stale, fresh)
		assert.False(t, fresh.AllowPaid)
		assert.Equal(t, monetization.ReasonReadinessLow, fresh.Reason)
		assert.True(t, fresh.ValidUntil.After(now))
	})

	t.Run("incoherent cached timestamps force a recomputation", func(t *testing.T) {
		sessionID := "session-incoherent"
		state := tenantCtx.CacheManager.GetOrCreateSessionState(tenantCtx.TenantID, sessionID)
		now := time.Now().UTC()

		// Not yet expired, but valid_until precedes computed_at. The
		// cached value must never be returned as-is.
		broken := &monetization.Envelope{
			SessionID:  sessionID,
			AllowPaid:  true,
			Reason:     monetization.ReasonReady,
			ComputedAt: now.Add(20 * time.Minute),
			ValidUntil: now.Add(10 * time.Minute),
		}
		require.False(t, broken.Valid())
		require.False(t, broken.Expired(now))
		require.True(t, tenantCtx.CacheManager.SetEnvelope(tenantCtx.TenantID, sessionID, broken, state.Generation))

		fresh, err := envelopes.ComputeOrGet(tenantCtx, sessionID, "", false, nil)
		require.NoError(t, err)
		assert.NotSame(t, broken, fresh)
		assert.True(t, fresh.Valid())
		assert.False(t, fresh.AllowPaid)
		assert.Equal(t, monetization.ReasonReadinessLow, fresh.Reason)
	})

	t.Run("new signals invalidate the cached decision", func(t *testing.T) {
		before, err := envelopes.ComputeOrGet(tenantCtx, "session-2", "", false, nil)
		require.NoError(t, err)
		assert.False(t, before.AllowPaid)

		for _, message := range []string{
			"exactly what i needed",
			"saved me a ton of work",
			"this is great, worth it",
		} {
			_, err := messages.Process(tenantCtx, "session-2", message, nil)
			require.NoError(t, err)
		}

		after, err := envelopes.ComputeOrGet(tenantCtx, "session-2", "subscription", false, nil)
		require.NoError(t, err)
		assert.True(t, after.AllowPaid)
	})

	t.Run("cooldown denies a ready session", func(t *testing.T) {
		_, err := attempts.RecordAttempt(tenantCtx, "session-2", "subscription", "rejected", "not now", nil)
		require.NoError(t, err)

		envelope, err := envelopes.ComputeOrGet(tenantCtx, "session-2", "", false, nil)
		require.NoError(t, err)
		assert.False(t, envelope.AllowPaid)
		assert.Equal(t, monetization.ReasonCooldownActive, envelope.Reason)
	})
}

func TestEnvelopeDecisionIsIdempotentWithinValidity(t *testing.T) {
	tenantCtx := newTestTenantContext(t)
	_, envelopes, _ := newTestServices(t)

	first, err := envelopes.ComputeOrGet(tenantCtx, "session-1", "", false, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := envelopes.ComputeOrGet(tenantCtx, "session-1", "", false, nil)
		require.NoError(t, err)
		assert.Same(t, first, again)
		assert.True(t, again.ValidUntil.Equal(first.ValidUntil))
	}
	assert.True(t, first.ValidUntil.After(time.Now().UTC()))
}
