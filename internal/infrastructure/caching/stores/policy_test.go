package stores

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
)

func testEnvelope(sessionID string, allowPaid bool) *monetization.Envelope {
	now := time.Now().UTC()
	reason := monetization.ReasonReadinessLow
	if allowPaid {
		reason = monetization.ReasonReady
	}
	return &monetization.Envelope{
		SessionID:  sessionID,
		AllowPaid:  allowPaid,
		Reason:     reason,
		ComputedAt: now,
		ValidUntil: now.Add(15 * time.Minute),
	}
}

func TestPolicyStoreSessionLifecycle(t *testing.T) {
	store := NewPolicyStore(nil)
	store.InitializeTenant("default")

	t.Run("unknown session misses", func(t *testing.T) {
		_, found := store.GetSessionState("default", "nope")
		assert.False(t, found)
	})

	t.Run("first reference creates the session", func(t *testing.T) {
		state := store.GetOrCreateSessionState("default", "session-1")
		require.NotNil(t, state)
		assert.Equal(t, "session-1", state.SessionID)
		assert.Equal(t, uint64(0), state.Generation)
		assert.Nil(t, state.Envelope)

		again := store.GetOrCreateSessionState("default", "session-1")
		assert.Same(t, state, again)
	})

	t.Run("uninitialized tenant is created on demand", func(t *testing.T) {
		state := store.GetOrCreateSessionState("other", "session-9")
		require.NotNil(t, state)
		assert.Contains(t, store.GetTenantIDs(), "other")
	})

	t.Run("touch refreshes activity without other mutation", func(t *testing.T) {
		state := store.GetOrCreateSessionState("default", "session-1")
		state.LastActivity = time.Now().UTC().Add(-time.Hour)
		generation := state.Generation

		store.TouchSession("default", "session-1")
		assert.WithinDuration(t, time.Now().UTC(), state.LastActivity, time.Second)
		assert.Equal(t, generation, state.Generation)
		assert.Nil(t, state.Envelope)
	})

	t.Run("touching an unknown session creates nothing", func(t *testing.T) {
		store.TouchSession("default", "never-seen")
		_, found := store.GetSessionState("default", "never-seen")
		assert.False(t, found)
	})

	t.Run("remove session evicts", func(t *testing.T) {
		store.GetOrCreateSessionState("default", "session-2")
		store.RemoveSession("default", "session-2")
		_, found := store.GetSessionState("default", "session-2")
		assert.False(t, found)
	})

	t.Run("remove tenant evicts all sessions", func(t *testing.T) {
		store.RemoveTenant("other")
		_, found := store.GetSessionState("other", "session-9")
		assert.False(t, found)
	})
}

func TestPolicyStoreEnvelopeGeneration(t *testing.T) {
	store := NewPolicyStore(nil)
	store.InitializeTenant("default")

	t.Run("write succeeds when generation matches", func(t *testing.T) {
		state := store.GetOrCreateSessionState("default", "session-1")
		envelope := testEnvelope("session-1", true)

		assert.True(t, store.SetEnvelope("default", "session-1", envelope, state.Generation))

		cached, found := store.GetEnvelope("default", "session-1")
		require.True(t, found)
		assert.Same(t, envelope, cached)
	})

	t.Run("invalidate clears the envelope and bumps generation", func(t *testing.T) {
		state := store.GetOrCreateSessionState("default", "session-1")
		before := state.Generation

		store.InvalidateEnvelope("default", "session-1")

		assert.Equal(t, before+1, state.Generation)
		assert.Nil(t, state.Envelope)
		_, found := store.GetEnvelope("default", "session-1")
		assert.False(t, found)
	})

	t.Run("stale generation write is discarded", func(t *testing.T) {
		state := store.GetOrCreateSessionState("default", "session-1")
		stale := state.Generation

		store.InvalidateEnvelope("default", "session-1")

		assert.False(t, store.SetEnvelope("default", "session-1", testEnvelope("session-1", false), stale))
		_, found := store.GetEnvelope("default", "session-1")
		assert.False(t, found)
	})

	t.Run("expired envelopes are still returned", func(t *testing.T) {
		state := store.GetOrCreateSessionState("default", "session-3")
		envelope := testEnvelope("session-3", false)
		envelope.ComputedAt = time.Now().UTC().Add(-30 * time.Minute)
		envelope.ValidUntil = time.Now().UTC().Add(-15 * time.Minute)

		require.True(t, store.SetEnvelope("default", "session-3", envelope, state.Generation))

		cached, found := store.GetEnvelope("default", "session-3")
		require.True(t, found)
		assert.True(t, cached.Expired(time.Now().UTC()))
	})
}
