package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/tenant"
)

// newTestTenantContext builds a tenant context backed by an in-memory
// sqlite database with the schema applied.
func newTestTenantContext(t *testing.T) *tenant.Context {
	t.Helper()

	logger := newQuietLogger(t)

	db, err := database.NewConnection("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cacheManager := manager.NewManager(logger)
	cacheManager.InitializeTenant("default")

	tenantCtx := &tenant.Context{
		TenantID:     "default",
		Config:       &tenant.Config{TenantID: "default"},
		Database:     &tenant.Database{Conn: db.DB, TenantID: "default"},
		Status:       "active",
		CacheManager: cacheManager,
		Logger:       logger,
	}
	require.NoError(t, tenantCtx.EnsureSchema())
	return tenantCtx
}

func TestRecordAttempt(t *testing.T) {
	tenantCtx := newTestTenantContext(t)
	svc := NewAttemptService(monetization.DefaultPolicyConfig(), tenantCtx.Logger, performance.NewTracker(nil))

	t.Run("requires a session", func(t *testing.T) {
		_, err := svc.RecordAttempt(tenantCtx, "", "upsell", "accepted", "", nil)
		assert.ErrorIs(t, err, monetization.ErrSessionIDRequired)
	})

	t.Run("rejects unknown vocabulary", func(t *testing.T) {
		_, err := svc.RecordAttempt(tenantCtx, "session-1", "donation", "accepted", "", nil)
		assert.ErrorIs(t, err, monetization.ErrInvalidAttemptType)

		_, err = svc.RecordAttempt(tenantCtx, "session-1", "upsell", "maybe", "", nil)
		assert.ErrorIs(t, err, monetization.ErrInvalidOutcome)
	})

	t.Run("acceptance does not trigger cooldown", func(t *testing.T) {
		result, err := svc.RecordAttempt(tenantCtx, "session-1", "upsell", "accepted", "sure", nil)
		require.NoError(t, err)
		assert.False(t, result.CooldownTriggered)
		assert.NotEmpty(t, result.Attempt.ID)
		assert.Equal(t, "sure", result.Attempt.UserResponse)
	})

	t.Run("rejection triggers cooldown", func(t *testing.T) {
		result, err := svc.RecordAttempt(tenantCtx, "session-1", "subscription", "rejected", "no", nil)
		require.NoError(t, err)
		assert.True(t, result.CooldownTriggered)
	})

	t.Run("recording invalidates the cached envelope", func(t *testing.T) {
		state := tenantCtx.CacheManager.GetOrCreateSessionState("default", "session-2")
		require.True(t, tenantCtx.CacheManager.SetEnvelope("default", "session-2", testEnvelopeFor("session-2"), state.Generation))

		_, err := svc.RecordAttempt(tenantCtx, "session-2", "upsell", "deferred", "", nil)
		require.NoError(t, err)

		_, found := tenantCtx.CacheManager.GetEnvelope("default", "session-2")
		assert.False(t, found)
	})
}

func TestDeriveAttemptState(t *testing.T) {
	tenantCtx := newTestTenantContext(t)
	svc := NewAttemptService(monetization.DefaultPolicyConfig(), tenantCtx.Logger, performance.NewTracker(nil))
	now := time.Now().UTC()

	t.Run("empty ledger is calm", func(t *testing.T) {
		state, err := svc.DeriveState(tenantCtx, "session-1", now)
		require.NoError(t, err)
		assert.Zero(t, state.NonRejectedCount)
		assert.False(t, state.CeilingReached)
		assert.False(t, state.CooldownActive)
	})

	t.Run("rejection opens a cooldown window", func(t *testing.T) {
		result, err := svc.RecordAttempt(tenantCtx, "session-1", "upsell", "rejected", "", nil)
		require.NoError(t, err)

		state, err := svc.DeriveState(tenantCtx, "session-1", now)
		require.NoError(t, err)
		assert.True(t, state.CooldownActive)
		assert.WithinDuration(t, result.Attempt.RecordedAt.Add(30*time.Minute), state.CooldownUntil, time.Second)
		assert.Zero(t, state.NonRejectedCount)
	})

	t.Run("cooldown expires with time", func(t *testing.T) {
		state, err := svc.DeriveState(tenantCtx, "session-1", now.Add(31*time.Minute))
		require.NoError(t, err)
		assert.False(t, state.CooldownActive)
		assert.True(t, state.CooldownUntil.IsZero())
	})

	t.Run("two non-rejected attempts reach the ceiling", func(t *testing.T) {
		_, err := svc.RecordAttempt(tenantCtx, "session-1", "upsell", "accepted", "", nil)
		require.NoError(t, err)

		state, err := svc.DeriveState(tenantCtx, "session-1", now.Add(31*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, state.NonRejectedCount)
		assert.False(t, state.CeilingReached)

		_, err = svc.RecordAttempt(tenantCtx, "session-1", "premium_feature", "deferred", "", nil)
		require.NoError(t, err)

		state, err = svc.DeriveState(tenantCtx, "session-1", now.Add(31*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 2, state.NonRejectedCount)
		assert.True(t, state.CeilingReached)
	})
}

func testEnvelopeFor(sessionID string) *monetization.Envelope {
	now := time.Now().UTC()
	return &monetization.Envelope{
		SessionID:  sessionID,
		AllowPaid:  true,
		Reason:     monetization.ReasonReady,
		ComputedAt: now,
		ValidUntil: now.Add(15 * time.Minute),
	}
}
