package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
)

// newQuietLogger returns a logger that writes nothing to the console and
// keeps any file output inside the test's temp directory.
func newQuietLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		LogDirectory:    t.TempDir(),
	})
	require.NoError(t, err)
	return logger
}

func testSignal(signalType monetization.SignalType, indicator monetization.Indicator, context string, recordedAt time.Time) *monetization.Signal {
	return &monetization.Signal{
		ID:         "sig-" + string(signalType) + "-" + recordedAt.Format("150405.000"),
		SessionID:  "session-1",
		Type:       signalType,
		Indicator:  indicator,
		Context:    context,
		RecordedAt: recordedAt,
	}
}

func TestReadinessScoring(t *testing.T) {
	svc := NewReadinessService(monetization.DefaultPolicyConfig(), newQuietLogger(t))
	now := time.Now().UTC()

	t.Run("empty log scores the base", func(t *testing.T) {
		readiness := svc.Score(nil, now)
		assert.InDelta(t, 0.3, readiness.Score, 1e-9)
		assert.False(t, readiness.SensitivityBlocked)
		assert.Nil(t, readiness.LastSignalAt)
	})

	t.Run("positive signals raise the score", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "", now.Add(-3*time.Minute)),
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "", now.Add(-2*time.Minute)),
			testSignal(monetization.SignalFinancialCapacity, monetization.IndicatorPositive, "", now.Add(-time.Minute)),
		}
		readiness := svc.Score(signals, now)
		assert.InDelta(t, 0.75, readiness.Score, 1e-9)
		require.NotNil(t, readiness.LastSignalAt)
		assert.Equal(t, signals[2].RecordedAt, *readiness.LastSignalAt)
	})

	t.Run("negative signals lower the score", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalValueDoubted, monetization.IndicatorNegative, "", now.Add(-2*time.Minute)),
		}
		readiness := svc.Score(signals, now)
		assert.InDelta(t, 0.1, readiness.Score, 1e-9)
	})

	t.Run("score clamps to zero", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalFinancialDistress, monetization.IndicatorNegative, "", now.Add(-4*time.Minute)),
			testSignal(monetization.SignalFinancialDistress, monetization.IndicatorNegative, "", now.Add(-3*time.Minute)),
			testSignal(monetization.SignalValueDoubted, monetization.IndicatorNegative, "", now.Add(-2*time.Minute)),
		}
		readiness := svc.Score(signals, now)
		assert.Equal(t, 0.0, readiness.Score)
	})

	t.Run("score clamps to one", func(t *testing.T) {
		var signals []*monetization.Signal
		for i := 0; i < 6; i++ {
			signals = append(signals, testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "", now.Add(-time.Duration(i)*time.Minute)))
		}
		readiness := svc.Score(signals, now)
		assert.Equal(t, 1.0, readiness.Score)
	})

	t.Run("old signals count at half weight", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "", now.Add(-45*time.Minute)),
		}
		readiness := svc.Score(signals, now)
		assert.InDelta(t, 0.375, readiness.Score, 1e-9)
	})

	t.Run("neutral indicator does not move the score", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorNeutral, "", now.Add(-time.Minute)),
		}
		readiness := svc.Score(signals, now)
		assert.InDelta(t, 0.3, readiness.Score, 1e-9)
	})
}

func TestReadinessSensitivity(t *testing.T) {
	svc := NewReadinessService(monetization.DefaultPolicyConfig(), newQuietLogger(t))
	now := time.Now().UTC()

	t.Run("explicit refusal blocks regardless of score", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "", now.Add(-5*time.Minute)),
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "", now.Add(-4*time.Minute)),
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "", now.Add(-3*time.Minute)),
			testSignal(monetization.SignalExplicitRefusal, monetization.IndicatorNegative, "", now.Add(-2*time.Minute)),
		}
		readiness := svc.Score(signals, now)
		assert.True(t, readiness.SensitivityBlocked)
		assert.Equal(t, "explicit_refusal", readiness.BlockingReason)
		assert.InDelta(t, 0.75, readiness.Score, 1e-9)
	})

	t.Run("refusal persists across later positive signals", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalExplicitRefusal, monetization.IndicatorNegative, "", now.Add(-10*time.Minute)),
			testSignal(monetization.SignalValuePerceived, monetization.IndicatorPositive, "", now.Add(-time.Minute)),
		}
		readiness := svc.Score(signals, now)
		assert.True(t, readiness.SensitivityBlocked)
		assert.Equal(t, "explicit_refusal", readiness.BlockingReason)
	})

	t.Run("reversal clears the refusal", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalExplicitRefusal, monetization.IndicatorNegative, "", now.Add(-10*time.Minute)),
			testSignal(monetization.SignalRefusalReversal, monetization.IndicatorPositive, "", now.Add(-5*time.Minute)),
		}
		readiness := svc.Score(signals, now)
		assert.False(t, readiness.SensitivityBlocked)
	})

	t.Run("reversal does not clear a blocking emotional state", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalExplicitRefusal, monetization.IndicatorNegative, "", now.Add(-10*time.Minute)),
			testSignal(monetization.SignalEmotionalState, monetization.IndicatorNegative, "stressed", now.Add(-8*time.Minute)),
			testSignal(monetization.SignalRefusalReversal, monetization.IndicatorPositive, "", now.Add(-5*time.Minute)),
		}
		readiness := svc.Score(signals, now)
		assert.True(t, readiness.SensitivityBlocked)
		assert.Equal(t, "emotional_state:stressed", readiness.BlockingReason)
	})

	t.Run("most recent emotional state wins", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalEmotionalState, monetization.IndicatorNegative, "frustrated", now.Add(-10*time.Minute)),
			testSignal(monetization.SignalEmotionalState, monetization.IndicatorPositive, "relieved", now.Add(-2*time.Minute)),
		}
		readiness := svc.Score(signals, now)
		assert.False(t, readiness.SensitivityBlocked)
	})

	t.Run("non-blocking emotional state does not block", func(t *testing.T) {
		signals := []*monetization.Signal{
			testSignal(monetization.SignalEmotionalState, monetization.IndicatorNegative, "worried", now.Add(-time.Minute)),
		}
		readiness := svc.Score(signals, now)
		assert.False(t, readiness.SensitivityBlocked)
	})
}
