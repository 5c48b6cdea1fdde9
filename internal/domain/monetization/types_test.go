package monetization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabularyParsing(t *testing.T) {
	t.Run("signal types", func(t *testing.T) {
		parsed, err := ParseSignalType("financial_distress")
		require.NoError(t, err)
		assert.Equal(t, SignalFinancialDistress, parsed)

		_, err = ParseSignalType("purchase_intent")
		assert.ErrorIs(t, err, ErrInvalidSignalType)

		_, err = ParseSignalType("")
		assert.ErrorIs(t, err, ErrInvalidSignalType)
	})

	t.Run("indicators", func(t *testing.T) {
		parsed, err := ParseIndicator("neutral")
		require.NoError(t, err)
		assert.Equal(t, IndicatorNeutral, parsed)

		_, err = ParseIndicator("Positive")
		assert.ErrorIs(t, err, ErrInvalidIndicator)
	})

	t.Run("attempt types", func(t *testing.T) {
		parsed, err := ParseAttemptType("premium_feature")
		require.NoError(t, err)
		assert.Equal(t, AttemptPremiumFeature, parsed)

		_, err = ParseAttemptType("donation")
		assert.ErrorIs(t, err, ErrInvalidAttemptType)
	})

	t.Run("outcomes", func(t *testing.T) {
		parsed, err := ParseOutcome("deferred")
		require.NoError(t, err)
		assert.Equal(t, OutcomeDeferred, parsed)

		parsed, err = ParseOutcome("ignored")
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, parsed)

		_, err = ParseOutcome("ignored_entirely")
		assert.ErrorIs(t, err, ErrInvalidOutcome)
	})
}

func TestSignalTypeIsFinancial(t *testing.T) {
	assert.True(t, SignalFinancialDistress.IsFinancial())
	assert.True(t, SignalFinancialCapacity.IsFinancial())
	assert.False(t, SignalValuePerceived.IsFinancial())
	assert.False(t, SignalEmotionalState.IsFinancial())
}

func TestBlockingStates(t *testing.T) {
	t.Run("parse trims and lowercases", func(t *testing.T) {
		states := ParseBlockingStates(" Stressed, FRUSTRATED ,anxious,,")
		assert.Equal(t, map[string]bool{"stressed": true, "frustrated": true, "anxious": true}, states)
	})

	t.Run("membership is case insensitive", func(t *testing.T) {
		config := DefaultPolicyConfig()
		assert.True(t, config.IsBlockingState("Stressed"))
		assert.True(t, config.IsBlockingState(" anxious "))
		assert.False(t, config.IsBlockingState("worried"))
		assert.False(t, config.IsBlockingState(""))
	})
}
