// Package monetization defines the entities and closed vocabularies of the
// monetization policy engine: signals, attempts, envelopes, and the
// repository interfaces that abstract their persistence.
// Note: envelope caching is handled by the cache layer, not persistence.
package monetization

import "fmt"

// SignalType is the closed vocabulary of financial and value signals.
type SignalType string

const (
	SignalFinancialDistress SignalType = "financial_distress"
	SignalFinancialCapacity SignalType = "financial_capacity"
	SignalValuePerceived    SignalType = "value_perceived"
	SignalValueDoubted      SignalType = "value_doubted"
	SignalEmotionalState    SignalType = "emotional_state"
	SignalExplicitRefusal   SignalType = "explicit_refusal"
	SignalRefusalReversal   SignalType = "refusal_reversal"
)

// ParseSignalType validates a raw string against the signal vocabulary.
func ParseSignalType(raw string) (SignalType, error) {
	switch SignalType(raw) {
	case SignalFinancialDistress, SignalFinancialCapacity,
		SignalValuePerceived, SignalValueDoubted,
		SignalEmotionalState, SignalExplicitRefusal, SignalRefusalReversal:
		return SignalType(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSignalType, raw)
}

// IsFinancial reports whether the signal type is a financial signal.
func (s SignalType) IsFinancial() bool {
	return s == SignalFinancialDistress || s == SignalFinancialCapacity
}

// Indicator is the polarity of a signal.
type Indicator string

const (
	IndicatorPositive Indicator = "positive"
	IndicatorNegative Indicator = "negative"
	IndicatorNeutral  Indicator = "neutral"
)

// ParseIndicator validates a raw string against the indicator vocabulary.
func ParseIndicator(raw string) (Indicator, error) {
	switch Indicator(raw) {
	case IndicatorPositive, IndicatorNegative, IndicatorNeutral:
		return Indicator(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidIndicator, raw)
}

// AttemptType is the closed vocabulary of monetization actions.
type AttemptType string

const (
	AttemptUpsell          AttemptType = "upsell"
	AttemptSubscription    AttemptType = "subscription"
	AttemptPremiumFeature  AttemptType = "premium_feature"
	AttemptOneTimePurchase AttemptType = "one_time_purchase"
)

// AllAttemptTypes returns every monetization type in declaration order.
func AllAttemptTypes() []AttemptType {
	return []AttemptType{AttemptUpsell, AttemptSubscription, AttemptPremiumFeature, AttemptOneTimePurchase}
}

// ParseAttemptType validates a raw string against the monetization vocabulary.
func ParseAttemptType(raw string) (AttemptType, error) {
	switch AttemptType(raw) {
	case AttemptUpsell, AttemptSubscription, AttemptPremiumFeature, AttemptOneTimePurchase:
		return AttemptType(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAttemptType, raw)
}

// Outcome is the closed vocabulary of user responses to a monetization attempt.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeDeferred Outcome = "deferred"
	OutcomeIgnored  Outcome = "ignored"
)

// ParseOutcome validates a raw string against the outcome vocabulary.
func ParseOutcome(raw string) (Outcome, error) {
	switch Outcome(raw) {
	case OutcomeAccepted, OutcomeRejected, OutcomeDeferred, OutcomeIgnored:
		return Outcome(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, raw)
}

// EnvelopeReason explains an envelope decision. First-match precedence:
// sensitivity, cooldown, attempt ceiling, readiness, then ready.
type EnvelopeReason string

const (
	ReasonReady              EnvelopeReason = "READY"
	ReasonSensitivityBlocked EnvelopeReason = "SENSITIVITY_BLOCKED"
	ReasonCooldownActive     EnvelopeReason = "COOLDOWN_ACTIVE"
	ReasonAttemptLimit       EnvelopeReason = "ATTEMPT_LIMIT_REACHED"
	ReasonReadinessLow       EnvelopeReason = "READINESS_LOW"
)
