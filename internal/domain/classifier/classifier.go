// Package classifier detects financial and value signals in raw message
// text using a deterministic keyword ruleset. It is a pure function of
// its input: no state, no side effects, stable output ordering.
package classifier

import (
	"strings"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
)

// DetectedSignal is a classifier hit before it is recorded. It carries
// no session or timestamp; those are assigned at recording time.
type DetectedSignal struct {
	Type      monetization.SignalType `json:"type"`
	Indicator monetization.Indicator  `json:"indicator"`
	Context   string                  `json:"context"`
}

// Classification groups detected signals the way the policy engine
// consumes them.
type Classification struct {
	FinancialSignals []DetectedSignal `json:"financialSignals"`
	ValueSignals     []DetectedSignal `json:"valueSignals"`
}

// Empty reports whether no signals were detected.
func (c Classification) Empty() bool {
	return len(c.FinancialSignals) == 0 && len(c.ValueSignals) == 0
}

// All returns financial then value signals in detection order.
func (c Classification) All() []DetectedSignal {
	all := make([]DetectedSignal, 0, len(c.FinancialSignals)+len(c.ValueSignals))
	all = append(all, c.FinancialSignals...)
	all = append(all, c.ValueSignals...)
	return all
}

type rule struct {
	phrase    string
	signal    monetization.SignalType
	indicator monetization.Indicator
}

// Rules are evaluated in order; at most one hit is emitted per signal
// type per message so repeated phrasings do not inflate readiness.
var financialRules = []rule{
	{"can't afford", monetization.SignalFinancialDistress, monetization.IndicatorNegative},
	{"cannot afford", monetization.SignalFinancialDistress, monetization.IndicatorNegative},
	{"too expensive", monetization.SignalFinancialDistress, monetization.IndicatorNegative},
	{"money is tight", monetization.SignalFinancialDistress, monetization.IndicatorNegative},
	{"tight budget", monetization.SignalFinancialDistress, monetization.IndicatorNegative},
	{"i'm broke", monetization.SignalFinancialDistress, monetization.IndicatorNegative},
	{"costs too much", monetization.SignalFinancialDistress, monetization.IndicatorNegative},
	{"happy to pay", monetization.SignalFinancialCapacity, monetization.IndicatorPositive},
	{"willing to pay", monetization.SignalFinancialCapacity, monetization.IndicatorPositive},
	{"can afford", monetization.SignalFinancialCapacity, monetization.IndicatorPositive},
	{"budget for this", monetization.SignalFinancialCapacity, monetization.IndicatorPositive},
	{"price is fine", monetization.SignalFinancialCapacity, monetization.IndicatorPositive},
	{"money isn't an issue", monetization.SignalFinancialCapacity, monetization.IndicatorPositive},
}

var valueRules = []rule{
	{"exactly what i needed", monetization.SignalValuePerceived, monetization.IndicatorPositive},
	{"this is great", monetization.SignalValuePerceived, monetization.IndicatorPositive},
	{"really helpful", monetization.SignalValuePerceived, monetization.IndicatorPositive},
	{"so helpful", monetization.SignalValuePerceived, monetization.IndicatorPositive},
	{"love this", monetization.SignalValuePerceived, monetization.IndicatorPositive},
	{"saved me", monetization.SignalValuePerceived, monetization.IndicatorPositive},
	{"worth it", monetization.SignalValuePerceived, monetization.IndicatorPositive},
	{"not worth", monetization.SignalValueDoubted, monetization.IndicatorNegative},
	{"waste of time", monetization.SignalValueDoubted, monetization.IndicatorNegative},
	{"doesn't help", monetization.SignalValueDoubted, monetization.IndicatorNegative},
	{"isn't working", monetization.SignalValueDoubted, monetization.IndicatorNegative},
	{"not sure this helps", monetization.SignalValueDoubted, monetization.IndicatorNegative},
}

// Refusal rules run before reversal rules; a message can express both
// and the refusal reading wins for that message.
var refusalRules = []rule{
	{"stop asking", monetization.SignalExplicitRefusal, monetization.IndicatorNegative},
	{"stop selling", monetization.SignalExplicitRefusal, monetization.IndicatorNegative},
	{"not interested", monetization.SignalExplicitRefusal, monetization.IndicatorNegative},
	{"don't offer", monetization.SignalExplicitRefusal, monetization.IndicatorNegative},
	{"no thanks", monetization.SignalExplicitRefusal, monetization.IndicatorNegative},
	{"don't want to pay", monetization.SignalExplicitRefusal, monetization.IndicatorNegative},
}

var reversalRules = []rule{
	{"changed my mind", monetization.SignalRefusalReversal, monetization.IndicatorPositive},
	{"actually interested", monetization.SignalRefusalReversal, monetization.IndicatorPositive},
	{"tell me more about the upgrade", monetization.SignalRefusalReversal, monetization.IndicatorPositive},
	{"open to offers", monetization.SignalRefusalReversal, monetization.IndicatorPositive},
}

// Emotional states recognized as standalone words. The state name is
// carried in the signal context so the scorer can match it against the
// configured blocking set.
var emotionalStates = []string{
	"stressed", "frustrated", "anxious", "overwhelmed", "worried",
	"relieved", "excited", "confident",
}

var positiveStates = map[string]bool{
	"relieved": true, "excited": true, "confident": true,
}

// Classify runs the keyword ruleset against a message and returns the
// detected signals. It never records anything.
func Classify(message string) Classification {
	text := strings.ToLower(message)
	var result Classification

	result.FinancialSignals = applyRules(text, financialRules)

	result.ValueSignals = applyRules(text, valueRules)
	if hits := applyRules(text, refusalRules); len(hits) > 0 {
		result.ValueSignals = append(result.ValueSignals, hits...)
	} else {
		result.ValueSignals = append(result.ValueSignals, applyRules(text, reversalRules)...)
	}

	if state, ok := detectEmotionalState(text); ok {
		indicator := monetization.IndicatorNegative
		if positiveStates[state] {
			indicator = monetization.IndicatorPositive
		}
		result.ValueSignals = append(result.ValueSignals, DetectedSignal{
			Type:      monetization.SignalEmotionalState,
			Indicator: indicator,
			Context:   state,
		})
	}

	return result
}

func applyRules(text string, rules []rule) []DetectedSignal {
	var hits []DetectedSignal
	seen := make(map[monetization.SignalType]bool)
	for _, r := range rules {
		if seen[r.signal] {
			continue
		}
		if strings.Contains(text, r.phrase) {
			hits = append(hits, DetectedSignal{
				Type:      r.signal,
				Indicator: r.indicator,
				Context:   r.phrase,
			})
			seen[r.signal] = true
		}
	}
	return hits
}

func detectEmotionalState(text string) (string, bool) {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z') && r != '\''
	})
	present := make(map[string]bool, len(words))
	for _, w := range words {
		present[w] = true
	}
	// First listed state wins when several appear in one message.
	for _, state := range emotionalStates {
		if present[state] {
			return state, true
		}
	}
	return "", false
}
