package monetization

import (
	"strings"
	"time"
)

// PolicyConfig carries every tunable of the policy engine. Constructed
// once at startup and injected into the services; the engine itself
// never reads the environment.
type PolicyConfig struct {
	ReadinessThreshold      float64
	ReadinessBaseScore      float64
	ReadinessPositiveWeight float64
	ReadinessNegativeWeight float64
	ReadinessDecayAfter     time.Duration
	EnvelopeValidity        time.Duration
	RejectionCooldown       time.Duration
	MaxAttemptsPerSession   int
	BlockingEmotionalStates map[string]bool
}

// DefaultPolicyConfig returns the documented default tunables.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		ReadinessThreshold:      0.6,
		ReadinessBaseScore:      0.3,
		ReadinessPositiveWeight: 0.15,
		ReadinessNegativeWeight: 0.2,
		ReadinessDecayAfter:     30 * time.Minute,
		EnvelopeValidity:        15 * time.Minute,
		RejectionCooldown:       30 * time.Minute,
		MaxAttemptsPerSession:   2,
		BlockingEmotionalStates: ParseBlockingStates("stressed,frustrated,anxious"),
	}
}

// ParseBlockingStates turns a comma-separated list of emotional states
// into a lookup set. States are matched case-insensitively.
func ParseBlockingStates(csv string) map[string]bool {
	states := make(map[string]bool)
	for _, raw := range strings.Split(csv, ",") {
		state := strings.ToLower(strings.TrimSpace(raw))
		if state != "" {
			states[state] = true
		}
	}
	return states
}

// IsBlockingState reports whether an emotional state suppresses
// monetization regardless of readiness.
func (c PolicyConfig) IsBlockingState(state string) bool {
	return c.BlockingEmotionalStates[strings.ToLower(strings.TrimSpace(state))]
}
