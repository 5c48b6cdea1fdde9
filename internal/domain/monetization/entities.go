package monetization

import "time"

// Signal is a classified observation about user behavior or text.
// Immutable once recorded; ordering by RecordedAt is significant because
// the most recent emotional-state signal drives sensitivity blocking.
type Signal struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"sessionId"`
	Type       SignalType `json:"type"`
	Indicator  Indicator  `json:"indicator"`
	Context    string     `json:"context,omitempty"`
	RecordedAt time.Time  `json:"recordedAt"`
}

// Attempt is a recorded monetization attempt outcome. Immutable.
type Attempt struct {
	ID           string      `json:"id"`
	SessionID    string      `json:"sessionId"`
	Type         AttemptType `json:"type"`
	Outcome      Outcome     `json:"outcome"`
	UserResponse string      `json:"userResponse,omitempty"`
	RecordedAt   time.Time   `json:"recordedAt"`
}

// Envelope is the time-bounded authorization decision for a session.
// Replaced whole on recomputation, never patched in place. An envelope
// past ValidUntil is treated as absent, not as a denial.
type Envelope struct {
	SessionID    string         `json:"sessionId"`
	AllowPaid    bool           `json:"allowPaid"`
	AllowedTypes []AttemptType  `json:"allowedTypes"`
	Reason       EnvelopeReason `json:"reason"`
	ComputedAt   time.Time      `json:"computedAt"`
	ValidUntil   time.Time      `json:"validUntil"`
}

// Expired reports whether the envelope's validity window has passed.
func (e *Envelope) Expired(now time.Time) bool {
	return !now.Before(e.ValidUntil)
}

// Valid reports whether the envelope's internal timestamps are coherent.
// A cached envelope with ValidUntil before ComputedAt must never be
// trusted; callers force a recomputation instead.
func (e *Envelope) Valid() bool {
	return !e.ValidUntil.Before(e.ComputedAt)
}

// Readiness is the output of the readiness scorer for a session.
type Readiness struct {
	Score              float64    `json:"score"`
	SensitivityBlocked bool       `json:"sensitivityBlocked"`
	BlockingReason     string     `json:"blockingReason,omitempty"`
	LastSignalAt       *time.Time `json:"lastSignalAt,omitempty"`
}

// AttemptState is the derived cooldown and ceiling view of a session's
// attempt ledger. CooldownUntil is zero when no cooldown is active.
type AttemptState struct {
	NonRejectedCount int       `json:"nonRejectedCount"`
	CeilingReached   bool      `json:"ceilingReached"`
	CooldownActive   bool      `json:"cooldownActive"`
	CooldownUntil    time.Time `json:"cooldownUntil,omitempty"`
}
