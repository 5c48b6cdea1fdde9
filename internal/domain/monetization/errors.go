package monetization

import "errors"

// Vocabulary violations, rejected at construction time.
var (
	ErrInvalidSignalType  = errors.New("invalid signal type")
	ErrInvalidIndicator   = errors.New("invalid indicator")
	ErrInvalidAttemptType = errors.New("invalid attempt type")
	ErrInvalidOutcome     = errors.New("invalid outcome")
)

// Engine failure taxonomy. The engine never retries internally; callers
// decide whether an UpstreamUnavailable failure is worth retrying.
var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrInvariantViolation   = errors.New("internal invariant violation")
	ErrSessionIDRequired    = errors.New("session id is required")
	ErrMessageBodyRequired  = errors.New("message body is required")
	ErrHistoryLimitNegative = errors.New("history limit must not be negative")
	ErrStaleComputation     = errors.New("stale envelope computation discarded")
)
