package monetization

// SignalRepository defines the append-only persistence of Signal entities.
type SignalRepository interface {
	Append(signal *Signal) error
	// AppendBatch commits all signals or none of them.
	AppendBatch(signals []*Signal) error
	ListBySession(sessionID string) ([]*Signal, error)
	ListRecentBySession(sessionID string, limit int) ([]*Signal, error)
}

// AttemptRepository defines the append-only persistence of Attempt entities.
type AttemptRepository interface {
	Append(attempt *Attempt) error
	ListBySession(sessionID string) ([]*Attempt, error)
	ListRecentBySession(sessionID string, limit int) ([]*Attempt, error)
	CountNonRejected(sessionID string) (int, error)
	LastRejection(sessionID string) (*Attempt, error)
}
