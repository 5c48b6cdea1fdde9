package monetization

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/persistence/database"
)

// SQLAttemptRepository is the SQL-based implementation of the AttemptRepository.
type SQLAttemptRepository struct {
	db       *database.DB
	tenantID string
	logger   *logging.ChanneledLogger
}

// NewSQLAttemptRepository creates a new instance of the repository.
func NewSQLAttemptRepository(db *database.DB, tenantID string, logger *logging.ChanneledLogger) *SQLAttemptRepository {
	return &SQLAttemptRepository{db: db, tenantID: tenantID, logger: logger}
}

// Append saves a new Attempt. The attempt log is append-only.
func (r *SQLAttemptRepository) Append(attempt *monetization.Attempt) error {
	const query = `
		INSERT INTO attempts (id, session_id, attempt_type, outcome, user_response, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing attempt insert", "id", attempt.ID, "sessionId", attempt.SessionID, "type", attempt.Type, "outcome", attempt.Outcome)

	_, err := r.db.Exec(
		query,
		attempt.ID,
		attempt.SessionID,
		string(attempt.Type),
		string(attempt.Outcome),
		attempt.UserResponse,
		attempt.RecordedAt,
	)
	if err != nil {
		r.logger.Database().Error("Attempt insert failed", "error", err.Error(), "id", attempt.ID)
		return fmt.Errorf("failed to insert attempt: %w", err)
	}

	r.logger.Database().Info("Attempt insert completed", "id", attempt.ID, "duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return nil
}

// ListBySession retrieves all Attempts for a session in chronological order.
func (r *SQLAttemptRepository) ListBySession(sessionID string) ([]*monetization.Attempt, error) {
	const query = `
		SELECT id, session_id, attempt_type, outcome, user_response, recorded_at
		FROM attempts
		WHERE session_id = ?
		ORDER BY recorded_at ASC, id ASC`

	return r.queryAttempts(query, sessionID)
}

// ListRecentBySession retrieves the most recent Attempts for a session,
// newest first, capped at limit.
func (r *SQLAttemptRepository) ListRecentBySession(sessionID string, limit int) ([]*monetization.Attempt, error) {
	const query = `
		SELECT id, session_id, attempt_type, outcome, user_response, recorded_at
		FROM attempts
		WHERE session_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`

	return r.queryAttempts(query, sessionID, limit)
}

// CountNonRejected counts attempts whose outcome was anything but rejected.
// Rejected attempts route through cooldown instead of the ceiling.
func (r *SQLAttemptRepository) CountNonRejected(sessionID string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM attempts
		WHERE session_id = ? AND outcome != 'rejected'`

	start := time.Now()

	var count int
	if err := r.db.QueryRow(query, sessionID).Scan(&count); err != nil {
		r.logger.Database().Error("Failed to count attempts", "error", err.Error(), "sessionId", sessionID)
		return 0, err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return count, nil
}

// LastRejection retrieves the most recent rejected attempt for a session,
// or nil when the session has never rejected an attempt.
func (r *SQLAttemptRepository) LastRejection(sessionID string) (*monetization.Attempt, error) {
	const query = `
		SELECT id, session_id, attempt_type, outcome, user_response, recorded_at
		FROM attempts
		WHERE session_id = ? AND outcome = 'rejected'
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`

	attempts, err := r.queryAttempts(query, sessionID)
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, nil // Not found
	}
	return attempts[0], nil
}

func (r *SQLAttemptRepository) queryAttempts(query string, args ...any) ([]*monetization.Attempt, error) {
	start := time.Now()

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to query attempts", "error", err.Error())
		return nil, err
	}
	defer rows.Close()

	var attempts []*monetization.Attempt
	for rows.Next() {
		attempt, err := r.scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Database().Debug("Attempts loaded from database", "count", len(attempts), "duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return attempts, nil
}

func (r *SQLAttemptRepository) scanAttempt(rows *sql.Rows) (*monetization.Attempt, error) {
	var attempt monetization.Attempt
	var attemptType, outcome string
	var userResponse sql.NullString
	var recordedAtStr string

	err := rows.Scan(
		&attempt.ID,
		&attempt.SessionID,
		&attemptType,
		&outcome,
		&userResponse,
		&recordedAtStr,
	)
	if err != nil {
		return nil, err
	}

	attempt.Type, err = monetization.ParseAttemptType(attemptType)
	if err != nil {
		return nil, err
	}
	attempt.Outcome, err = monetization.ParseOutcome(outcome)
	if err != nil {
		return nil, err
	}

	if userResponse.Valid {
		attempt.UserResponse = userResponse.String
	}

	attempt.RecordedAt, err = parseTimestamp(recordedAtStr)
	if err != nil {
		return nil, err
	}

	return &attempt, nil
}
