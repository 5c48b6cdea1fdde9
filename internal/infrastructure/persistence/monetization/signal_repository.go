package monetization

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/persistence/database"
)

// SQLSignalRepository is the SQL-based implementation of the SignalRepository.
type SQLSignalRepository struct {
	db       *database.DB
	tenantID string
	logger   *logging.ChanneledLogger
}

// NewSQLSignalRepository creates a new instance of the repository.
func NewSQLSignalRepository(db *database.DB, tenantID string, logger *logging.ChanneledLogger) *SQLSignalRepository {
	return &SQLSignalRepository{db: db, tenantID: tenantID, logger: logger}
}

// Append saves a new Signal. The signal log is append-only; there is no
// update or delete path.
func (r *SQLSignalRepository) Append(signal *monetization.Signal) error {
	const query = `
		INSERT INTO signals (id, session_id, signal_type, indicator, context, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing signal insert", "id", signal.ID, "sessionId", signal.SessionID, "type", signal.Type)

	_, err := r.db.Exec(
		query,
		signal.ID,
		signal.SessionID,
		string(signal.Type),
		string(signal.Indicator),
		signal.Context,
		signal.RecordedAt,
	)
	if err != nil {
		r.logger.Database().Error("Signal insert failed", "error", err.Error(), "id", signal.ID)
		return fmt.Errorf("failed to insert signal: %w", err)
	}

	r.logger.Database().Info("Signal insert completed", "id", signal.ID, "duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return nil
}

// AppendBatch saves a group of Signals in one transaction. Either every
// signal is committed or none are; partial writes never surface.
func (r *SQLSignalRepository) AppendBatch(signals []*monetization.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	const query = `
		INSERT INTO signals (id, session_id, signal_type, indicator, context, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing signal batch insert", "count", len(signals))

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Database().Error("Signal batch begin failed", "error", err.Error())
		return fmt.Errorf("failed to begin signal batch: %w", err)
	}

	for _, signal := range signals {
		_, err := tx.Exec(
			query,
			signal.ID,
			signal.SessionID,
			string(signal.Type),
			string(signal.Indicator),
			signal.Context,
			signal.RecordedAt,
		)
		if err != nil {
			tx.Rollback()
			r.logger.Database().Error("Signal batch insert failed", "error", err.Error(), "id", signal.ID)
			return fmt.Errorf("failed to insert signal batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Database().Error("Signal batch commit failed", "error", err.Error())
		return fmt.Errorf("failed to commit signal batch: %w", err)
	}

	r.logger.Database().Info("Signal batch insert completed", "count", len(signals), "duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return nil
}

// ListBySession retrieves all Signals for a session in chronological order.
func (r *SQLSignalRepository) ListBySession(sessionID string) ([]*monetization.Signal, error) {
	const query = `
		SELECT id, session_id, signal_type, indicator, context, recorded_at
		FROM signals
		WHERE session_id = ?
		ORDER BY recorded_at ASC, id ASC`

	return r.querySignals(query, sessionID)
}

// ListRecentBySession retrieves the most recent Signals for a session,
// newest first, capped at limit.
func (r *SQLSignalRepository) ListRecentBySession(sessionID string, limit int) ([]*monetization.Signal, error) {
	const query = `
		SELECT id, session_id, signal_type, indicator, context, recorded_at
		FROM signals
		WHERE session_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`

	return r.querySignals(query, sessionID, limit)
}

func (r *SQLSignalRepository) querySignals(query string, args ...any) ([]*monetization.Signal, error) {
	start := time.Now()

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to query signals", "error", err.Error())
		return nil, err
	}
	defer rows.Close()

	var signals []*monetization.Signal
	for rows.Next() {
		signal, err := r.scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, signal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Database().Debug("Signals loaded from database", "count", len(signals), "duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return signals, nil
}

func (r *SQLSignalRepository) scanSignal(rows *sql.Rows) (*monetization.Signal, error) {
	var signal monetization.Signal
	var signalType, indicator string
	var context sql.NullString
	var recordedAtStr string

	err := rows.Scan(
		&signal.ID,
		&signal.SessionID,
		&signalType,
		&indicator,
		&context,
		&recordedAtStr,
	)
	if err != nil {
		return nil, err
	}

	signal.Type, err = monetization.ParseSignalType(signalType)
	if err != nil {
		return nil, err
	}
	signal.Indicator, err = monetization.ParseIndicator(indicator)
	if err != nil {
		return nil, err
	}

	if context.Valid {
		signal.Context = context.String
	}

	signal.RecordedAt, err = parseTimestamp(recordedAtStr)
	if err != nil {
		return nil, err
	}

	return &signal, nil
}

// parseTimestamp handles both RFC3339 and the space-separated format
// sqlite produces for TIMESTAMP columns.
func parseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02 15:04:05.999999999-07:00", raw)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", raw)
}
