// Package monetization provides the concrete SQL-based implementations of
// the monetization domain repositories (Signal, Attempt).
package monetization

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/persistence/database"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS signals (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		signal_type TEXT NOT NULL,
		indicator TEXT NOT NULL,
		context TEXT DEFAULT '',
		recorded_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		attempt_type TEXT NOT NULL,
		outcome TEXT NOT NULL,
		user_response TEXT DEFAULT '',
		recorded_at TIMESTAMP NOT NULL
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_signals_session ON signals(session_id, recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_session ON attempts(session_id, recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON attempts(session_id, outcome, recorded_at)`,
}

// EnsureSchema creates the monetization tables and indexes if missing.
// Safe to run on every tenant activation.
func EnsureSchema(db *database.DB, logger *logging.ChanneledLogger) error {
	start := time.Now()

	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}

	if logger != nil {
		logger.Database().Info("Schema bootstrap completed", "tables", len(tables), "indexes", len(indexes), "duration", time.Since(start))
	}
	return nil
}
