package tenant

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
)

func newTestLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		LogDirectory:    t.TempDir(),
	})
	require.NoError(t, err)
	return logger
}

func TestNewDatabase(t *testing.T) {
	logger := newTestLogger(t)

	t.Run("opens a sqlite connection", func(t *testing.T) {
		cfg := &Config{
			TenantID:   "db-test",
			SQLitePath: filepath.Join(t.TempDir(), "data", "tenant.db"),
		}

		db, err := NewDatabase(cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, db.Conn)
		assert.False(t, db.UseTurso)
		assert.NoError(t, db.Conn.Ping())
	})

	t.Run("reuses the pooled connection", func(t *testing.T) {
		cfg := &Config{
			TenantID:   "db-pool-test",
			SQLitePath: filepath.Join(t.TempDir(), "data", "tenant.db"),
		}

		first, err := NewDatabase(cfg, logger)
		require.NoError(t, err)

		second, err := NewDatabase(cfg, logger)
		require.NoError(t, err)
		assert.Same(t, first.Conn, second.Conn)
	})

	t.Run("invalid turso credentials degrade the tenant", func(t *testing.T) {
		cfg := &Config{
			TenantID:      "db-turso-test",
			TursoEnabled:  true,
			TursoDatabase: "libsql://nonexistent.invalid",
			TursoToken:    "not-a-real-token",
		}

		_, err := NewDatabase(cfg, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "degraded")
	})
}
