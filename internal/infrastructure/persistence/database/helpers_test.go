package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
)

func TestCheckAndLogSlowQuery(t *testing.T) {
	dir := t.TempDir()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    true,
		OutputToConsole: false,
		LogDirectory:    dir,
	})
	require.NoError(t, err)

	logFile := filepath.Join(dir, "slow-query.log")

	t.Run("fast queries are not reported", func(t *testing.T) {
		CheckAndLogSlowQuery(logger, "SELECT 1", 0, "default")
		content, readErr := os.ReadFile(logFile)
		if readErr == nil {
			assert.NotContains(t, string(content), "Slow query detected")
		}
	})

	t.Run("queries past the threshold are reported", func(t *testing.T) {
		CheckAndLogSlowQuery(logger, "SELECT * FROM signals", GetSlowQueryThreshold()+time.Second, "default")
		content, readErr := os.ReadFile(logFile)
		require.NoError(t, readErr)
		assert.Contains(t, string(content), "Slow query detected")
	})
}
