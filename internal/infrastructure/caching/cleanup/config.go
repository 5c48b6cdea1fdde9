package cleanup

import (
	"time"

	"github.com/AtRiskMedia/orbgate-go/pkg/config"
)

// Config holds cleanup worker configuration, sourced from the central config package.
type Config struct {
	CleanupInterval  time.Duration
	VerboseReporting bool
	PolicyStateTTL   time.Duration
	SessionTTL       time.Duration
	TenantTimeout    time.Duration
}

// NewConfig creates a new cleanup configuration by reading values
// from the already-initialized variables in the centralized /pkg/config package.
func NewConfig() *Config {
	return &Config{
		CleanupInterval:  config.CleanupInterval,
		VerboseReporting: config.CleanupVerbose,
		PolicyStateTTL:   config.PolicyStateTTL,
		SessionTTL:       config.SessionTTL,
		TenantTimeout:    config.TenantTimeout,
	}
}
