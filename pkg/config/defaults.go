// Package config provides centralized default values for Orbgate
package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if _, err := os.Stat(".env"); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
		if err := godotenv.Load(); err != nil {
			log.Printf("Failed to load .env file: %v", err)
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%g (default: %g)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Cache Configuration
	MaxTenants           int
	MaxMemoryMB          int
	MaxSessionsPerTenant int

	// Database Pool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int
	SlowQueryThreshold       time.Duration

	// SSE Configuration
	MaxSessionsPerClient        int
	MaxSessionConnections       int
	SSEConnectionTimeoutMinutes int
	SSEHeartbeatIntervalSeconds int
	SSEInactivityTimeoutMinutes int

	// Policy Configuration
	ReadinessThreshold      float64
	ReadinessBaseScore      float64
	ReadinessPositiveWeight float64
	ReadinessNegativeWeight float64
	ReadinessDecayAfter     time.Duration
	EnvelopeValidity        time.Duration
	RejectionCooldown       time.Duration
	MaxAttemptsPerSession   int
	BlockingEmotionalStates string
	SandboxAuthEnabled      bool

	// SysOp Dashboard
	SysopPassword string

	// TTL Configuration
	PolicyStateTTL time.Duration
	SessionTTL     time.Duration

	// Cleanup Intervals
	CleanupInterval       time.Duration
	TenantTimeout         time.Duration
	SSECleanupInterval    time.Duration
	DBPoolCleanupInterval time.Duration
	CleanupVerbose        bool
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Memory Management
	MaxTenants = getEnvInt("MAX_TENANTS", 5)
	MaxMemoryMB = getEnvInt("MAX_MEMORY_MB", 768)
	MaxSessionsPerTenant = getEnvInt("MAX_SESSIONS_PER_TENANT", 5000)

	// Database Pool
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 100*time.Millisecond)

	// SSE Configuration
	MaxSessionsPerClient = getEnvInt("MAX_SESSIONS_PER_CLIENT", 10000)
	MaxSessionConnections = getEnvInt("MAX_SESSION_CONNECTIONS", 3)
	SSEConnectionTimeoutMinutes = getEnvInt("SSE_CONNECTION_TIMEOUT_MINUTES", 30)
	SSEHeartbeatIntervalSeconds = getEnvInt("SSE_HEARTBEAT_INTERVAL_SECONDS", 30)
	SSEInactivityTimeoutMinutes = getEnvInt("SSE_INACTIVITY_TIMEOUT_MINUTES", 5)

	// Policy Configuration
	ReadinessThreshold = getEnvFloat("READINESS_THRESHOLD", 0.6)
	ReadinessBaseScore = getEnvFloat("READINESS_BASE_SCORE", 0.3)
	ReadinessPositiveWeight = getEnvFloat("READINESS_POSITIVE_WEIGHT", 0.15)
	ReadinessNegativeWeight = getEnvFloat("READINESS_NEGATIVE_WEIGHT", 0.2)
	ReadinessDecayAfter = time.Duration(getEnvInt("READINESS_DECAY_AFTER_MINUTES", 30)) * time.Minute
	EnvelopeValidity = time.Duration(getEnvInt("ENVELOPE_VALIDITY_MINUTES", 15)) * time.Minute
	RejectionCooldown = time.Duration(getEnvInt("REJECTION_COOLDOWN_MINUTES", 30)) * time.Minute
	MaxAttemptsPerSession = getEnvInt("MAX_ATTEMPTS_PER_SESSION", 2)
	BlockingEmotionalStates = getEnvString("BLOCKING_EMOTIONAL_STATES", "stressed,frustrated,anxious")
	SandboxAuthEnabled = getEnvBool("AUTH_SANDBOX_ENABLED", false)

	// SysOp Dashboard
	SysopPassword = os.Getenv("SYSOP_PASSWORD")

	// TTL Configuration
	PolicyStateTTL = time.Duration(getEnvInt("POLICY_STATE_TTL_HOURS", 24)) * time.Hour
	SessionTTL = time.Duration(getEnvInt("SESSION_TTL_HOURS", 168)) * time.Hour

	// Cleanup Intervals
	CleanupInterval = time.Duration(getEnvInt("CACHE_CLEANUP_INTERVAL_MINUTES", 30)) * time.Minute
	TenantTimeout = time.Duration(getEnvInt("TENANT_TIMEOUT_HOURS", 4)) * time.Hour
	SSECleanupInterval = time.Duration(getEnvInt("SSE_CLEANUP_INTERVAL_MINUTES", 5)) * time.Minute
	DBPoolCleanupInterval = time.Duration(getEnvInt("DB_POOL_CLEANUP_INTERVAL_MINUTES", 5)) * time.Minute
	CleanupVerbose = getEnvBool("CACHE_CLEANUP_VERBOSE", true)
}
