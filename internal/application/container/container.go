// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/AtRiskMedia/orbgate-go/internal/application/services"
	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/orbgate-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Policy Services (stateless singletons)
	ClassifierService *services.ClassifierService
	SignalService     *services.SignalService
	AttemptService    *services.AttemptService
	ReadinessService  *services.ReadinessService
	EnvelopeService   *services.EnvelopeService
	MessageService    *services.MessageService
	ContextService    *services.ContextService

	// Platform Services
	AuthService  *services.AuthService
	DBService    *services.DBService
	SysOpService *services.SysOpService

	// Infrastructure Dependencies
	Logger           *logging.ChanneledLogger
	PerfTracker      *performance.Tracker
	PolicyConfig     monetization.PolicyConfig
	TenantManager    *tenant.Manager
	CacheManager     *manager.Manager
	Broadcaster      *messaging.SSEBroadcaster
	SysOpBroadcaster *messaging.SysOpBroadcaster
}

// NewContainer creates and wires all singleton services
func NewContainer(logger *logging.ChanneledLogger, perfTracker *performance.Tracker, tenantManager *tenant.Manager, cacheManager *manager.Manager) *Container {
	policyConfig := policyConfigFromEnv()

	readinessService := services.NewReadinessService(policyConfig, logger)
	attemptService := services.NewAttemptService(policyConfig, logger, perfTracker)
	envelopeService := services.NewEnvelopeService(policyConfig, readinessService, attemptService, logger, perfTracker)

	return &Container{
		ClassifierService: services.NewClassifierService(logger, perfTracker),
		SignalService:     services.NewSignalService(logger, perfTracker),
		AttemptService:    attemptService,
		ReadinessService:  readinessService,
		EnvelopeService:   envelopeService,
		MessageService:    services.NewMessageService(policyConfig, readinessService, attemptService, envelopeService, logger, perfTracker),
		ContextService:    services.NewContextService(logger, perfTracker),

		AuthService:  services.NewAuthService(logger, perfTracker),
		DBService:    services.NewDBService(logger, perfTracker),
		SysOpService: services.NewSysOpService(cacheManager, tenantManager, logger, perfTracker),

		Logger:           logger,
		PerfTracker:      perfTracker,
		PolicyConfig:     policyConfig,
		TenantManager:    tenantManager,
		CacheManager:     cacheManager,
		Broadcaster:      messaging.NewSSEBroadcaster(logger),
		SysOpBroadcaster: messaging.NewSysOpBroadcaster(tenantManager, cacheManager),
	}
}

// policyConfigFromEnv materializes the engine tunables from the process
// environment exactly once.
func policyConfigFromEnv() monetization.PolicyConfig {
	return monetization.PolicyConfig{
		ReadinessThreshold:      config.ReadinessThreshold,
		ReadinessBaseScore:      config.ReadinessBaseScore,
		ReadinessPositiveWeight: config.ReadinessPositiveWeight,
		ReadinessNegativeWeight: config.ReadinessNegativeWeight,
		ReadinessDecayAfter:     config.ReadinessDecayAfter,
		EnvelopeValidity:        config.EnvelopeValidity,
		RejectionCooldown:       config.RejectionCooldown,
		MaxAttemptsPerSession:   config.MaxAttemptsPerSession,
		BlockingEmotionalStates: monetization.ParseBlockingStates(config.BlockingEmotionalStates),
	}
}
