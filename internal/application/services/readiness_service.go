// Package services provides application-level services that orchestrate
// business logic and coordinate between repositories and domain entities.
package services

import (
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
)

// ReadinessService aggregates a session's signal log into a readiness
// score and a sensitivity flag. Pure over its inputs: it reads nothing
// but the signals handed to it.
type ReadinessService struct {
	config monetization.PolicyConfig
	logger *logging.ChanneledLogger
}

// NewReadinessService creates a new readiness scorer singleton
func NewReadinessService(config monetization.PolicyConfig, logger *logging.ChanneledLogger) *ReadinessService {
	return &ReadinessService{
		config: config,
		logger: logger,
	}
}

// Score computes readiness and sensitivity from a chronological signal log.
//
// Readiness starts from the configured base, gains the positive weight
// per positive value or financial signal and loses the negative weight
// per negative one, clamped to [0,1]. Signals older than the decay
// window count at half weight. The scorer is monotone: a positive
// signal never lowers the score and a negative one never raises it.
//
// Sensitivity is independent of readiness and overrides it: an
// unreversed explicit refusal blocks permanently, and a most-recent
// emotional state in the blocking set blocks while it stays current.
func (s *ReadinessService) Score(signals []*monetization.Signal, now time.Time) monetization.Readiness {
	start := time.Now()

	score := s.config.ReadinessBaseScore
	refused := false
	var lastEmotionalState string
	var lastSignalAt *time.Time

	for _, signal := range signals {
		recordedAt := signal.RecordedAt
		lastSignalAt = &recordedAt

		weightFactor := 1.0
		if s.config.ReadinessDecayAfter > 0 && now.Sub(signal.RecordedAt) > s.config.ReadinessDecayAfter {
			weightFactor = 0.5
		}

		switch signal.Type {
		case monetization.SignalValuePerceived, monetization.SignalValueDoubted,
			monetization.SignalFinancialDistress, monetization.SignalFinancialCapacity:
			switch signal.Indicator {
			case monetization.IndicatorPositive:
				score += s.config.ReadinessPositiveWeight * weightFactor
			case monetization.IndicatorNegative:
				score -= s.config.ReadinessNegativeWeight * weightFactor
			}
		case monetization.SignalEmotionalState:
			lastEmotionalState = signal.Context
		case monetization.SignalExplicitRefusal:
			refused = true
		case monetization.SignalRefusalReversal:
			// Clears only the refusal flag; a blocking emotional state
			// recorded before the reversal still blocks.
			refused = false
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	readiness := monetization.Readiness{
		Score:        score,
		LastSignalAt: lastSignalAt,
	}

	switch {
	case refused:
		readiness.SensitivityBlocked = true
		readiness.BlockingReason = "explicit_refusal"
	case lastEmotionalState != "" && s.config.IsBlockingState(lastEmotionalState):
		readiness.SensitivityBlocked = true
		readiness.BlockingReason = "emotional_state:" + lastEmotionalState
	}

	s.logger.Policy().Debug("Readiness scored",
		"score", readiness.Score,
		"sensitivityBlocked", readiness.SensitivityBlocked,
		"blockingReason", readiness.BlockingReason,
		"signalCount", len(signals),
		"duration", time.Since(start))

	return readiness
}
