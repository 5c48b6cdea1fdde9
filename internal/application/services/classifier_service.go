package services

import (
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/classifier"
	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
)

// ClassifierService exposes the signal classifier as an inspection
// endpoint. Detection records nothing: the same message yields the
// same result no matter how often it is submitted.
type ClassifierService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewClassifierService creates a new classifier service singleton
func NewClassifierService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ClassifierService {
	return &ClassifierService{
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// Detect classifies a message without touching any session state.
func (s *ClassifierService) Detect(tenantID, message string) (classifier.Classification, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("classify_message", tenantID)
	defer marker.Complete()

	if message == "" {
		marker.SetSuccess(false)
		return classifier.Classification{}, monetization.ErrMessageBodyRequired
	}

	classification := classifier.Classify(message)

	s.logger.Signal().Debug("Message classified",
		"tenantId", tenantID,
		"financialSignals", len(classification.FinancialSignals),
		"valueSignals", len(classification.ValueSignals),
		"duration", time.Since(start))

	return classification, nil
}
