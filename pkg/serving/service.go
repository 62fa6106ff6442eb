package serving

import (
	"context"
	"fmt"
	"time"

	"github.com/cardioguard/platform/pkg/common/logger"
	"github.com/cardioguard/platform/pkg/common/models"
	"github.com/cardioguard/platform/pkg/features"
	"github.com/cardioguard/platform/pkg/observability/metrics"
	"github.com/cardioguard/platform/pkg/serving/predictor"
	"github.com/sirupsen/logrus"
)

// Inferencer scores a feature vector. *predictor.Predictor implements it.
type Inferencer interface {
	Predict(vec features.Vector) (predictor.Outcome, error)
}

// InferenceError wraps a failure in scaling, classification or risk
// resolution for a well-formed request.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

type Service struct {
	predictor Inferencer
	log       PredictionLog
}

// NewService wires the inference pipeline. log may be nil, in which case
// predictions are not persisted.
func NewService(p Inferencer, log PredictionLog) *Service {
	return &Service{predictor: p, log: log}
}

func (s *Service) Predict(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error) {
	start := time.Now()

	vec, err := features.Build(req.Patient, req.Medical)
	if err != nil {
		metrics.IncInputError()
		return nil, err
	}

	outcome, err := s.predictor.Predict(vec)
	if err != nil {
		metrics.IncInferenceError()
		return nil, &InferenceError{Err: err}
	}
	metrics.ObservePrediction(outcome.Risk)

	if s.log != nil {
		patient, medical := features.Inputs(vec)
		record := &models.PredictionRecord{
			Patient:    patient,
			Medical:    medical,
			Risk:       outcome.Risk,
			Confidence: outcome.Confidence,
		}
		// Persistence is a side effect of inference; never fail the caller on it.
		if err := s.log.Append(ctx, record); err != nil {
			metrics.IncLogAppendFailure()
			logger.Log.WithError(err).WithField("risk", outcome.Risk).Warn("prediction not recorded")
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"risk":       outcome.Risk,
		"confidence": outcome.Confidence,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Info("Prediction completed")

	return &models.PredictResponse{
		Risk:       outcome.Risk,
		Confidence: outcome.Confidence,
	}, nil
}

func (s *Service) History(ctx context.Context) ([]models.PredictionRecord, error) {
	metrics.IncHistoryRead()
	if s.log == nil {
		return []models.PredictionRecord{}, nil
	}
	records, err := s.log.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing predictions: %w", err)
	}
	if records == nil {
		records = []models.PredictionRecord{}
	}
	return records, nil
}
