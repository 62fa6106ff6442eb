package serving

import (
	"context"
	"errors"
	"sync"

	"github.com/cardioguard/platform/pkg/common/models"
	"github.com/cardioguard/platform/pkg/features"
	"github.com/cardioguard/platform/pkg/serving/predictor"
)

// fixturePredictor resolves a fixed classifier outcome through the real
// risk resolver and remembers the vector it was given.
type fixturePredictor struct {
	class int
	prob  float64
	err   error

	mu   sync.Mutex
	seen []features.Vector
}

func (f *fixturePredictor) Predict(vec features.Vector) (predictor.Outcome, error) {
	f.mu.Lock()
	f.seen = append(f.seen, vec)
	f.mu.Unlock()
	if f.err != nil {
		return predictor.Outcome{}, f.err
	}
	risk, confidence, err := predictor.Resolve(f.class, f.prob)
	if err != nil {
		return predictor.Outcome{}, err
	}
	return predictor.Outcome{Class: f.class, ProbHigh: f.prob, Risk: risk, Confidence: confidence}, nil
}

// memoryLog is an in-process PredictionLog.
type memoryLog struct {
	mu        sync.Mutex
	records   []models.PredictionRecord
	appendErr error
	listErr   error
	lists     int
}

func (m *memoryLog) Append(ctx context.Context, record *models.PredictionRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *record)
	return nil
}

func (m *memoryLog) List(ctx context.Context) ([]models.PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.PredictionRecord, len(m.records))
	for i := range m.records {
		out[len(m.records)-1-i] = m.records[i]
	}
	return out, nil
}

func (m *memoryLog) snapshot() []models.PredictionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PredictionRecord(nil), m.records...)
}

var errStoreDown = errors.New("store unreachable")

func canonicalRequest() models.PredictRequest {
	return models.PredictRequest{
		Patient: map[string]interface{}{"age": 63, "gender": 1},
		Medical: map[string]interface{}{
			"heart_rate":   72,
			"systolic_bp":  145,
			"diastolic_bp": 90,
			"blood_sugar":  110,
			"ck_mb":        5.2,
			"troponin":     0.15,
		},
	}
}
