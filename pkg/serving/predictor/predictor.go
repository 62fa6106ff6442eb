package predictor

import (
	"fmt"

	"github.com/cardioguard/platform/pkg/common/models"
	"github.com/cardioguard/platform/pkg/features"
)

// Outcome is the resolved result of one inference.
type Outcome struct {
	Class      int
	ProbHigh   float64
	Risk       models.Risk
	Confidence float64
}

// Predictor runs Scale -> Classify -> Resolve over shared, read-only artifacts.
// It holds no mutable state and is safe for concurrent use.
type Predictor struct {
	scaler     Scaler
	classifier Classifier
}

func NewPredictor(scaler Scaler, classifier Classifier) (*Predictor, error) {
	if scaler == nil || classifier == nil {
		return nil, &ArtifactError{Reason: "scaler and classifier are required"}
	}
	if err := checkDim("", "scaler", scaler.Dim()); err != nil {
		return nil, err
	}
	if err := checkDim("", "classifier", classifier.Dim()); err != nil {
		return nil, err
	}
	return &Predictor{scaler: scaler, classifier: classifier}, nil
}

// Load reads both artifacts from disk. Any failure is an *ArtifactError.
func Load(scalerPath, modelPath string) (*Predictor, error) {
	scaler, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, err
	}
	classifier, err := LoadClassifier(modelPath)
	if err != nil {
		return nil, err
	}
	return NewPredictor(scaler, classifier)
}

func (p *Predictor) Predict(vec features.Vector) (Outcome, error) {
	scaled, err := p.scaler.Transform(vec.Slice())
	if err != nil {
		return Outcome{}, fmt.Errorf("scaling features: %w", err)
	}

	class, probHigh, err := p.classifier.Classify(scaled)
	if err != nil {
		return Outcome{}, fmt.Errorf("classifying features: %w", err)
	}

	risk, confidence, err := Resolve(class, probHigh)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolving risk: %w", err)
	}

	return Outcome{
		Class:      class,
		ProbHigh:   probHigh,
		Risk:       risk,
		Confidence: confidence,
	}, nil
}
