package predictor

import (
	"fmt"
	"math"
	"strings"

	"github.com/cardioguard/platform/pkg/ml/linear"
)

// Classifier is a pre-fitted binary model. Class 1 is high risk and the
// returned probability is always the probability of class 1.
type Classifier interface {
	Classify(vec []float64) (class int, probHigh float64, err error)
	Dim() int
}

type classifierArtifact struct {
	Model struct {
		Type         string         `yaml:"type"`
		Algorithm    string         `yaml:"algorithm"`
		FeatureNames []string       `yaml:"feature_names"`
		Threshold    *float64       `yaml:"threshold"`
		Weights      linear.Weights `yaml:"weights"`
	} `yaml:"model"`
}

const defaultThreshold = 0.5

type LogisticClassifier struct {
	weights   linear.Weights
	threshold float64
}

func NewLogisticClassifier(weights linear.Weights, threshold float64) (*LogisticClassifier, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(threshold) || threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold %v outside (0, 1)", threshold)
	}
	return &LogisticClassifier{
		weights: linear.Weights{
			Bias:         weights.Bias,
			Coefficients: append([]float64(nil), weights.Coefficients...),
		},
		threshold: threshold,
	}, nil
}

func (c *LogisticClassifier) Dim() int { return len(c.weights.Coefficients) }

func (c *LogisticClassifier) Classify(vec []float64) (int, float64, error) {
	p, err := linear.Predict(c.weights, vec)
	if err != nil {
		return 0, 0, err
	}
	if p >= c.threshold {
		return 1, p, nil
	}
	return 0, p, nil
}

// LoadClassifier reads a classifier artifact and checks it against the feature layout.
func LoadClassifier(path string) (Classifier, error) {
	var artifact classifierArtifact
	if err := readArtifact(path, &artifact); err != nil {
		return nil, err
	}
	def := artifact.Model
	if t := strings.ToLower(def.Type); t != "" && t != "classification" {
		return nil, &ArtifactError{Path: path, Reason: fmt.Sprintf("model type %q is not a classifier", def.Type)}
	}
	if err := checkFeatureNames(path, def.FeatureNames); err != nil {
		return nil, err
	}

	threshold := defaultThreshold
	if def.Threshold != nil {
		threshold = *def.Threshold
	}

	var classifier Classifier
	switch strings.ToLower(def.Algorithm) {
	case "logistic_regression", "logistic":
		c, err := NewLogisticClassifier(def.Weights, threshold)
		if err != nil {
			return nil, &ArtifactError{Path: path, Reason: "invalid weights", Err: err}
		}
		classifier = c
	default:
		return nil, &ArtifactError{Path: path, Reason: fmt.Sprintf("unsupported model algorithm %q", def.Algorithm)}
	}
	if err := checkDim(path, "classifier", classifier.Dim()); err != nil {
		return nil, err
	}
	return classifier, nil
}
