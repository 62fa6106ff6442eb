package predictor

import (
	"fmt"
	"math"
	"strings"
)

// Scaler is a pre-fitted transform applied before classification.
type Scaler interface {
	Transform(vec []float64) ([]float64, error)
	Dim() int
}

type scalerArtifact struct {
	Scaler struct {
		Algorithm    string    `yaml:"algorithm"`
		FeatureNames []string  `yaml:"feature_names"`
		Mean         []float64 `yaml:"mean"`
		Scale        []float64 `yaml:"scale"`
		DataMin      []float64 `yaml:"data_min"`
		DataMax      []float64 `yaml:"data_max"`
	} `yaml:"scaler"`
}

// StandardScaler computes (x - mean) / scale per feature.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) == 0 || len(mean) != len(scale) {
		return nil, fmt.Errorf("mean has %d values, scale has %d", len(mean), len(scale))
	}
	s := &StandardScaler{
		mean:  append([]float64(nil), mean...),
		scale: append([]float64(nil), scale...),
	}
	for i, v := range s.scale {
		if v == 0 {
			s.scale[i] = 1
		}
	}
	return s, nil
}

func (s *StandardScaler) Dim() int { return len(s.mean) }

func (s *StandardScaler) Transform(vec []float64) ([]float64, error) {
	if len(vec) != len(s.mean) {
		return nil, fmt.Errorf("scaler expects %d values, got %d", len(s.mean), len(vec))
	}
	out := make([]float64, len(vec))
	for i, x := range vec {
		out[i] = (x - s.mean[i]) / s.scale[i]
	}
	return out, nil
}

// MinMaxScaler maps each feature's fitted range onto [0, 1].
type MinMaxScaler struct {
	min   []float64
	scale []float64
}

func NewMinMaxScaler(dataMin, dataMax []float64) (*MinMaxScaler, error) {
	if len(dataMin) == 0 || len(dataMin) != len(dataMax) {
		return nil, fmt.Errorf("data_min has %d values, data_max has %d", len(dataMin), len(dataMax))
	}
	s := &MinMaxScaler{
		min:   append([]float64(nil), dataMin...),
		scale: make([]float64, len(dataMin)),
	}
	for i := range dataMin {
		span := dataMax[i] - dataMin[i]
		if span == 0 {
			span = 1
		}
		s.scale[i] = span
	}
	return s, nil
}

func (s *MinMaxScaler) Dim() int { return len(s.min) }

func (s *MinMaxScaler) Transform(vec []float64) ([]float64, error) {
	if len(vec) != len(s.min) {
		return nil, fmt.Errorf("scaler expects %d values, got %d", len(s.min), len(vec))
	}
	out := make([]float64, len(vec))
	for i, x := range vec {
		out[i] = (x - s.min[i]) / s.scale[i]
	}
	return out, nil
}

// LoadScaler reads a scaler artifact and checks it against the feature layout.
func LoadScaler(path string) (Scaler, error) {
	var artifact scalerArtifact
	if err := readArtifact(path, &artifact); err != nil {
		return nil, err
	}
	def := artifact.Scaler
	if err := checkFeatureNames(path, def.FeatureNames); err != nil {
		return nil, err
	}
	for _, params := range [][]float64{def.Mean, def.Scale, def.DataMin, def.DataMax} {
		if err := checkFinite(params); err != nil {
			return nil, &ArtifactError{Path: path, Reason: "invalid parameters", Err: err}
		}
	}

	var (
		scaler Scaler
		err    error
	)
	switch strings.ToLower(def.Algorithm) {
	case "standard", "standard_scaler":
		scaler, err = NewStandardScaler(def.Mean, def.Scale)
	case "minmax", "min_max", "minmax_scaler":
		scaler, err = NewMinMaxScaler(def.DataMin, def.DataMax)
	default:
		return nil, &ArtifactError{Path: path, Reason: fmt.Sprintf("unsupported scaler algorithm %q", def.Algorithm)}
	}
	if err != nil {
		return nil, &ArtifactError{Path: path, Reason: "invalid parameters", Err: err}
	}
	if err := checkDim(path, "scaler", scaler.Dim()); err != nil {
		return nil, err
	}
	return scaler, nil
}

func checkFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("value %d is not finite", i)
		}
	}
	return nil
}
