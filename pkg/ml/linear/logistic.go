package linear

import (
	"errors"
	"fmt"
	"math"
)

type Weights struct {
	Bias         float64   `json:"bias" yaml:"bias"`
	Coefficients []float64 `json:"coefficients" yaml:"coefficients"`
}

func (w Weights) Validate() error {
	if len(w.Coefficients) == 0 {
		return errors.New("no coefficients")
	}
	for i, c := range w.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	if math.IsNaN(w.Bias) || math.IsInf(w.Bias, 0) {
		return errors.New("bias is not finite")
	}
	return nil
}

// Predict returns the probability of the positive class.
func Predict(weights Weights, sample []float64) (float64, error) {
	if len(sample) != len(weights.Coefficients) {
		return 0, fmt.Errorf("sample has %d values, weights expect %d", len(sample), len(weights.Coefficients))
	}
	return sigmoid(dot(weights.Coefficients, sample) + weights.Bias), nil
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
