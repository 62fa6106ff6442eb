package predictor

import (
	"errors"
	"fmt"
	"math"

	"github.com/cardioguard/platform/pkg/common/models"
)

var (
	ErrInvalidClass       = errors.New("predicted class outside {0, 1}")
	ErrInvalidProbability = errors.New("probability outside [0, 1]")
)

// Resolve maps a classifier outcome to a risk label and a confidence
// percentage. Confidence is always the high-risk probability, so LOW RISK
// at 8 and HIGH RISK at 92 sit on the same scale.
func Resolve(class int, probHigh float64) (models.Risk, float64, error) {
	if class != 0 && class != 1 {
		return "", 0, fmt.Errorf("%w: %d", ErrInvalidClass, class)
	}
	if math.IsNaN(probHigh) || probHigh < 0 || probHigh > 1 {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidProbability, probHigh)
	}

	risk := models.LowRisk
	if class == 1 {
		risk = models.HighRisk
	}
	return risk, roundPercent(probHigh), nil
}

// roundPercent scales p to a percentage rounded half-up to two decimals.
func roundPercent(p float64) float64 {
	return math.Round(p*100*100) / 100
}
