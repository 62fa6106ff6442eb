package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cardioguard/platform/pkg/common/models"
)

// Size is the length of every feature vector.
const Size = 8

// Names is the column order the scaler and classifier were fitted on.
// Reordering it silently corrupts every prediction.
var Names = [Size]string{
	"age",
	"gender",
	"heart_rate",
	"systolic_bp",
	"diastolic_bp",
	"blood_sugar",
	"ck_mb",
	"troponin",
}

type Vector [Size]float64

func (v Vector) Slice() []float64 {
	out := make([]float64, Size)
	copy(out, v[:])
	return out
}

type field struct {
	section string
	key     string
}

var layout = [Size]field{
	{"patient", "age"},
	{"patient", "gender"},
	{"medical", "heart_rate"},
	{"medical", "systolic_bp"},
	{"medical", "diastolic_bp"},
	{"medical", "blood_sugar"},
	{"medical", "ck_mb"},
	{"medical", "troponin"},
}

type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %s", e.Field)
}

type TypeConversionError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *TypeConversionError) Error() string {
	return fmt.Sprintf("field %s: cannot convert %v (%T) to a number", e.Field, e.Value, e.Value)
}

func (e *TypeConversionError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err was caused by the caller's payload.
func IsInputError(err error) bool {
	var missing *MissingFieldError
	var conversion *TypeConversionError
	return errors.As(err, &missing) || errors.As(err, &conversion)
}

// Build assembles the feature vector in the order of Names.
func Build(patient, medical map[string]interface{}) (Vector, error) {
	var vec Vector
	sections := map[string]map[string]interface{}{
		"patient": patient,
		"medical": medical,
	}

	for i, f := range layout {
		section := sections[f.section]
		if section == nil {
			return Vector{}, &MissingFieldError{Field: f.section}
		}
		name := f.section + "." + f.key
		raw, ok := section[f.key]
		if !ok || raw == nil {
			return Vector{}, &MissingFieldError{Field: name}
		}
		value, err := toFloat(raw)
		if err != nil {
			return Vector{}, &TypeConversionError{Field: name, Value: raw, Err: err}
		}
		vec[i] = value
	}

	return vec, nil
}

// Inputs returns the typed view of a vector built by Build.
func Inputs(vec Vector) (models.PatientInput, models.MedicalInput) {
	patient := models.PatientInput{
		Age:    vec[0],
		Gender: vec[1],
	}
	medical := models.MedicalInput{
		HeartRate:   vec[2],
		SystolicBP:  vec[3],
		DiastolicBP: vec[4],
		BloodSugar:  vec[5],
		CKMB:        vec[6],
		Troponin:    vec[7],
	}
	return patient, medical
}

func toFloat(value interface{}) (float64, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("value is not finite")
	}
	return f, nil
}
