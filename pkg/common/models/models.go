package models

import (
	"time"
)

// Risk is the human-readable outcome derived from the predicted class.
type Risk string

const (
	HighRisk Risk = "HIGH RISK"
	LowRisk  Risk = "LOW RISK"
)

func (r Risk) Valid() bool {
	return r == HighRisk || r == LowRisk
}

// Inference inputs. Gender is encoded 0 = female, 1 = male.
type PatientInput struct {
	Age    float64 `json:"age" bson:"age"`
	Gender float64 `json:"gender" bson:"gender"`
}

type MedicalInput struct {
	HeartRate   float64 `json:"heart_rate" bson:"heart_rate"`
	SystolicBP  float64 `json:"systolic_bp" bson:"systolic_bp"`
	DiastolicBP float64 `json:"diastolic_bp" bson:"diastolic_bp"`
	BloodSugar  float64 `json:"blood_sugar" bson:"blood_sugar"`
	CKMB        float64 `json:"ck_mb" bson:"ck_mb"`
	Troponin    float64 `json:"troponin" bson:"troponin"`
}

// PredictRequest carries the raw payloads so that absent keys and
// non-numeric values can be told apart from zeros.
type PredictRequest struct {
	Patient map[string]interface{} `json:"patient"`
	Medical map[string]interface{} `json:"medical"`
}

type PredictResponse struct {
	Risk       Risk    `json:"risk"`
	Confidence float64 `json:"confidence"`
}

// PredictionRecord is one entry of the prediction log.
type PredictionRecord struct {
	Patient    PatientInput `json:"patient" bson:"patient"`
	Medical    MedicalInput `json:"medical" bson:"medical"`
	Risk       Risk         `json:"risk" bson:"risk"`
	Confidence float64      `json:"confidence" bson:"confidence"`
	CreatedAt  time.Time    `json:"created_at" bson:"created_at"`
}

// Patient registry
type Patient struct {
	Name      string    `json:"name" bson:"name"`
	Gender    string    `json:"gender" bson:"gender"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type CreatePatientRequest struct {
	Name   *string     `json:"name"`
	Gender interface{} `json:"gender"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
