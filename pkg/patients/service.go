package patients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cardioguard/platform/pkg/common/logger"
	"github.com/cardioguard/platform/pkg/common/models"
)

var (
	errMissingName   = errors.New("name required")
	errMissingGender = errors.New("gender required")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register validates and stores a registry entry.
func (s *Service) Register(ctx context.Context, req models.CreatePatientRequest) (*models.Patient, error) {
	patient, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("saving patient: %w", err)
	}
	logger.Log.WithField("gender", patient.Gender).Info("Patient saved")
	return patient, nil
}

func (s *Service) validate(req models.CreatePatientRequest) (*models.Patient, error) {
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, ValidationError{reason: errMissingName}
	}

	var gender string
	switch v := req.Gender.(type) {
	case nil:
		return nil, ValidationError{reason: errMissingGender}
	case string:
		gender = strings.TrimSpace(v)
	case json.Number:
		gender = v.String()
	case float64:
		gender = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return nil, ValidationError{reason: fmt.Errorf("gender: unsupported type %T", v)}
	}
	if gender == "" {
		return nil, ValidationError{reason: errMissingGender}
	}

	return &models.Patient{
		Name:      strings.TrimSpace(*req.Name),
		Gender:    gender,
		CreatedAt: s.now().UTC(),
	}, nil
}
