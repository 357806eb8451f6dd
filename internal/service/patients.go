// Package service sequences the patient pipeline: authorize, validate,
// predict, persist.
package service

import (
	"context"
	"errors"
	"log/slog"

	"diabcare/internal/apperrors"
	"diabcare/internal/auth"
	"diabcare/internal/metrics"
	"diabcare/internal/models"
	"diabcare/internal/predictor"
	"diabcare/internal/repository"
	"diabcare/internal/validation"
)

// PatientStore is the persistence the pipeline needs.
type PatientStore interface {
	Create(ctx context.Context, doctorID uint, f validation.Features, outcome predictor.Outcome) (*models.Patient, error)
	Get(ctx context.Context, patientID, doctorID uint) (*models.Patient, error)
	Delete(ctx context.Context, patientID, doctorID uint) error
	Dashboard(ctx context.Context, doctorID uint, q repository.DashboardQuery) (*repository.Dashboard, error)
}

// Predictor classifies one patient. Arguments follow the model's training order.
type Predictor interface {
	Predict(glucose, bloodPressure, bmi, pedigree float64, age int) predictor.Outcome
}

// RegisterResult is the outcome of registering a patient.
type RegisterResult struct {
	Patient *models.Patient
	Outcome predictor.Outcome
}

// PatientService runs patient operations on behalf of an authenticated doctor.
type PatientService struct {
	store     PatientStore
	predictor Predictor
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewPatientService wires the pipeline. m may be nil.
func NewPatientService(store PatientStore, p Predictor, m *metrics.Metrics, log *slog.Logger) *PatientService {
	if log == nil {
		log = slog.Default()
	}
	return &PatientService{store: store, predictor: p, metrics: m, log: log}
}

// Register validates a raw form submission and registers the patient.
func (s *PatientService) Register(ctx context.Context, p auth.Principal, form validation.PatientForm) (*RegisterResult, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}
	f, err := validation.ParsePatientForm(form)
	if err != nil {
		s.recordValidation(err)
		return nil, err
	}
	return s.register(ctx, p, f)
}

// RegisterFeatures registers a patient from already typed features. They are
// validated again before use.
func (s *PatientService) RegisterFeatures(ctx context.Context, p auth.Principal, f validation.Features) (*RegisterResult, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		s.recordValidation(err)
		return nil, err
	}
	return s.register(ctx, p, f)
}

func (s *PatientService) register(ctx context.Context, p auth.Principal, f validation.Features) (*RegisterResult, error) {
	outcome := s.predictor.Predict(f.Glucose, f.BloodPressure, f.BMI, f.Pedigree, f.Age)
	if outcome.Available() {
		s.metrics.RecordPrediction(outcomeLabel(outcome))
	} else {
		s.metrics.RecordPrediction("unavailable")
		s.log.Warn("prediction unavailable, storing patient without prediction",
			"doctor_id", p.DoctorID, "error", outcome.Err)
	}

	patient, err := s.store.Create(ctx, p.DoctorID, f, outcome)
	if err != nil {
		s.metrics.RecordPersistenceError("create_patient")
		s.log.Error("failed to create patient", "doctor_id", p.DoctorID, "error", err)
		return nil, err
	}

	s.metrics.RecordPatientCreated()
	s.log.Info("patient created",
		"doctor_id", p.DoctorID,
		"patient_id", patient.ID,
		"result", patient.Result,
		"confidence", outcome.Confidence)
	return &RegisterResult{Patient: patient, Outcome: outcome}, nil
}

// Get returns one of the doctor's patients.
func (s *PatientService) Get(ctx context.Context, p auth.Principal, patientID uint) (*models.Patient, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, patientID, p.DoctorID)
}

// Delete removes one of the doctor's patients.
func (s *PatientService) Delete(ctx context.Context, p auth.Principal, patientID uint) error {
	if err := p.Require(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, patientID, p.DoctorID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.metrics.RecordPersistenceError("delete_patient")
			s.log.Error("failed to delete patient", "doctor_id", p.DoctorID, "patient_id", patientID, "error", err)
		}
		return err
	}
	s.metrics.RecordPatientDeleted()
	s.log.Info("patient deleted", "doctor_id", p.DoctorID, "patient_id", patientID)
	return nil
}

// Dashboard lists the doctor's patients with statistics.
func (s *PatientService) Dashboard(ctx context.Context, p auth.Principal, q repository.DashboardQuery) (*repository.Dashboard, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}
	return s.store.Dashboard(ctx, p.DoctorID, q)
}

func (s *PatientService) recordValidation(err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		s.metrics.RecordValidationFailure(verr.Field)
	}
}

func outcomeLabel(o predictor.Outcome) string {
	if o.Label == models.LabelDiabetic {
		return "diabetic"
	}
	return "non_diabetic"
}
