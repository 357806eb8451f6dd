// Package repository persists doctors, patients and predictions.
package repository

import (
	"context"
	"fmt"

	"diabcare/internal/apperrors"
	"diabcare/internal/database"
	"diabcare/internal/models"
	"diabcare/internal/predictor"
	"diabcare/internal/validation"

	"gorm.io/gorm"
)

// PatientRepository writes and queries patients, always scoped to the owning doctor.
type PatientRepository struct {
	db *gorm.DB
}

// NewPatientRepository returns a repository backed by db.
func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// Create inserts the patient and, when the outcome is available, its
// prediction in one transaction. The patient's result text is derived from
// the outcome here and never recomputed. On failure nothing is written and
// the returned error wraps apperrors.ErrPersistence.
func (r *PatientRepository) Create(ctx context.Context, doctorID uint, f validation.Features, outcome predictor.Outcome) (*models.Patient, error) {
	patient := models.Patient{
		DoctorID:      doctorID,
		Name:          f.Name,
		Age:           f.Age,
		Sex:           f.Sex,
		Glucose:       f.Glucose,
		BMI:           f.BMI,
		BloodPressure: f.BloodPressure,
		Pedigree:      f.Pedigree,
		Result:        outcome.ResultText(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Predictions").Create(&patient).Error; err != nil {
			return fmt.Errorf("insert patient: %w", err)
		}
		if !outcome.Available() {
			return nil
		}
		prediction := models.Prediction{
			PatientID:  patient.ID,
			Result:     outcome.Label,
			Confidence: outcome.Confidence,
		}
		if err := tx.Create(&prediction).Error; err != nil {
			return fmt.Errorf("insert prediction: %w", err)
		}
		patient.Predictions = []models.Prediction{prediction}
		return nil
	})
	if err != nil {
		return nil, database.ClassifyError("create patient", err)
	}
	return &patient, nil
}

// Get returns the doctor's patient with its predictions, newest first.
func (r *PatientRepository) Get(ctx context.Context, patientID, doctorID uint) (*models.Patient, error) {
	var patient models.Patient
	err := r.db.WithContext(ctx).
		Preload("Predictions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Where("id = ? AND doctor_id = ?", patientID, doctorID).
		First(&patient).Error
	if err != nil {
		return nil, database.ClassifyError(fmt.Sprintf("find patient %d", patientID), err)
	}
	return &patient, nil
}

// Delete removes the patient identified by (patientID, doctorID). A patient
// owned by another doctor is reported as not found and left untouched. The
// patient's predictions are removed by the foreign key cascade.
func (r *PatientRepository) Delete(ctx context.Context, patientID, doctorID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND doctor_id = ?", patientID, doctorID).
		Delete(&models.Patient{})
	if res.Error != nil {
		return database.ClassifyError(fmt.Sprintf("delete patient %d", patientID), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete patient %d: %w", patientID, apperrors.ErrNotFound)
	}
	return nil
}

// CountPredictions returns how many predictions are stored for a patient.
func (r *PatientRepository) CountPredictions(ctx context.Context, patientID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Prediction{}).Where("patient_id = ?", patientID).Count(&n).Error
	if err != nil {
		return 0, database.ClassifyError("count predictions", err)
	}
	return n, nil
}
