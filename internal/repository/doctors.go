package repository

import (
	"context"
	"fmt"

	"diabcare/internal/apperrors"
	"diabcare/internal/database"
	"diabcare/internal/models"

	"gorm.io/gorm"
)

// DoctorRepository stores doctor accounts.
type DoctorRepository struct {
	db *gorm.DB
}

// NewDoctorRepository returns a repository backed by db.
func NewDoctorRepository(db *gorm.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// Create inserts a doctor. A taken username or email wraps apperrors.ErrConflict.
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	if err := r.db.WithContext(ctx).Omit("Patients").Create(doctor).Error; err != nil {
		return database.ClassifyError("create doctor", err)
	}
	return nil
}

// ByID returns the doctor with id.
func (r *DoctorRepository) ByID(ctx context.Context, id uint) (*models.Doctor, error) {
	return r.first(ctx, "doctor by id", "id = ?", id)
}

// ByUsername returns the doctor with username.
func (r *DoctorRepository) ByUsername(ctx context.Context, username string) (*models.Doctor, error) {
	return r.first(ctx, "doctor by username", "username = ?", username)
}

// ByEmail returns the doctor with email.
func (r *DoctorRepository) ByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	return r.first(ctx, "doctor by email", "email = ?", email)
}

func (r *DoctorRepository) first(ctx context.Context, op, cond string, arg any) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&doctor).Error; err != nil {
		return nil, database.ClassifyError(op, err)
	}
	return &doctor, nil
}

// Delete removes the doctor. Patients and predictions go with it through the
// foreign key cascade.
func (r *DoctorRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Doctor{}, id)
	if res.Error != nil {
		return database.ClassifyError(fmt.Sprintf("delete doctor %d", id), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete doctor %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
