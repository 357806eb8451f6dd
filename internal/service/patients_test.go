package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"diabcare/internal/apperrors"
	"diabcare/internal/auth"
	"diabcare/internal/database/dbtest"
	"diabcare/internal/metrics"
	"diabcare/internal/models"
	"diabcare/internal/predictor"
	"diabcare/internal/repository"
	"diabcare/internal/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockPredictor struct {
	mock.Mock
}

func (m *mockPredictor) Predict(glucose, bloodPressure, bmi, pedigree float64, age int) predictor.Outcome {
	args := m.Called(glucose, bloodPressure, bmi, pedigree, age)
	return args.Get(0).(predictor.Outcome)
}

type failingStore struct {
	PatientStore
	err error
}

func (s failingStore) Create(context.Context, uint, validation.Features, predictor.Outcome) (*models.Patient, error) {
	return nil, s.err
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func form() validation.PatientForm {
	return validation.PatientForm{
		Name: "Marie", Age: "50", Sex: "F",
		Glucose: "148", BMI: "33.6", BloodPressure: "72", Pedigree: "0.627",
	}
}

type env struct {
	db      *gorm.DB
	svc     *PatientService
	pred    *mockPredictor
	doctor  auth.Principal
	metrics *metrics.Metrics
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.NewSQLite(t)
	doc := models.Doctor{Username: "house", Email: "house@example.org", Password: "x"}
	require.NoError(t, db.Create(&doc).Error)

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	pred := &mockPredictor{}
	return &env{
		db:      db,
		svc:     NewPatientService(repository.NewPatientRepository(db), pred, m, quietLogger()),
		pred:    pred,
		doctor:  auth.Principal{DoctorID: doc.ID, Username: doc.Username},
		metrics: m,
	}
}

func (e *env) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func TestRegisterPassesFeaturesInTrainingOrder(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.pred.On("Predict", 148.0, 72.0, 33.6, 0.627, 50).
		Return(predictor.Outcome{Status: predictor.Available, Label: 1, Confidence: 66.6}).Once()

	res, err := e.svc.Register(context.Background(), e.doctor, form())
	require.NoError(t, err)
	e.pred.AssertExpectations(t)

	assert.Equal(t, models.ResultDiabetic, res.Patient.Result)
	assert.True(t, res.Outcome.Available())
	require.Len(t, res.Patient.Predictions, 1)
	assert.Equal(t, 1, res.Patient.Predictions[0].Result)
	assert.EqualValues(t, 1, e.count(t, &models.Patient{}))
	assert.EqualValues(t, 1, e.count(t, &models.Prediction{}))
}

func TestRegisterDegradesWhenPredictionUnavailable(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.pred.On("Predict", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(predictor.UnavailableOutcome(errors.New("model missing")))

	res, err := e.svc.Register(context.Background(), e.doctor, form())
	require.NoError(t, err)
	assert.False(t, res.Outcome.Available())
	assert.ErrorIs(t, res.Outcome.Err, apperrors.ErrPredictionUnavailable)
	assert.Equal(t, models.ResultPredictionError, res.Patient.Result)

	assert.EqualValues(t, 1, e.count(t, &models.Patient{}))
	assert.EqualValues(t, 0, e.count(t, &models.Prediction{}))
}

func TestRegisterWithUnloadedAdapter(t *testing.T) {
	t.Parallel()
	db := dbtest.NewSQLite(t)
	doc := models.Doctor{Username: "house", Email: "house@example.org", Password: "x"}
	require.NoError(t, db.Create(&doc).Error)

	svc := NewPatientService(repository.NewPatientRepository(db), predictor.New(nil, errors.New("no file")), nil, quietLogger())
	res, err := svc.Register(context.Background(), auth.Principal{DoctorID: doc.ID}, form())
	require.NoError(t, err)
	assert.Equal(t, models.ResultPredictionError, res.Patient.Result)
}

func TestRegisterRejectsInvalidInputBeforePredicting(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	bad := form()
	bad.BMI = "120"
	_, err := e.svc.Register(context.Background(), e.doctor, bad)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bmi", verr.Field)

	e.pred.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.EqualValues(t, 0, e.count(t, &models.Patient{}))

	_, err = e.svc.RegisterFeatures(context.Background(), e.doctor, validation.Features{Name: "X", Age: -3, Sex: "M"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	e.pred.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOperationsRequireAuthenticatedDoctor(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	anon := auth.Principal{}

	_, err := e.svc.Register(ctx, anon, form())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = e.svc.RegisterFeatures(ctx, anon, validation.Features{})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = e.svc.Dashboard(ctx, anon, repository.DashboardQuery{})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = e.svc.Get(ctx, anon, 1)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.ErrorIs(t, e.svc.Delete(ctx, anon, 1), apperrors.ErrUnauthorized)

	e.pred.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterSurfacesPersistenceErrors(t *testing.T) {
	t.Parallel()

	pred := &mockPredictor{}
	pred.On("Predict", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(predictor.Outcome{Status: predictor.Available, Label: 0, Confidence: 90})

	storeErr := fmt.Errorf("commit: %w", apperrors.ErrPersistence)
	svc := NewPatientService(failingStore{err: storeErr}, pred, nil, quietLogger())

	_, err := svc.Register(context.Background(), auth.Principal{DoctorID: 1}, form())
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.True(t, apperrors.Retryable(err))
}

func TestDeleteAndDashboard(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	e.pred.On("Predict", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(predictor.Outcome{Status: predictor.Available, Label: 0, Confidence: 90})

	res, err := e.svc.Register(ctx, e.doctor, form())
	require.NoError(t, err)

	got, err := e.svc.Get(ctx, e.doctor, res.Patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "Marie", got.Name)

	d, err := e.svc.Dashboard(ctx, e.doctor, repository.DashboardQuery{Filter: repository.FilterNonDiabetic})
	require.NoError(t, err)
	assert.Len(t, d.Patients, 1)

	intruder := auth.Principal{DoctorID: e.doctor.DoctorID + 1}
	assert.ErrorIs(t, e.svc.Delete(ctx, intruder, res.Patient.ID), apperrors.ErrNotFound)

	require.NoError(t, e.svc.Delete(ctx, e.doctor, res.Patient.ID))
	assert.EqualValues(t, 0, e.count(t, &models.Patient{}))
	assert.EqualValues(t, 0, e.count(t, &models.Prediction{}))
}
