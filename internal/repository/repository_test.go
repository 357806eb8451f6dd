package repository

import (
	"context"
	"errors"
	"testing"

	"diabcare/internal/apperrors"
	"diabcare/internal/database/dbtest"
	"diabcare/internal/models"
	"diabcare/internal/predictor"
	"diabcare/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	patients *PatientRepository
	doctors  *DoctorRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.NewSQLite(t)
	return &fixture{db: db, patients: NewPatientRepository(db), doctors: NewDoctorRepository(db)}
}

func (f *fixture) doctor(t *testing.T, username string) *models.Doctor {
	t.Helper()
	d := &models.Doctor{Username: username, Email: username + "@example.org", Password: "hash"}
	require.NoError(t, f.doctors.Create(context.Background(), d))
	return d
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func features(name string) validation.Features {
	return validation.Features{
		Name: name, Age: 50, Sex: "F",
		Glucose: 148, BMI: 33.6, BloodPressure: 72, Pedigree: 0.627,
	}
}

func available(label int, confidence float64) predictor.Outcome {
	return predictor.Outcome{Status: predictor.Available, Label: label, Confidence: confidence}
}

func TestCreateWithPrediction(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	doc := f.doctor(t, "house")

	patient, err := f.patients.Create(ctx, doc.ID, features("Ada"), available(1, 72.5))
	require.NoError(t, err)
	require.NotZero(t, patient.ID)
	assert.Equal(t, models.ResultDiabetic, patient.Result)

	assert.EqualValues(t, 1, f.count(t, &models.Patient{}))
	assert.EqualValues(t, 1, f.count(t, &models.Prediction{}))

	stored, err := f.patients.Get(ctx, patient.ID, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored.Predictions, 1)
	assert.Equal(t, 1, stored.Predictions[0].Result)
	assert.InDelta(t, 72.5, stored.Predictions[0].Confidence, 1e-9)
	assert.Equal(t, models.ResultText(stored.Predictions[0].Result), stored.Result)
	assert.Equal(t, 148.0, stored.Glucose)
	assert.Equal(t, 72.0, stored.BloodPressure)

	n, err := f.patients.CountPredictions(ctx, patient.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCreateNonDiabeticResultText(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	doc := f.doctor(t, "house")

	patient, err := f.patients.Create(context.Background(), doc.ID, features("Bob"), available(0, 91))
	require.NoError(t, err)
	assert.Equal(t, models.ResultNonDiabetic, patient.Result)
	require.Len(t, patient.Predictions, 1)
	assert.Equal(t, 0, patient.Predictions[0].Result)
}

func TestCreateWithoutPrediction(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	doc := f.doctor(t, "house")

	outcome := predictor.UnavailableOutcome(errors.New("model missing"))
	patient, err := f.patients.Create(context.Background(), doc.ID, features("Eve"), outcome)
	require.NoError(t, err)
	assert.Equal(t, models.ResultPredictionError, patient.Result)
	assert.Empty(t, patient.Predictions)

	assert.EqualValues(t, 1, f.count(t, &models.Patient{}))
	assert.EqualValues(t, 0, f.count(t, &models.Prediction{}))
}

func TestCreateRollsBackWhenPredictionInsertFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	doc := f.doctor(t, "house")

	// Label 7 violates the predictions check constraint after the patient
	// row has been inserted.
	_, err := f.patients.Create(context.Background(), doc.ID, features("Zed"), available(7, 50))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.True(t, apperrors.Retryable(err))

	assert.EqualValues(t, 0, f.count(t, &models.Patient{}))
	assert.EqualValues(t, 0, f.count(t, &models.Prediction{}))
}

func TestCreateForUnknownDoctorFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.patients.Create(context.Background(), 4242, features("Orphan"), available(1, 60))
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.EqualValues(t, 0, f.count(t, &models.Patient{}))
}

func TestCreateHonorsCancelledContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	doc := f.doctor(t, "house")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.patients.Create(ctx, doc.ID, features("Late"), available(1, 60))
	assert.Error(t, err)
	assert.EqualValues(t, 0, f.count(t, &models.Patient{}))
}

func TestDeleteCascadesPredictions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	doc := f.doctor(t, "house")

	p, err := f.patients.Create(ctx, doc.ID, features("Ada"), available(1, 80))
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.Prediction{PatientID: p.ID, Result: 1, Confidence: 81}).Error)

	require.NoError(t, f.patients.Delete(ctx, p.ID, doc.ID))
	assert.EqualValues(t, 0, f.count(t, &models.Patient{}))
	assert.EqualValues(t, 0, f.count(t, &models.Prediction{}))

	err = f.patients.Delete(ctx, p.ID, doc.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteIsScopedToOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := f.doctor(t, "house")
	other := f.doctor(t, "wilson")

	p, err := f.patients.Create(ctx, owner.ID, features("Ada"), available(1, 80))
	require.NoError(t, err)

	err = f.patients.Delete(ctx, p.ID, other.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.patients.Get(ctx, p.ID, other.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.EqualValues(t, 1, f.count(t, &models.Patient{}))
	assert.EqualValues(t, 1, f.count(t, &models.Prediction{}))
}

func TestDeleteDoctorCascades(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	doomed := f.doctor(t, "house")
	keeper := f.doctor(t, "wilson")

	for _, name := range []string{"A", "B", "C"} {
		_, err := f.patients.Create(ctx, doomed.ID, features(name), available(1, 70))
		require.NoError(t, err)
	}
	_, err := f.patients.Create(ctx, keeper.ID, features("D"), available(0, 70))
	require.NoError(t, err)

	require.NoError(t, f.doctors.Delete(ctx, doomed.ID))

	assert.EqualValues(t, 1, f.count(t, &models.Doctor{}))
	assert.EqualValues(t, 1, f.count(t, &models.Patient{}))
	assert.EqualValues(t, 1, f.count(t, &models.Prediction{}))

	assert.ErrorIs(t, f.doctors.Delete(ctx, doomed.ID), apperrors.ErrNotFound)
}

func TestDoctorLookupsAndConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	doc := f.doctor(t, "house")

	got, err := f.doctors.ByUsername(ctx, "house")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	got, err = f.doctors.ByEmail(ctx, "house@example.org")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	got, err = f.doctors.ByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "house", got.Username)

	_, err = f.doctors.ByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = f.doctors.Create(ctx, &models.Doctor{Username: "house", Email: "other@example.org", Password: "x"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	err = f.doctors.Create(ctx, &models.Doctor{Username: "other", Email: "house@example.org", Password: "x"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestDashboard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	doc := f.doctor(t, "house")
	other := f.doctor(t, "wilson")

	seed := []struct {
		name    string
		age     int
		outcome predictor.Outcome
	}{
		{"Charlie", 30, available(0, 80)},
		{"Alice", 70, available(1, 90)},
		{"Bob", 45, available(0, 60)},
		{"Dana", 55, available(0, 75)},
	}
	for _, s := range seed {
		fs := features(s.name)
		fs.Age = s.age
		_, err := f.patients.Create(ctx, doc.ID, fs, s.outcome)
		require.NoError(t, err)
	}
	_, err := f.patients.Create(ctx, other.ID, features("Foreign"), available(1, 99))
	require.NoError(t, err)

	names := func(d *Dashboard) []string {
		out := make([]string, len(d.Patients))
		for i, p := range d.Patients {
			out[i] = p.Name
		}
		return out
	}

	t.Run("default is newest first over all", func(t *testing.T) {
		d, err := f.patients.Dashboard(ctx, doc.ID, DashboardQuery{})
		require.NoError(t, err)
		assert.Equal(t, FilterAll, d.Filter)
		assert.Equal(t, SortCreatedAt, d.Sort)
		assert.Equal(t, []string{"Dana", "Bob", "Alice", "Charlie"}, names(d))
		assert.Equal(t, 4, d.Stats.Total)
		assert.Equal(t, 1, d.Stats.Diabetic)
		assert.Equal(t, 3, d.Stats.NonDiabetic)
		assert.Equal(t, 25.0, d.Stats.DiabeticPercentage)
	})

	t.Run("sort by name", func(t *testing.T) {
		d, err := f.patients.Dashboard(ctx, doc.ID, DashboardQuery{Sort: SortName})
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice", "Bob", "Charlie", "Dana"}, names(d))
	})

	t.Run("sort by age descending", func(t *testing.T) {
		d, err := f.patients.Dashboard(ctx, doc.ID, DashboardQuery{Sort: SortAge})
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice", "Dana", "Bob", "Charlie"}, names(d))
	})

	t.Run("sort by result", func(t *testing.T) {
		d, err := f.patients.Dashboard(ctx, doc.ID, DashboardQuery{Sort: SortResult})
		require.NoError(t, err)
		assert.Equal(t, "Alice", names(d)[0])
	})

	t.Run("diabetic filter", func(t *testing.T) {
		d, err := f.patients.Dashboard(ctx, doc.ID, DashboardQuery{Filter: FilterDiabetic})
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice"}, names(d))
		assert.Equal(t, 100.0, d.Stats.DiabeticPercentage)
	})

	t.Run("non diabetic filter", func(t *testing.T) {
		d, err := f.patients.Dashboard(ctx, doc.ID, DashboardQuery{Filter: FilterNonDiabetic})
		require.NoError(t, err)
		assert.Len(t, d.Patients, 3)
		assert.Equal(t, 0.0, d.Stats.DiabeticPercentage)
	})

	t.Run("unknown values fall back", func(t *testing.T) {
		d, err := f.patients.Dashboard(ctx, doc.ID, DashboardQuery{Filter: "weird", Sort: "drop table"})
		require.NoError(t, err)
		assert.Equal(t, FilterAll, d.Filter)
		assert.Equal(t, SortCreatedAt, d.Sort)
		assert.Len(t, d.Patients, 4)
	})

	t.Run("empty set", func(t *testing.T) {
		lonely := f.doctor(t, "cuddy")
		d, err := f.patients.Dashboard(ctx, lonely.ID, DashboardQuery{})
		require.NoError(t, err)
		assert.Empty(t, d.Patients)
		assert.NotNil(t, d.Patients)
		assert.Equal(t, 0, d.Stats.Total)
		assert.Equal(t, 0.0, d.Stats.DiabeticPercentage)
	})
}
