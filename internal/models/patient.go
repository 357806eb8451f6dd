package models

import "time"

// Result texts stored on a patient. They are frozen at creation time and are
// what the dashboard filters on.
const (
	ResultDiabetic        = "Diabétique"
	ResultNonDiabetic     = "Non diabétique"
	ResultPredictionError = "Erreur de prédiction"
)

// Accepted values for Patient.Sex.
var Sexes = []string{"M", "F", "Homme", "Femme"}

// Patient defines the structure for patient records.
type Patient struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	DoctorID      uint      `json:"doctor_id" gorm:"not null;index"`
	Name          string    `json:"name" gorm:"size:100;not null"`
	Age           int       `json:"age" gorm:"not null;check:chk_patients_age,age >= 0 AND age <= 150"`
	Sex           string    `json:"sex" gorm:"size:10;not null;check:chk_patients_sex,sex IN ('M', 'F', 'Homme', 'Femme')"`
	Glucose       float64   `json:"glucose" gorm:"check:chk_patients_glucose,glucose >= 0"`
	BMI           float64   `json:"bmi" gorm:"column:bmi;check:chk_patients_bmi,bmi >= 0 AND bmi <= 100"`
	BloodPressure float64   `json:"blood_pressure" gorm:"check:chk_patients_blood_pressure,blood_pressure >= 0"`
	Pedigree      float64   `json:"pedigree" gorm:"check:chk_patients_pedigree,pedigree >= 0"`
	Result        string    `json:"result" gorm:"size:50;index"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`

	Predictions []Prediction `json:"predictions,omitempty" gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
}

// TableName pins the table name used by the schema.
func (Patient) TableName() string { return "patients" }

// IsDiabetic reports whether the stored result marks the patient as diabetic.
func (p Patient) IsDiabetic() bool { return p.Result == ResultDiabetic }
