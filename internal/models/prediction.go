package models

import "time"

// Prediction labels.
const (
	LabelNonDiabetic = 0
	LabelDiabetic    = 1
)

// Prediction stores the classifier output for a patient.
type Prediction struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	PatientID  uint      `json:"patient_id" gorm:"not null;index"`
	Result     int       `json:"result" gorm:"not null;check:chk_predictions_result,result IN (0, 1)"`
	Confidence float64   `json:"confidence" gorm:"check:chk_predictions_confidence,confidence >= 0 AND confidence <= 100"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName pins the table name used by the schema.
func (Prediction) TableName() string { return "predictions" }

// ResultText returns the patient result text for a prediction label.
func ResultText(label int) string {
	if label == LabelDiabetic {
		return ResultDiabetic
	}
	return ResultNonDiabetic
}

// All returns every model managed by the schema, parents first.
func All() []any {
	return []any{&Doctor{}, &Patient{}, &Prediction{}}
}
