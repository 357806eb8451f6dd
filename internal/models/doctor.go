package models

import "time"

// Doctor defines the structure for doctor accounts. A doctor exclusively owns
// its patients; deleting the doctor deletes them and their predictions.
type Doctor struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"size:50;not null;uniqueIndex"`
	Password  string    `json:"-" gorm:"size:255;not null"`
	Email     string    `json:"email" gorm:"size:100;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`

	Patients []Patient `json:"patients,omitempty" gorm:"foreignKey:DoctorID;constraint:OnDelete:CASCADE"`
}

// TableName pins the table name used by the schema.
func (Doctor) TableName() string { return "doctors" }
