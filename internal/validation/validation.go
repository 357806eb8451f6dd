// Package validation coerces and range-checks patient vitals before they
// reach the predictor or the store.
package validation

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"diabcare/internal/apperrors"
	"diabcare/internal/models"
)

// Ranges enforced on patient vitals. They match the check constraints on the
// patients table.
const (
	MinAge     = 0
	MaxAge     = 150
	MaxBMI     = 100.0
	MaxNameLen = 100
)

// Error names the offending field of a rejected input.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match any validation failure with errors.Is.
func (e *Error) Unwrap() error { return apperrors.ErrValidation }

func invalid(field, format string, args ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Features is a validated patient record, ready for prediction and storage.
type Features struct {
	Name          string
	Age           int
	Sex           string
	Glucose       float64
	BMI           float64
	BloodPressure float64
	Pedigree      float64
}

// PatientForm carries the raw fields of the patient submission form.
type PatientForm struct {
	Name          string `form:"name"`
	Age           string `form:"age"`
	Sex           string `form:"sex"`
	Glucose       string `form:"glucose"`
	BMI           string `form:"bmi"`
	BloodPressure string `form:"bloodpressure"`
	Pedigree      string `form:"pedigree"`
}

// PatientInput carries a JSON patient submission. Pointer fields detect
// missing values.
type PatientInput struct {
	Name          string   `json:"name"`
	Age           *int     `json:"age"`
	Sex           string   `json:"sex"`
	Glucose       *float64 `json:"glucose"`
	BMI           *float64 `json:"bmi"`
	BloodPressure *float64 `json:"blood_pressure"`
	Pedigree      *float64 `json:"pedigree"`
}

// ParsePatientForm coerces the raw form fields and validates the result.
func ParsePatientForm(form PatientForm) (Features, error) {
	var f Features
	var err error

	f.Name = strings.TrimSpace(form.Name)
	if f.Age, err = parseInt("age", form.Age); err != nil {
		return Features{}, err
	}
	f.Sex = strings.TrimSpace(form.Sex)
	if f.Glucose, err = parseDecimal("glucose", form.Glucose); err != nil {
		return Features{}, err
	}
	if f.BMI, err = parseDecimal("bmi", form.BMI); err != nil {
		return Features{}, err
	}
	if f.BloodPressure, err = parseDecimal("bloodpressure", form.BloodPressure); err != nil {
		return Features{}, err
	}
	if f.Pedigree, err = parseDecimal("pedigree", form.Pedigree); err != nil {
		return Features{}, err
	}

	if err := f.Validate(); err != nil {
		return Features{}, err
	}
	return f, nil
}

// Features converts a JSON submission and validates the result. Errors name
// fields by their JSON keys.
func (in PatientInput) Features() (Features, error) {
	switch {
	case in.Age == nil:
		return Features{}, invalid("age", "is required")
	case in.Glucose == nil:
		return Features{}, invalid("glucose", "is required")
	case in.BMI == nil:
		return Features{}, invalid("bmi", "is required")
	case in.BloodPressure == nil:
		return Features{}, invalid("blood_pressure", "is required")
	case in.Pedigree == nil:
		return Features{}, invalid("pedigree", "is required")
	}

	f := Features{
		Name:          strings.TrimSpace(in.Name),
		Age:           *in.Age,
		Sex:           strings.TrimSpace(in.Sex),
		Glucose:       *in.Glucose,
		BMI:           *in.BMI,
		BloodPressure: *in.BloodPressure,
		Pedigree:      *in.Pedigree,
	}
	if err := f.Validate(); err != nil {
		if verr, ok := err.(*Error); ok && verr.Field == "bloodpressure" {
			verr.Field = "blood_pressure"
		}
		return Features{}, err
	}
	return f, nil
}

// Validate checks an already typed feature set against the accepted ranges.
func (f Features) Validate() error {
	if f.Name == "" {
		return invalid("name", "is required")
	}
	if utf8.RuneCountInString(f.Name) > MaxNameLen {
		return invalid("name", "must be at most %d characters", MaxNameLen)
	}
	if f.Age < MinAge || f.Age > MaxAge {
		return invalid("age", "must be between %d and %d, got %d", MinAge, MaxAge, f.Age)
	}
	if !slices.Contains(models.Sexes, f.Sex) {
		return invalid("sex", "must be one of %s, got %q", strings.Join(models.Sexes, ", "), f.Sex)
	}
	return f.ValidateVitals()
}

// ValidateVitals checks only the values the classifier consumes.
func (f Features) ValidateVitals() error {
	if f.Age < MinAge || f.Age > MaxAge {
		return invalid("age", "must be between %d and %d, got %d", MinAge, MaxAge, f.Age)
	}
	if err := nonNegative("glucose", f.Glucose); err != nil {
		return err
	}
	if err := nonNegative("bmi", f.BMI); err != nil {
		return err
	}
	if f.BMI > MaxBMI {
		return invalid("bmi", "must be at most %g, got %g", MaxBMI, f.BMI)
	}
	if err := nonNegative("bloodpressure", f.BloodPressure); err != nil {
		return err
	}
	return nonNegative("pedigree", f.Pedigree)
}

func parseInt(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid(field, "is required")
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid(field, "must be an integer, got %q", raw)
	}
	return v, nil
}

func parseDecimal(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid(field, "is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid(field, "must be a decimal number, got %q", raw)
	}
	return v, nil
}

func nonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, "must be a finite number")
	}
	if v < 0 {
		return invalid(field, "must not be negative, got %g", v)
	}
	return nil
}
