// Package apperrors defines the error taxonomy shared by the patient pipeline
// and the HTTP layer.
package apperrors

import (
	"errors"
	"net/http"
)

// Sentinel errors. Concrete errors wrap one of these so callers can use errors.Is.
var (
	// ErrValidation marks bad input. Nothing is predicted or persisted.
	ErrValidation = errors.New("validation error")
	// ErrPredictionUnavailable marks a missing model or a failed inference.
	ErrPredictionUnavailable = errors.New("prediction unavailable")
	// ErrPersistence marks a failed, rolled back transaction.
	ErrPersistence = errors.New("persistence error")
	// ErrUnauthorized marks a missing or invalid authenticated doctor.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound marks a row that does not exist for the requesting doctor.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a unique constraint clash (username, email).
	ErrConflict = errors.New("conflict")
)

// Retryable reports whether the user may submit the same request again.
// Only persistence failures qualify; a rolled back transaction left nothing
// behind.
func Retryable(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
