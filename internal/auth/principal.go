// Package auth holds the authenticated-doctor value threaded into every
// patient operation.
package auth

import (
	"fmt"

	"diabcare/internal/apperrors"
)

// Principal identifies the logged-in doctor. The zero value is anonymous.
type Principal struct {
	DoctorID uint
	Username string
}

// Authenticated reports whether p names a doctor.
func (p Principal) Authenticated() bool { return p.DoctorID != 0 }

// Require returns an error wrapping apperrors.ErrUnauthorized when p is anonymous.
func (p Principal) Require() error {
	if !p.Authenticated() {
		return fmt.Errorf("no authenticated doctor: %w", apperrors.ErrUnauthorized)
	}
	return nil
}
