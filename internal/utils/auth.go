package utils

import (
	"fmt"

	"diabcare/internal/apperrors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only looks at the first 72 bytes of a password.
const maxPasswordBytes = 72

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password: must not be empty: %w", apperrors.ErrValidation)
	}
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("password: must be at most %d bytes: %w", maxPasswordBytes, apperrors.ErrValidation)
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// CheckPassword compares a bcrypt hashed password with its possible plaintext equivalent.
// Returns true if the password and hash match, false otherwise.
func CheckPassword(password, hashedPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// dummyHash is compared against when the username is unknown so that a
// failed login costs the same whether or not the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// CheckPasswordOrDummy behaves like CheckPassword but still spends a bcrypt
// comparison when hashedPassword is empty.
func CheckPasswordOrDummy(password, hashedPassword string) bool {
	if hashedPassword == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return CheckPassword(password, hashedPassword)
}
