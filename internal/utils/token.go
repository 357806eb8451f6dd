package utils

import (
	"errors"
	"fmt"
	"time"

	"diabcare/internal/apperrors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the bearer token claims. The subject is the doctor's username.
type Claims struct {
	DoctorID uint `json:"doctor_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer signing with secret. Tokens expire after ttl.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a signed token for the doctor and returns it with its expiry.
func (i *TokenIssuer) Issue(doctorID uint, username string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		DoctorID: doctorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a token and returns its claims. Every failure wraps
// apperrors.ErrUnauthorized.
func (i *TokenIssuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w: %w", apperrors.ErrUnauthorized, err)
	}
	if claims.Subject == "" || claims.DoctorID == 0 {
		return nil, fmt.Errorf("invalid token: %w: %w", apperrors.ErrUnauthorized, errors.New("missing subject"))
	}
	return claims, nil
}
