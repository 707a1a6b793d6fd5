// Package token issues and verifies the signed session tokens PassVault
// hands to authenticated users. Tokens are stateless HS256 JWTs; the only
// server-side state is an optional revocation list consulted by the session
// layer, not here.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Lifetime is the fixed session token lifetime.
const Lifetime = 7 * 24 * time.Hour

// ErrInvalidToken is returned for any token that cannot be trusted: bad
// signature, wrong algorithm, malformed payload, or past expiry. Callers
// treat all of these as "no session"; the distinction is diagnostic only.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the identity claims embedded in a session token.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim parsed as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}

// Service signs and verifies session tokens with a process-wide secret.
type Service struct {
	secret []byte
}

// NewService creates a token Service keyed by the signing secret.
func NewService(secret []byte) *Service {
	return &Service{secret: secret}
}

// Issue creates a signed token for the given user, valid for Lifetime.
// The jti claim uniquely identifies the token for revocation.
func (s *Service) Issue(userID uuid.UUID, name, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token and returns its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RemainingLife reports how long until the claims expire. Zero or negative
// means already expired.
func (c *Claims) RemainingLife(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}
