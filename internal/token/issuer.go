// Package token issues the single-use gate tokens printed on reservation
// confirmations. Tokens are unguessable and globally unique across all
// reservations.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrExhausted means generation kept colliding with stored tokens. Six
// collisions in a row points at broken entropy or a broken store, so the
// caller treats this as fatal.
var ErrExhausted = errors.New("token generation attempts exhausted")

const maxAttempts = 6

// Checker reports whether a token value is already held by a reservation.
// The check is best effort: the reservations table still carries a unique
// index, and commit-time violations are handled by the creation retry loop.
type Checker interface {
	TokenExists(ctx context.Context, token string) (bool, error)
}

type Issuer struct {
	checker  Checker
	generate func() (string, error)
}

func NewIssuer(checker Checker) *Issuer {
	return &Issuer{checker: checker, generate: generateToken}
}

// Issue returns a fresh token not currently held by any reservation,
// retrying generation up to six times on collision.
func (i *Issuer) Issue(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		t, err := i.generate()
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		exists, err := i.checker.TokenExists(ctx, t)
		if err != nil {
			return "", fmt.Errorf("check token uniqueness: %w", err)
		}
		if !exists {
			return t, nil
		}
	}
	return "", ErrExhausted
}

// generateToken renders 32 bytes of entropy as a 43 character URL-safe string.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
