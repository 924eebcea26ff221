// Package auth resolves bearer tokens to user identities. Token issuance
// and custody are external; this package only asks the identity provider
// who a token belongs to.
package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid authentication token")

// User is the authenticated caller.
type User struct {
	ID    uuid.UUID
	Email string
}

// Verifier resolves a bearer token to a user.
type Verifier interface {
	Verify(ctx context.Context, token string) (User, error)
}
