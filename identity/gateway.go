// Package identity talks to the external identity provider that owns
// credentials. The rest of the service only sees the Gateway interface.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrInvalidToken       = errors.New("identity: invalid or expired token")
	ErrUnavailable        = errors.New("identity: provider unavailable")
	ErrNotFound           = errors.New("identity: user not found")
)

// RejectedError is the provider refusing a request it understood, e.g. a
// duplicate email or a weak password on signup.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("identity: rejected (%d): %s", e.Status, e.Message)
}

type Session struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}

type Gateway interface {
	// CreateIdentity registers a confirmed user and returns its id.
	CreateIdentity(ctx context.Context, email, password string, metadata map[string]any) (string, error)
	DeleteIdentity(ctx context.Context, id string) error
	Authenticate(ctx context.Context, email, password string) (*Session, error)
	// ResolveToken maps a bearer token to the user id it was issued for.
	ResolveToken(ctx context.Context, token string) (string, error)
}
