// Package identity talks to the hosted identity provider: password sign-up and
// sign-in, and resolving bearer tokens to a user.
package identity

import (
	"context"
	"errors"
	"fmt"

	"finance/internal/models"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier resolves an access token to the identity it was issued for.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

// Provider performs the password flows of the identity provider.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*models.SignUpResponse, error)
	SignIn(ctx context.Context, email, password string) (*models.SignInResponse, error)
}

// ProviderError is a request the provider answered with a non-2xx status.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider returned %d: %s", e.Status, e.Message)
}

// Rejected reports whether the provider refused the request itself, as
// opposed to failing to process it.
func (e *ProviderError) Rejected() bool {
	return e.Status >= 400 && e.Status < 500
}
