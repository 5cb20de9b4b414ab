package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"finance/internal/identity"
	"finance/internal/models"

	"go.uber.org/zap"
)

// AuthService delegates sign-up, sign-in and token checks to the identity
// provider. Sign-up is refused while registration is disabled.
type AuthService struct {
	provider     identity.Provider
	verifier     identity.Verifier
	registration *RegistrationService
	logger       *zap.Logger
}

func NewAuthService(provider identity.Provider, verifier identity.Verifier, registration *RegistrationService, logger *zap.Logger) *AuthService {
	return &AuthService{
		provider:     provider,
		verifier:     verifier,
		registration: registration,
		logger:       logger,
	}
}

func (s *AuthService) SignUp(ctx context.Context, creds models.Credentials) (*models.SignUpResponse, error) {
	if !s.registration.IsEnabled(ctx) {
		return nil, Forbidden("registration of new users is disabled")
	}
	if err := validateCredentials(&creds); err != nil {
		return nil, err
	}

	resp, err := s.provider.SignUp(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, s.providerError("sign-up", err)
	}
	return resp, nil
}

func (s *AuthService) SignIn(ctx context.Context, creds models.Credentials) (*models.SignInResponse, error) {
	if err := validateCredentials(&creds); err != nil {
		return nil, err
	}

	resp, err := s.provider.SignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, s.providerError("sign-in", err)
	}
	return resp, nil
}

// VerifyToken resolves a bearer token to the caller's identity.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, Unauthorized("token is missing")
	}
	id, err := s.verifier.Verify(ctx, token)
	if err != nil {
		if !errors.Is(err, identity.ErrInvalidToken) {
			s.logger.Warn("token verification failed", zap.Error(err))
		}
		return nil, Unauthorized("invalid or expired token")
	}
	return id, nil
}

// providerError turns rejections into 401 with the provider's message and
// everything else into an upstream failure.
func (s *AuthService) providerError(op string, err error) error {
	var pe *identity.ProviderError
	if errors.As(err, &pe) && pe.Rejected() {
		return Unauthorized(pe.Message)
	}
	s.logger.Error("identity provider call failed", zap.String("op", op), zap.Error(err))
	return Upstream("identity provider unavailable", err)
}

func validateCredentials(creds *models.Credentials) error {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return Validation("email and password are required")
	}
	if _, err := mail.ParseAddress(creds.Email); err != nil {
		return Validation("email is not a valid address")
	}
	return nil
}
