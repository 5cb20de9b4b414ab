package middleware

import (
	"context"
	"net/http"
	"strings"

	"finance/internal/models"
	"finance/internal/service"
	"finance/internal/utils"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier resolves a bearer token; service.AuthService implements it.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.Identity, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.WriteError(w, service.Unauthorized("authorization header is missing"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				utils.WriteError(w, service.Unauthorized("invalid authorization header format"))
				return
			}

			token := strings.TrimSpace(parts[1])
			if token == "" {
				utils.WriteError(w, service.Unauthorized("token is missing"))
				return
			}

			id, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				utils.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(ctx context.Context) (*models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*models.Identity)
	return id, ok && id != nil
}
