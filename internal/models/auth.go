package models

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthUser is the subset of the identity provider's user object that the API passes through.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Session is the provider's token response, kept mostly opaque.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
}

type SignUpResponse struct {
	User    *AuthUser `json:"user"`
	Session *Session  `json:"session"`
}

type SignInResponse struct {
	User        *AuthUser `json:"user"`
	Session     *Session  `json:"session"`
	AccessToken string    `json:"accessToken"`
}
