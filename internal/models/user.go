package models

import "time"

// Identity is the authenticated caller as resolved from a bearer token.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	// ExpiresAt is the token's exp claim in unix seconds, 0 when unknown.
	ExpiresAt int64 `json:"exp,omitempty"`
}

// Expired reports whether the token the identity came from is past its expiry.
func (i *Identity) Expired(now time.Time) bool {
	return i.ExpiresAt != 0 && !now.Before(time.Unix(i.ExpiresAt, 0))
}
