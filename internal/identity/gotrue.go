package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"finance/internal/models"
)

// GoTrueClient calls the auth REST API of a Supabase project.
type GoTrueClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewGoTrueClient(projectURL, apiKey string, timeout time.Duration) *GoTrueClient {
	return &GoTrueClient{
		baseURL: strings.TrimRight(projectURL, "/") + "/auth/v1",
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type passwordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	models.Session
	User *models.AuthUser `json:"user"`
}

func (c *GoTrueClient) SignUp(ctx context.Context, email, password string) (*models.SignUpResponse, error) {
	body, err := c.do(ctx, http.MethodPost, "/signup", "", passwordRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	// With email confirmation on, the provider answers with the bare user and no session.
	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("decode sign-up response: %w", err)
	}
	if tok.AccessToken != "" {
		session := tok.Session
		return &models.SignUpResponse{User: tok.User, Session: &session}, nil
	}

	var user models.AuthUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode sign-up response: %w", err)
	}
	return &models.SignUpResponse{User: &user}, nil
}

func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (*models.SignInResponse, error) {
	body, err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", passwordRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("decode sign-in response: %w", err)
	}
	session := tok.Session
	return &models.SignInResponse{
		User:        tok.User,
		Session:     &session,
		AccessToken: tok.AccessToken,
	}, nil
}

// Verify asks the provider who the token belongs to. It is the authoritative
// check: revoked sessions are rejected even if the token has not expired.
func (c *GoTrueClient) Verify(ctx context.Context, token string) (*models.Identity, error) {
	body, err := c.do(ctx, http.MethodGet, "/user", token, nil)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && pe.Rejected() {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	var user models.AuthUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return &models.Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		ExpiresAt: tokenExpiry(token),
	}, nil
}

func (c *GoTrueClient) do(ctx context.Context, method, path, bearer string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read identity provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{Status: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}
	return body, nil
}

// errorMessage picks the human readable field out of the provider's error
// payload; the field name differs between endpoints and versions.
func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, m := range []string{payload.Msg, payload.Message, payload.ErrorDescription, payload.Error} {
			if m != "" {
				return m
			}
		}
	}
	return fallback
}
