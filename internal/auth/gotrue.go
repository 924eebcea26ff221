package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GoTrueVerifier resolves tokens against a Supabase GoTrue endpoint
// (GET /auth/v1/user). The anon key travels in the apikey header, the
// user token in Authorization.
type GoTrueVerifier struct {
	baseURL string
	anonKey string
	client  *http.Client
}

func NewGoTrueVerifier(baseURL, anonKey string) *GoTrueVerifier {
	return &GoTrueVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (v *GoTrueVerifier) Verify(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return User{}, fmt.Errorf("build user request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.anonKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("call auth endpoint: %w", err)
	}
	//nolint:errcheck
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return User{}, ErrInvalidToken
	}

	if resp.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("auth endpoint status %d", resp.StatusCode)
	}

	var gu gotrueUser

	err = json.NewDecoder(resp.Body).Decode(&gu)
	if err != nil {
		return User{}, fmt.Errorf("decode user response: %w", err)
	}

	id, err := uuid.Parse(gu.ID)
	if err != nil {
		return User{}, fmt.Errorf("parse user id: %w", err)
	}

	return User{ID: id, Email: gu.Email}, nil
}
