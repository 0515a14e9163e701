package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"memory-transition-server/modules/common/config"
)

// ErrUnauthenticated is returned when no user resolves from a bearer token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves Supabase users from access tokens.
type Authenticator struct {
	supabase *supabase.Client
}

// NewAuthenticator builds an Authenticator on the anon key, falling back to the service key.
func NewAuthenticator(cfg *config.Config) (*Authenticator, error) {
	key := cfg.SupabaseAnonKey
	if key == "" {
		key = cfg.SupabaseServiceKey
	}
	client, err := supabase.NewClient(cfg.SupabaseURL, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase auth client: %w", err)
	}
	return &Authenticator{supabase: client}, nil
}

// UserID returns the id of the user owning token.
func (a *Authenticator) UserID(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", ErrUnauthenticated
	}

	resp, err := a.supabase.Auth.WithToken(token).GetUser()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if resp == nil || resp.ID == uuid.Nil {
		return "", ErrUnauthenticated
	}
	return resp.ID.String(), nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
