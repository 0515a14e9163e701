package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/supabase-community/supabase-go"

	"memory-transition-server/modules/common/config"
)

const TableProfiles = "profiles"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("row not found")

type Client struct {
	supabase *supabase.Client
}

// NewClient - Database 클라이언트 생성 (service role)
func NewClient(cfg *config.Config) (*Client, error) {
	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Client{supabase: supabaseClient}, nil
}

// Supabase exposes the underlying client for packages that build their own queries.
func (c *Client) Supabase() *supabase.Client { return c.supabase }

type profileRow struct {
	ID               string  `json:"id"`
	StripeCustomerID *string `json:"stripe_customer_id"`
}

// FetchStripeCustomerID - profiles 테이블에서 stripe_customer_id 조회
// Returns "" with a nil error when the profile exists but has no customer yet.
func (c *Client) FetchStripeCustomerID(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var rows []profileRow
	_, err := c.supabase.From(TableProfiles).
		Select("id,stripe_customer_id", "", false).
		Eq("id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return "", fmt.Errorf("query profiles: %w", err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if rows[0].StripeCustomerID == nil {
		return "", nil
	}
	return strings.TrimSpace(*rows[0].StripeCustomerID), nil
}

// SaveStripeCustomerID stores customerID only while the profile has none.
// It returns the id that is persisted afterwards, which is an earlier
// request's id when that request won the race.
func (c *Client) SaveStripeCustomerID(ctx context.Context, userID, customerID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, _, err := c.supabase.From(TableProfiles).
		Update(map[string]interface{}{
			"stripe_customer_id": customerID,
		}, "representation", "").
		Eq("id", userID).
		Is("stripe_customer_id", "null").
		Execute()
	if err != nil {
		return "", fmt.Errorf("update profiles.stripe_customer_id: %w", err)
	}

	var updated []profileRow
	if err := json.Unmarshal(data, &updated); err != nil {
		return "", fmt.Errorf("parse profiles update: %w", err)
	}
	if len(updated) > 0 {
		log.Info().Str("user_id", userID).Str("customer", customerID).Msg("💾 [DB] stripe customer saved")
		return customerID, nil
	}

	// 다른 요청이 먼저 저장함 - 저장된 값 재사용
	existing, err := c.FetchStripeCustomerID(ctx, userID)
	if err != nil {
		return "", err
	}
	if existing == "" {
		return "", fmt.Errorf("profile %s: stripe_customer_id not persisted", userID)
	}
	log.Warn().Str("user_id", userID).Str("kept", existing).Str("discarded", customerID).
		Msg("⚠️  [DB] stripe customer already set by a concurrent request")
	return existing, nil
}

// IsUniqueViolation reports whether a PostgREST error is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(strings.ToLower(msg), "duplicate key")
}
