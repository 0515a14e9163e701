package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// RPCTopUpCredits records a TOP_UP row and increments profiles.credits atomically.
const RPCTopUpCredits = "top_up_credits_admin"

// PostgREST error body
type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// TopUpCredits - 크레딧 충전 RPC 호출, 충전 후 잔액 반환
func (c *Client) TopUpCredits(ctx context.Context, userID string, amount int, description, sourcePaymentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	raw := c.supabase.Rpc(RPCTopUpCredits, "", map[string]interface{}{
		"user_id_param":           userID,
		"amount_param":            amount,
		"description_param":       description,
		"source_payment_id_param": sourcePaymentID,
	})
	return parseBalance(raw)
}

func parseBalance(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("rpc %s: empty response", RPCTopUpCredits)
	}

	var balance int
	if err := json.Unmarshal([]byte(raw), &balance); err == nil {
		return balance, nil
	}

	var rpcErr rpcError
	if err := json.Unmarshal([]byte(raw), &rpcErr); err != nil || rpcErr.Code == "" {
		return 0, fmt.Errorf("rpc %s: unexpected response %q", RPCTopUpCredits, raw)
	}
	if rpcErr.Code == "P0002" {
		return 0, fmt.Errorf("rpc %s: %s: %w", RPCTopUpCredits, rpcErr.Message, ErrNotFound)
	}
	return 0, fmt.Errorf("rpc %s: (%s) %s", RPCTopUpCredits, rpcErr.Code, rpcErr.Message)
}
