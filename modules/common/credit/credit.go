package credit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/database"
)

// ErrAlreadyCredited is returned when the payment was already applied to the ledger.
var ErrAlreadyCredited = errors.New("payment already credited")

// Store is the persistence the ledger needs. *database.Client implements it.
// TopUpCredits must record the transaction and increment the balance atomically,
// failing with a unique violation when sourcePaymentID was already recorded.
type Store interface {
	TopUpCredits(ctx context.Context, userID string, amount int, description, sourcePaymentID string) (int, error)
}

// Entry - 크레딧 충전 요청
type Entry struct {
	UserID          string
	AmountCredits   int
	Description     string
	SourcePaymentID string
}

type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// TopUp - 크레딧 충전 및 트랜잭션 기록
// A SourcePaymentID is applied at most once; a repeat returns ErrAlreadyCredited.
func (l *Ledger) TopUp(ctx context.Context, entry Entry) (int, error) {
	if strings.TrimSpace(entry.UserID) == "" {
		return 0, errors.New("top up: user id is required")
	}
	if strings.TrimSpace(entry.SourcePaymentID) == "" {
		return 0, errors.New("top up: source payment id is required")
	}
	if entry.AmountCredits < 0 {
		return 0, fmt.Errorf("top up: negative amount %d", entry.AmountCredits)
	}

	log.Info().Str("user_id", entry.UserID).Int("credits", entry.AmountCredits).
		Str("payment", entry.SourcePaymentID).Msg("💰 [Credit] top up")

	balance, err := l.store.TopUpCredits(ctx, entry.UserID, entry.AmountCredits, entry.Description, entry.SourcePaymentID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, ErrAlreadyCredited
		}
		return 0, err
	}

	log.Info().Int("balance", balance).Str("user_id", entry.UserID).
		Msg("✅ [Credit] balance updated")
	return balance, nil
}
