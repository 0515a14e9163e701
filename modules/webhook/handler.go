package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"memory-transition-server/modules/common/apperr"
	"memory-transition-server/modules/common/credit"
)

const bodyLimit = 1024 * 1024 // 1MiB

// centsPerCredit - 10센트당 1크레딧
const centsPerCredit = 10

var (
	errInvalidSignature = apperr.New(apperr.KindSignature, "Invalid signature")
	errMissingUser      = apperr.Validation("No user_id in payment metadata")
	errLedger           = apperr.New(apperr.KindLedger, "Failed to add credits")
	errInFlight         = apperr.New(apperr.KindConflict, "Payment is being processed; retry later")
)

// Ledger applies credit top-ups. *credit.Ledger implements it.
type Ledger interface {
	TopUp(ctx context.Context, entry credit.Entry) (int, error)
}

// Handler - Stripe Webhook Handler
type Handler struct {
	secret  string
	ledger  Ledger
	deduper *Deduper
}

// NewHandler - Handler 생성
func NewHandler(secret string, ledger Ledger, deduper *Deduper) *Handler {
	return &Handler{secret: secret, ledger: ledger, deduper: deduper}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/functions/stripe-webhook", h.HandleStripeWebhook).Methods("POST")
	log.Info().Msg("✅ [Webhook] Routes registered: /functions/stripe-webhook")
}

// HandleStripeWebhook - 서명 검증 후 payment_intent.succeeded 만 처리
func (h *Handler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		apperr.WriteError(w, apperr.Validation("Failed to read request body"))
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		apperr.WriteError(w, errInvalidSignature)
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ [Webhook] signature verification failed")
		apperr.WriteError(w, errInvalidSignature)
		return
	}

	log.Info().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("📥 [Webhook] event received")

	if event.Type != stripe.EventTypePaymentIntentSucceeded {
		apperr.WriteJSON(w, http.StatusOK, map[string]interface{}{"received": true})
		return
	}

	var pi stripe.PaymentIntent
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &pi) != nil || pi.ID == "" {
		apperr.WriteError(w, apperr.Validation("Invalid payment intent payload"))
		return
	}

	userID := strings.TrimSpace(pi.Metadata["user_id"])
	if userID == "" {
		log.Error().Str("payment", pi.ID).Msg("❌ [Webhook] no user_id in payment metadata")
		apperr.WriteError(w, errMissingUser)
		return
	}

	entry := credit.Entry{
		UserID:          userID,
		AmountCredits:   int(pi.Amount / centsPerCredit),
		Description:     fmt.Sprintf("Stripe Payment: %s", pi.ID),
		SourcePaymentID: pi.ID,
	}

	duplicate, err := h.deduper.Do(r.Context(), pi.ID, func(ctx context.Context) error {
		_, err := h.ledger.TopUp(ctx, entry)
		if errors.Is(err, credit.ErrAlreadyCredited) {
			return ErrDuplicate
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInFlight) {
			log.Warn().Str("payment", pi.ID).Msg("⚠️ [Webhook] payment in-flight; returning 409 so Stripe retries")
			apperr.WriteError(w, errInFlight)
			return
		}
		log.Error().Err(err).Str("payment", pi.ID).Msg("❌ [Webhook] ledger top up failed")
		apperr.WriteError(w, apperr.Wrap(apperr.KindLedger, errLedger.Message, err))
		return
	}

	if duplicate {
		log.Info().Str("payment", pi.ID).Msg("🔁 [Webhook] duplicate delivery acknowledged")
		apperr.WriteJSON(w, http.StatusOK, map[string]interface{}{"received": true, "duplicate": true})
		return
	}

	log.Info().Str("payment", pi.ID).Int("credits", entry.AmountCredits).Str("user_id", userID).
		Msg("✅ [Webhook] credits added")
	apperr.WriteJSON(w, http.StatusOK, map[string]interface{}{"received": true})
}
