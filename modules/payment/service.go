package payment

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/apperr"
)

const DefaultCurrency = "eur"

var (
	ErrUnauthenticated = apperr.New(apperr.KindUnauthenticated, "Unauthorized")
	ErrInvalidAmount   = apperr.Validation("Amount must be a positive integer in minor units")
	ErrInvalidCurrency = apperr.Validation("Currency must be a 3-letter ISO code")
)

const paymentFailedMessage = "Failed to start payment. Please try again."

// Authenticator resolves the caller from a bearer token.
type Authenticator interface {
	UserID(ctx context.Context, token string) (string, error)
}

// CustomerStore persists the user -> payment customer mapping.
type CustomerStore interface {
	FetchStripeCustomerID(ctx context.Context, userID string) (string, error)
	SaveStripeCustomerID(ctx context.Context, userID, customerID string) (string, error)
}

// Provider is the slice of the payment provider API the sheet flow uses.
type Provider interface {
	CreateCustomer(ctx context.Context, userID string) (string, error)
	CreateEphemeralKey(ctx context.Context, customerID string) (string, error)
	CreatePaymentIntent(ctx context.Context, in IntentInput) (string, error)
}

// IntentInput - PaymentIntent 생성 파라미터
type IntentInput struct {
	Amount     int64
	Currency   string
	CustomerID string
	UserID     string
}

// Request - POST /functions/payment-sheet 요청 본문
type Request struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// Sheet - PaymentSheet 초기화 정보
type Sheet struct {
	PaymentIntent  string `json:"paymentIntent"`
	EphemeralKey   string `json:"ephemeralKey"`
	Customer       string `json:"customer"`
	PublishableKey string `json:"publishableKey"`
}

// Service - Payment Intent 서비스
type Service struct {
	auth           Authenticator
	customers      CustomerStore
	provider       Provider
	publishableKey string
}

func NewService(auth Authenticator, customers CustomerStore, provider Provider, publishableKey string) *Service {
	return &Service{
		auth:           auth,
		customers:      customers,
		provider:       provider,
		publishableKey: publishableKey,
	}
}

// CreateSheet - 인증 → 고객 조회/생성 → ephemeral key → payment intent
func (s *Service) CreateSheet(ctx context.Context, token string, req Request) (*Sheet, error) {
	// 인증은 provider 호출 전에
	userID, err := s.auth.UserID(ctx, token)
	if err != nil || userID == "" {
		log.Warn().Err(err).Msg("⚠️ [Payment] unauthenticated request")
		return nil, ErrUnauthenticated
	}

	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrency
	}

	customerID, err := s.resolveCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}

	ephemeralKey, err := s.provider.CreateEphemeralKey(ctx, customerID)
	if err != nil {
		log.Error().Err(err).Str("customer", customerID).Msg("❌ [Payment] ephemeral key failed")
		return nil, apperr.Upstream(paymentFailedMessage, err)
	}

	clientSecret, err := s.provider.CreatePaymentIntent(ctx, IntentInput{
		Amount:     req.Amount,
		Currency:   currency,
		CustomerID: customerID,
		UserID:     userID,
	})
	if err != nil {
		log.Error().Err(err).Str("customer", customerID).Msg("❌ [Payment] payment intent failed")
		return nil, apperr.Upstream(paymentFailedMessage, err)
	}

	log.Info().Str("user_id", userID).Int64("amount", req.Amount).Str("currency", currency).
		Msg("✅ [Payment] payment sheet ready")

	return &Sheet{
		PaymentIntent:  clientSecret,
		EphemeralKey:   ephemeralKey,
		Customer:       customerID,
		PublishableKey: s.publishableKey,
	}, nil
}

// resolveCustomer - 저장된 고객 재사용, 없으면 생성 후 조건부 저장
func (s *Service) resolveCustomer(ctx context.Context, userID string) (string, error) {
	existing, err := s.customers.FetchStripeCustomerID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("❌ [Payment] customer lookup failed")
		return "", apperr.Wrap(apperr.KindInternal, paymentFailedMessage, err)
	}
	if existing != "" {
		return existing, nil
	}

	created, err := s.provider.CreateCustomer(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("❌ [Payment] customer create failed")
		return "", apperr.Upstream(paymentFailedMessage, err)
	}

	stored, err := s.customers.SaveStripeCustomerID(ctx, userID, created)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("❌ [Payment] customer save failed")
		return "", apperr.Wrap(apperr.KindInternal, paymentFailedMessage, err)
	}
	if stored != created {
		log.Warn().Str("user_id", userID).Str("orphan", created).Msg("⚠️ [Payment] concurrent customer create, reusing stored id")
	}
	return stored, nil
}
