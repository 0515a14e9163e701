package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// EphemeralKeyAPIVersion is the API version the mobile PaymentSheet expects.
const EphemeralKeyAPIVersion = "2022-11-15"

// StripeProvider - stripe-go 기반 Provider
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider - secret key 로 Stripe 클라이언트 생성
func NewStripeProvider(secretKey string, backends *stripe.Backends) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, backends)}
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, userID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.AddMetadata("user_id", userID)

	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create customer: %w", err)
	}
	return c.ID, nil
}

func (p *StripeProvider) CreateEphemeralKey(ctx context.Context, customerID string) (string, error) {
	params := &stripe.EphemeralKeyParams{
		Customer:      stripe.String(customerID),
		StripeVersion: stripe.String(EphemeralKeyAPIVersion),
	}
	params.Context = ctx

	key, err := p.api.EphemeralKeys.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create ephemeral key: %w", err)
	}
	return key.Secret, nil
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, in IntentInput) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.Amount),
		Currency: stripe.String(in.Currency),
		Customer: stripe.String(in.CustomerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", in.UserID)

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create payment intent: %w", err)
	}
	return pi.ClientSecret, nil
}
