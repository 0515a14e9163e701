package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	users map[string]string
}

func (a *fakeAuth) UserID(_ context.Context, token string) (string, error) {
	if id, ok := a.users[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid JWT")
}

type fakeCustomers struct {
	mu       sync.Mutex
	stored   map[string]string
	fetchErr error
	// winner simulates another request saving first.
	winner string
}

func (c *fakeCustomers) FetchStripeCustomerID(_ context.Context, userID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchErr != nil {
		return "", c.fetchErr
	}
	return c.stored[userID], nil
}

func (c *fakeCustomers) SaveStripeCustomerID(_ context.Context, userID, customerID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.winner != "" {
		c.stored[userID] = c.winner
	}
	if existing := c.stored[userID]; existing != "" {
		return existing, nil
	}
	c.stored[userID] = customerID
	return customerID, nil
}

type fakeProvider struct {
	mu            sync.Mutex
	ephemeralFor  []string
	intents       []IntentInput
	intentErr     error
	customerCalls int
}

func (p *fakeProvider) CreateCustomer(_ context.Context, userID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customerCalls++
	return "cus_new_" + userID, nil
}

func (p *fakeProvider) CreateEphemeralKey(_ context.Context, customerID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ephemeralFor = append(p.ephemeralFor, customerID)
	return "ek_secret", nil
}

func (p *fakeProvider) CreatePaymentIntent(_ context.Context, in IntentInput) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.intentErr != nil {
		return "", p.intentErr
	}
	p.intents = append(p.intents, in)
	return "pi_secret", nil
}

func fixture() (*fakeAuth, *fakeCustomers, *fakeProvider) {
	return &fakeAuth{users: map[string]string{"good": "user-1"}},
		&fakeCustomers{stored: map[string]string{}},
		&fakeProvider{}
}

func call(t *testing.T, svc *Service, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	NewHandler(svc).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/functions/payment-sheet", bytes.NewBufferString(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPaymentSheetCreatesCustomerOnce(t *testing.T) {
	auth, customers, provider := fixture()
	svc := NewService(auth, customers, provider, "pk_test_123")

	rec := call(t, svc, "Bearer good", `{"amount":1000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var sheet Sheet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sheet))
	require.Equal(t, Sheet{
		PaymentIntent:  "pi_secret",
		EphemeralKey:   "ek_secret",
		Customer:       "cus_new_user-1",
		PublishableKey: "pk_test_123",
	}, sheet)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	require.Len(t, provider.intents, 1)
	require.Equal(t, IntentInput{Amount: 1000, Currency: "eur", CustomerID: "cus_new_user-1", UserID: "user-1"}, provider.intents[0])

	// 두 번째 요청은 저장된 고객 재사용
	rec = call(t, svc, "Bearer good", `{"amount":500,"currency":"USD"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, provider.customerCalls)
	require.Equal(t, "usd", provider.intents[1].Currency)
	require.Equal(t, "cus_new_user-1", provider.intents[1].CustomerID)
}

func TestPaymentSheetReusesConcurrentWinner(t *testing.T) {
	auth, customers, provider := fixture()
	customers.winner = "cus_winner"

	sheet, err := NewService(auth, customers, provider, "pk").CreateSheet(context.Background(), "good", Request{Amount: 100})
	require.NoError(t, err)
	require.Equal(t, "cus_winner", sheet.Customer)
	require.Equal(t, []string{"cus_winner"}, provider.ephemeralFor)
}

func TestPaymentSheetUnauthenticated(t *testing.T) {
	for _, header := range []string{"", "Bearer bad", "Basic Z29vZA=="} {
		auth, customers, provider := fixture()
		rec := call(t, NewService(auth, customers, provider, "pk"), header, `{"amount":1000}`)

		require.Equal(t, http.StatusBadRequest, rec.Code, header)
		require.Contains(t, rec.Body.String(), "Unauthorized")
		require.Zero(t, provider.customerCalls)
		require.Empty(t, provider.ephemeralFor)
		require.Empty(t, provider.intents)
	}
}

func TestPaymentSheetValidation(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"amount":0}`, "Amount must be a positive integer in minor units"},
		{`{"amount":-5}`, "Amount must be a positive integer in minor units"},
		{`{}`, "Amount must be a positive integer in minor units"},
		{`{"amount":100,"currency":"euro"}`, "Currency must be a 3-letter ISO code"},
		{`not json`, "Invalid request body"},
	}

	for _, tt := range tests {
		auth, customers, provider := fixture()
		rec := call(t, NewService(auth, customers, provider, "pk"), "Bearer good", tt.body)

		require.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
		var out map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Equal(t, tt.want, out["error"])
		require.Zero(t, provider.customerCalls)
	}
}

func TestPaymentSheetProviderErrorIs400Generic(t *testing.T) {
	auth, customers, provider := fixture()
	provider.intentErr = errors.New("stripe: Invalid API Key provided: sk_live_****1234")

	rec := call(t, NewService(auth, customers, provider, "pk"), "Bearer good", `{"amount":1000}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Failed to start payment. Please try again.")
	require.NotContains(t, rec.Body.String(), "sk_live")
}

func TestPaymentSheetLookupErrorIs400(t *testing.T) {
	auth, customers, provider := fixture()
	customers.fetchErr = errors.New("(42P01) relation profiles does not exist")

	rec := call(t, NewService(auth, customers, provider, "pk"), "Bearer good", `{"amount":1000}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotContains(t, rec.Body.String(), "42P01")
	require.Zero(t, provider.customerCalls)
}

func TestPaymentSheetPreflight(t *testing.T) {
	auth, customers, provider := fixture()
	r := mux.NewRouter()
	NewHandler(NewService(auth, customers, provider, "pk")).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/functions/payment-sheet", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}
