package chapa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safarilabs/travel-payments/internal/payment/application"
	"github.com/safarilabs/travel-payments/internal/payment/domain"
	"github.com/safarilabs/travel-payments/pkg/logging"
)

func checkoutReq() application.CheckoutRequest {
	return application.CheckoutRequest{
		TransactionRef:   "TX_BK1_1700000000",
		BookingReference: "BK1",
		Amount:           decimal.NewFromFloat(50000.00),
		Currency:         "NGN",
		Email:            "ada@example.com",
		FirstName:        "Ada",
		LastName:         "Obi",
	}
}

func TestInitializeSendsAuthorizedRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "50000.00", body["amount"])
		assert.Equal(t, "NGN", body["currency"])
		assert.Equal(t, "TX_BK1_1700000000", body["tx_ref"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": map[string]string{
				"reference":    "chapa-ref-42",
				"checkout_url": "https://checkout.chapa.co/42",
			},
		})
	}))
	defer srv.Close()

	c := NewClient(logging.New(), Config{BaseURL: srv.URL, SecretKey: "sk-test"})

	session, err := c.Initialize(context.Background(), checkoutReq())
	require.NoError(t, err)
	assert.Equal(t, "chapa-ref-42", session.ProviderRef)
	assert.Equal(t, "https://checkout.chapa.co/42", session.CheckoutURL)
}

func TestInitializeNon200IsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"failed"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(logging.New(), Config{BaseURL: srv.URL, SecretKey: "bad-key"})

	_, err := c.Initialize(context.Background(), checkoutReq())
	require.ErrorIs(t, err, domain.ErrGateway)
}

func TestVerifyNormalizesProviderStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.ProviderStatus
	}{
		{"success", domain.ProviderSuccess},
		{"failed", domain.ProviderFailed},
		{"pending", domain.ProviderOther},
		{"timeout", domain.ProviderOther},
		{"", domain.ProviderOther},
	}

	for _, tt := range tests {
		t.Run("raw="+tt.raw, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transaction/verify/TX_BK1_1700000000", r.URL.Path)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status": "success",
					"data":   map[string]string{"status": tt.raw},
				})
			}))
			defer srv.Close()

			c := NewClient(logging.New(), Config{BaseURL: srv.URL, SecretKey: "sk-test"})

			got, err := c.Verify(context.Background(), "TX_BK1_1700000000")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyUnreachableProvider(t *testing.T) {
	c := NewClient(logging.New(), Config{BaseURL: "http://127.0.0.1:1", SecretKey: "sk-test"})

	_, err := c.Verify(context.Background(), "TX_BK1_1700000000")
	require.ErrorIs(t, err, domain.ErrGateway)
}
