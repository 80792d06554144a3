package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99"), "usd"))
	assert.Equal(t, int64(150000), MinorUnits(decimal.NewFromInt(150000), "VND"))
	assert.Equal(t, int64(500), MinorUnits(decimal.NewFromInt(500), "jpy"))
}

func TestNewStripeClientWithoutKeyIsDisabled(t *testing.T) {
	gw := NewStripeClient("", "", zap.NewNop())
	assert.False(t, gw.Enabled())

	_, err := gw.CreatePaymentIntent(context.Background(), CreateIntentInput{})
	assert.ErrorIs(t, err, ErrGatewayDisabled)
}

func TestStripeClientCreatePaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "2000", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "order-1", r.PostForm.Get("metadata[order_id]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","status":"requires_payment_method","amount":2000,"currency":"usd","client_secret":"pi_1_secret"}`))
	}))
	defer srv.Close()

	gw := NewStripeClient(srv.URL, "sk_test", zap.NewNop())
	intent, err := gw.CreatePaymentIntent(context.Background(), CreateIntentInput{
		OrderID:  "order-1",
		Amount:   decimal.NewFromInt(20),
		Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
	assert.False(t, intent.Succeeded())
}

func TestStripeClientRetrievePaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/payment_intents/pi_ok":
			_, _ = w.Write([]byte(`{"id":"pi_ok","status":"succeeded"}`))
		case "/v1/payment_intents/pi_missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"resource_missing","message":"No such payment_intent"}}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
		}
	}))
	defer srv.Close()

	gw := NewStripeClient(srv.URL, "sk_test", zap.NewNop())

	intent, err := gw.RetrievePaymentIntent(context.Background(), "pi_ok")
	require.NoError(t, err)
	assert.True(t, intent.Succeeded())

	_, err = gw.RetrievePaymentIntent(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, ErrIntentNotFound)

	_, err = gw.RetrievePaymentIntent(context.Background(), "pi_other")
	assert.ErrorContains(t, err, "status 500")
}
