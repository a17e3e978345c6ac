package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsphere/storefront/internal/domain/payment"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestClient_CreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_id", user)
		assert.Equal(t, "key_secret", pass)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 85000, req["amount"])
		assert.Equal(t, "INR", req["currency"])
		assert.EqualValues(t, 1, req["payment_capture"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_abc", "amount": 85000, "currency": "INR",
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, KeyID: "key_id", KeySecret: "key_secret"})

	intent, err := c.CreateIntent(context.Background(), 85000, "INR")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", intent.ID)
	assert.Equal(t, int64(85000), intent.Amount)
	assert.Equal(t, "INR", intent.Currency)
}

func TestClient_CreateIntentGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, KeyID: "k", KeySecret: "s"})

	_, err := c.CreateIntent(context.Background(), 1000, "INR")
	require.ErrorIs(t, err, payment.ErrIntentFailed)
}

func TestClient_VerifySignature(t *testing.T) {
	c := NewClient(Config{KeySecret: "key_secret"})

	good := sign("key_secret", "order_abc", "pay_1")
	assert.True(t, c.VerifySignature("order_abc", "pay_1", good))
	assert.False(t, c.VerifySignature("order_abc", "pay_1", good[:len(good)-1]+"0"))
	assert.False(t, c.VerifySignature("order_abc", "pay_2", good))
	assert.False(t, c.VerifySignature("order_abc", "pay_1", sign("other", "order_abc", "pay_1")))
	assert.False(t, c.VerifySignature("order_abc", "pay_1", ""))
}
