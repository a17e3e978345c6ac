// Package payment implements the external payment gateway adapter over its
// HTTP API, with HMAC-SHA256 callback signature verification.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shopsphere/storefront/internal/domain/payment"
)

var _ payment.Gateway = (*Client)(nil)

// Config holds the gateway credentials and endpoint.
type Config struct {
	// BaseURL is the gateway API root, e.g. https://api.razorpay.com/v1.
	BaseURL string
	// KeyID and KeySecret are the basic-auth credentials. KeySecret also
	// keys the callback signature HMAC.
	KeyID     string
	KeySecret string
	// Timeout bounds a single intent-creation round trip.
	Timeout time.Duration
}

// Client talks to the payment gateway over HTTP.
type Client struct {
	baseURL   string
	keyID     string
	keySecret []byte
	http      *http.Client
}

// NewClient builds a gateway client with instrumented transport.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		keySecret: []byte(cfg.KeySecret),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type createIntentRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	PaymentCapture int    `json:"payment_capture"`
}

type createIntentResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateIntent registers a payment order with the gateway. Amount is in the
// currency's minor unit (paise for INR).
func (c *Client) CreateIntent(ctx context.Context, amountMinor int64, currency string) (*payment.Intent, error) {
	body, err := json.Marshal(createIntentRequest{
		Amount:         amountMinor,
		Currency:       currency,
		PaymentCapture: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal intent request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build intent request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, string(c.keySecret))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(payment.ErrIntentFailed, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.Wrapf(payment.ErrIntentFailed, "gateway returned %d", resp.StatusCode)
	}

	var out createIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode intent response")
	}
	if out.ID == "" {
		return nil, errors.Wrap(payment.ErrIntentFailed, "gateway returned no order id")
	}

	return &payment.Intent{
		ID:       out.ID,
		Amount:   out.Amount,
		Currency: out.Currency,
	}, nil
}

// VerifySignature checks the gateway's completion callback signature: a
// hex-encoded HMAC-SHA256 of "<gatewayOrderID>|<paymentID>" keyed with the
// API secret, compared in constant time.
func (c *Client) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, c.keySecret)
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
