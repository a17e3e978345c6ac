// Package payment defines the port to the external payment gateway.
package payment

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrIntentFailed is returned when the gateway rejects or fails intent creation.
var ErrIntentFailed = errors.New("payment intent creation failed")

// Intent is a remote payment intent created at the gateway. Amount is in
// integer minor currency units (e.g. paise for INR).
type Intent struct {
	ID       string
	Amount   int64
	Currency string
}

// Gateway is the external payment collaborator. CreateIntent registers a
// capture-on-success intent for the given amount; VerifySignature checks the
// signed completion callback over (gatewayOrderID, paymentID).
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string) (*Intent, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}
