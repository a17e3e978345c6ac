package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrSessionExpired is returned when a staged payment session is missing,
// past its TTL, or already consumed by an earlier callback. The attempt is
// abandoned with no state mutation.
var ErrSessionExpired = errors.New("payment session expired")

// Session is a staged gateway checkout: the fully priced order snapshot held
// between intent creation and the signed completion callback. It has no
// durable order identity until confirmed.
type Session struct {
	GatewayOrderID string
	UserID         string
	Order          *Order
	ExpiresAt      time.Time
}

// SessionRepository persists staged payment sessions. Find treats missing
// and expired rows identically (ErrSessionExpired). Consumption on confirm
// happens inside the order commit transaction, not through this interface;
// DeleteExpired is for the background reaper.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	Find(ctx context.Context, gatewayOrderID string) (*Session, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
