package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// PaymentMethod selects how an order is settled.
type PaymentMethod string

const (
	// PaymentCOD is cash on delivery, restricted to an allow-listed set of cities.
	PaymentCOD PaymentMethod = "cod"
	// PaymentGateway settles through the external payment gateway.
	PaymentGateway PaymentMethod = "gateway"
)

// ErrUnknownPaymentMethod is returned for payment method strings outside the
// supported set.
var ErrUnknownPaymentMethod = errors.New("unknown payment method")

// ParsePaymentMethod converts a wire string into a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCOD, PaymentGateway:
		return PaymentMethod(s), nil
	default:
		return "", errors.Wrapf(ErrUnknownPaymentMethod, "%q", s)
	}
}

// PaymentStatus tracks settlement progress.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Status is the order lifecycle state. Orders are created as StatusPlaced;
// later transitions are back-office concerns.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Address is the shipping destination captured on the order.
type Address struct {
	HouseNumber string
	Street      string
	AddressLine string
	City        string
	State       string
	Pincode     string
}

// Line is a single order line. UnitPrice is the product's effective price
// captured at purchase time; later catalog price changes never alter it.
type Line struct {
	ProductID string
	Name      string
	Size      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Order is an immutable snapshot of a priced, committed purchase plus its
// mutable lifecycle status.
type Order struct {
	ID                string
	UserID            string
	Lines             []Line
	Subtotal          decimal.Decimal
	DiscountAmount    decimal.Decimal
	DiscountCode      string
	LoyaltyPointsUsed int
	Total             decimal.Decimal
	PaymentMethod     PaymentMethod
	PaymentStatus     PaymentStatus
	PaymentID         string
	Status            Status
	ShipTo            Address
	CreatedAt         time.Time
}

// ProductNotFoundError indicates a cart line references a product that no
// longer exists in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// Repository defines read operations for committed orders.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}

// CommitParams carries everything the storage layer must apply atomically
// when an order is finalized: the order row and its lines, per-line
// conditional inventory decrements, the loyalty redeem/earn adjustment, the
// discount redemption, and the cart clear. ConsumeSessionID, when set, also
// deletes the staged payment session in the same transaction, which is what
// makes a replayed gateway callback a no-op.
type CommitParams struct {
	Order            *Order
	PointsEarned     int
	ConsumeSessionID string
}

// Committer applies CommitParams as a single all-or-nothing transaction.
type Committer interface {
	CommitOrder(ctx context.Context, p CommitParams) error
}
