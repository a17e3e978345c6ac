package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsphere/storefront/internal/domain/cart"
	"github.com/shopsphere/storefront/internal/domain/discount"
	"github.com/shopsphere/storefront/internal/domain/loyalty"
	"github.com/shopsphere/storefront/internal/domain/payment"
	"github.com/shopsphere/storefront/internal/domain/product"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyCart = errors.New("cart is empty")
	// ErrSignatureMismatch is returned when a gateway callback fails
	// signature verification. The staged session is left untouched so the
	// user can retry.
	ErrSignatureMismatch = errors.New("payment signature verification failed")
)

// CODNotAvailableError indicates cash on delivery was requested for a city
// outside the allow-list.
type CODNotAvailableError struct {
	City string
}

func (e *CODNotAvailableError) Error() string {
	return fmt.Sprintf("cash on delivery is not available in %q", e.City)
}

// DiscountQuoter prices a discount code against a subtotal.
type DiscountQuoter interface {
	Quote(ctx context.Context, code string, subtotal decimal.Decimal) (discount.Quote, error)
}

// Config holds checkout policy knobs.
type Config struct {
	// CODCities is the allow-list of cities eligible for cash on delivery.
	CODCities []string
	// Currency is the ISO code used for gateway intents.
	Currency string
	// SessionTTL bounds how long a staged gateway checkout stays confirmable.
	SessionTTL time.Duration
}

// ProductSource resolves cart lines to their catalog products. The pipeline
// needs nothing else from the catalog.
type ProductSource interface {
	GetByIDs(ctx context.Context, ids []string) ([]product.Product, error)
}

// Service orchestrates the order pipeline: cart to priced order to a
// committed order, synchronously for COD or deferred behind a gateway
// payment session.
type Service struct {
	products  ProductSource
	carts     cart.Repository
	discounts DiscountQuoter
	balances  loyalty.Balances
	gateway   payment.Gateway
	sessions  SessionRepository
	store     Committer

	codCities  map[string]struct{}
	currency   string
	sessionTTL time.Duration
	now        func() time.Time
}

// NewService creates the order pipeline with its collaborators.
func NewService(
	cfg Config,
	products ProductSource,
	carts cart.Repository,
	discounts DiscountQuoter,
	balances loyalty.Balances,
	gateway payment.Gateway,
	sessions SessionRepository,
	store Committer,
) *Service {
	cities := make(map[string]struct{}, len(cfg.CODCities))
	for _, c := range cfg.CODCities {
		cities[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}

	return &Service{
		products:   products,
		carts:      carts,
		discounts:  discounts,
		balances:   balances,
		gateway:    gateway,
		sessions:   sessions,
		store:      store,
		codCities:  cities,
		currency:   cfg.Currency,
		sessionTTL: cfg.SessionTTL,
		now:        time.Now,
	}
}

// CheckoutRequest holds the caller's input for placing an order.
type CheckoutRequest struct {
	PaymentMethod    PaymentMethod
	ShipTo           Address
	DiscountCode     string
	UseLoyaltyPoints int
}

// PendingPayment describes a staged gateway checkout awaiting confirmation.
type PendingPayment struct {
	GatewayOrderID string
	Amount         decimal.Decimal
	AmountMinor    int64
	Currency       string
	ExpiresAt      time.Time
}

// CheckoutResult is either a committed order (COD) or a pending payment
// (gateway), never both.
type CheckoutResult struct {
	Order   *Order
	Pending *PendingPayment
}

// Checkout prices the user's cart and either commits the order immediately
// (COD) or stages it behind a gateway payment intent.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*CheckoutResult, error) {
	lines, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	if req.PaymentMethod == PaymentCOD && !s.codAllowed(req.ShipTo.City) {
		return nil, &CODNotAvailableError{City: req.ShipTo.City}
	}

	orderLines, err := s.resolveLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	pricing, err := s.priceLines(ctx, userID, orderLines, req.DiscountCode, req.UseLoyaltyPoints)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		ID:                uuid.New().String(),
		UserID:            userID,
		Lines:             orderLines,
		Subtotal:          pricing.Subtotal,
		DiscountAmount:    pricing.DiscountAmount,
		DiscountCode:      pricing.DiscountCode,
		LoyaltyPointsUsed: pricing.LoyaltyPointsUsed,
		Total:             pricing.Total,
		PaymentMethod:     req.PaymentMethod,
		Status:            StatusPlaced,
		ShipTo:            req.ShipTo,
		CreatedAt:         now,
	}

	if req.PaymentMethod == PaymentCOD {
		o.PaymentStatus = PaymentStatusCompleted
		if err := s.store.CommitOrder(ctx, CommitParams{
			Order:        o,
			PointsEarned: loyalty.PointsEarned(o.Total),
		}); err != nil {
			return nil, errors.Wrap(err, "commit order")
		}
		return &CheckoutResult{Order: o}, nil
	}

	// Gateway path: stage the priced snapshot behind a remote intent.
	// Nothing durable is written besides the session row.
	o.PaymentStatus = PaymentStatusPending

	amountMinor := o.Total.Shift(2).IntPart()
	intent, err := s.gateway.CreateIntent(ctx, amountMinor, s.currency)
	if err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}

	sess := &Session{
		GatewayOrderID: intent.ID,
		UserID:         userID,
		Order:          o,
		ExpiresAt:      now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "stage payment session")
	}

	return &CheckoutResult{Pending: &PendingPayment{
		GatewayOrderID: intent.ID,
		Amount:         o.Total,
		AmountMinor:    amountMinor,
		Currency:       s.currency,
		ExpiresAt:      sess.ExpiresAt,
	}}, nil
}

// ConfirmPayment finalizes a staged gateway checkout from a signed
// completion callback. The commit consumes the session row in the same
// transaction, so a duplicate callback for the same gateway order id finds
// no session and returns ErrSessionExpired without mutating anything.
func (s *Service) ConfirmPayment(ctx context.Context, gatewayOrderID, paymentID, signature string) (*Order, error) {
	if !s.gateway.VerifySignature(gatewayOrderID, paymentID, signature) {
		return nil, ErrSignatureMismatch
	}

	sess, err := s.sessions.Find(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return nil, ErrSessionExpired
		}
		return nil, errors.Wrap(err, "load payment session")
	}

	o := sess.Order
	o.PaymentID = paymentID
	o.PaymentStatus = PaymentStatusCompleted
	o.CreatedAt = s.now()

	if err := s.store.CommitOrder(ctx, CommitParams{
		Order:            o,
		PointsEarned:     loyalty.PointsEarned(o.Total),
		ConsumeSessionID: gatewayOrderID,
	}); err != nil {
		return nil, errors.Wrap(err, "commit order")
	}

	return o, nil
}

// ReapSessions deletes staged sessions past their TTL. Called periodically
// by the application's background reaper.
func (s *Service) ReapSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

func (s *Service) codAllowed(city string) bool {
	_, ok := s.codCities[strings.ToLower(strings.TrimSpace(city))]
	return ok
}

// resolveLines batch-fetches the cart's products and captures each line's
// effective unit price.
func (s *Service) resolveLines(ctx context.Context, lines []cart.Line) ([]Line, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	orderLines := make([]Line, len(lines))
	for i, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: l.ProductID}
		}
		orderLines[i] = Line{
			ProductID: p.ID,
			Name:      p.Name,
			Size:      l.Size,
			Quantity:  l.Quantity,
			UnitPrice: p.EffectivePrice(),
		}
	}
	return orderLines, nil
}

func (s *Service) priceLines(ctx context.Context, userID string, lines []Line, code string, requestedPoints int) (Pricing, error) {
	subtotal := subtotalOf(lines)

	quote := discount.Quote{Amount: decimal.Zero}
	if code != "" {
		var err error
		quote, err = s.discounts.Quote(ctx, code, subtotal)
		if err != nil {
			return Pricing{}, errors.Wrap(err, "quote discount")
		}
	}

	balance := 0
	if requestedPoints > 0 {
		var err error
		balance, err = s.balances.LoyaltyBalance(ctx, userID)
		if err != nil {
			return Pricing{}, errors.Wrap(err, "loyalty balance")
		}
	}

	return price(subtotal, quote, requestedPoints, balance), nil
}
