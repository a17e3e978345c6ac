package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsphere/storefront/internal/domain/cart"
	"github.com/shopsphere/storefront/internal/domain/discount"
	"github.com/shopsphere/storefront/internal/domain/inventory"
	"github.com/shopsphere/storefront/internal/domain/payment"
	"github.com/shopsphere/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]product.Product
	err  error
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockCartRepo struct {
	lines []cart.Line
	err   error
}

func (m *mockCartRepo) ListByUser(_ context.Context, _ string) ([]cart.Line, error) {
	return m.lines, m.err
}
func (m *mockCartRepo) Add(_ context.Context, _ *cart.Line) error { return nil }
func (m *mockCartRepo) UpdateQuantity(_ context.Context, _, _ string, _ int) error {
	return nil
}
func (m *mockCartRepo) Remove(_ context.Context, _, _ string) error { return nil }

type mockQuoter struct {
	quote discount.Quote
	err   error
}

func (m *mockQuoter) Quote(_ context.Context, _ string, _ decimal.Decimal) (discount.Quote, error) {
	return m.quote, m.err
}

type mockBalances struct {
	balance int
	err     error
}

func (m *mockBalances) LoyaltyBalance(_ context.Context, _ string) (int, error) {
	return m.balance, m.err
}

type mockGateway struct {
	intent    *payment.Intent
	intentErr error
	verifyOK  bool

	gotAmount   int64
	gotCurrency string
}

func (m *mockGateway) CreateIntent(_ context.Context, amountMinor int64, currency string) (*payment.Intent, error) {
	m.gotAmount = amountMinor
	m.gotCurrency = currency
	if m.intentErr != nil {
		return nil, m.intentErr
	}
	return m.intent, nil
}

func (m *mockGateway) VerifySignature(_, _, _ string) bool { return m.verifyOK }

type mockSessions struct {
	created *Session
	found   *Session
	findErr error
}

func (m *mockSessions) Create(_ context.Context, s *Session) error {
	m.created = s
	return nil
}

func (m *mockSessions) Find(_ context.Context, _ string) (*Session, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.found, nil
}

func (m *mockSessions) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

type mockStore struct {
	committed []CommitParams
	err       error
}

func (m *mockStore) CommitOrder(_ context.Context, p CommitParams) error {
	if m.err != nil {
		return m.err
	}
	m.committed = append(m.committed, p)
	return nil
}

// --- Helpers ---

type fixture struct {
	products *mockProductRepo
	carts    *mockCartRepo
	quoter   *mockQuoter
	balances *mockBalances
	gateway  *mockGateway
	sessions *mockSessions
	store    *mockStore
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		products: &mockProductRepo{byID: map[string]product.Product{
			"tee": {ID: "tee", Name: "Graphic Tee", Price: dec("500")},
			"cap": {ID: "cap", Name: "Baseball Cap", Price: dec("250")},
		}},
		carts:    &mockCartRepo{},
		quoter:   &mockQuoter{quote: discount.Quote{Amount: decimal.Zero}},
		balances: &mockBalances{},
		gateway:  &mockGateway{intent: &payment.Intent{ID: "gw_123"}, verifyOK: true},
		sessions: &mockSessions{},
		store:    &mockStore{},
	}
	f.svc = NewService(
		Config{
			CODCities:  []string{"Bangalore", "Mumbai", "Chennai"},
			Currency:   "INR",
			SessionTTL: 30 * time.Minute,
		},
		f.products, f.carts, f.quoter, f.balances, f.gateway, f.sessions, f.store,
	)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func codRequest() CheckoutRequest {
	return CheckoutRequest{
		PaymentMethod: PaymentCOD,
		ShipTo:        Address{City: "Bangalore", Pincode: "560001"},
	}
}

// --- Tests ---

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), "u1", codRequest())
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.store.committed)
}

func TestCheckout_CODCityNotAllowed(t *testing.T) {
	f := newFixture(t)
	f.carts.lines = []cart.Line{{ProductID: "tee", Size: "M", Quantity: 1}}

	req := codRequest()
	req.ShipTo.City = "Delhi"

	_, err := f.svc.Checkout(context.Background(), "u1", req)

	var codErr *CODNotAvailableError
	require.ErrorAs(t, err, &codErr)
	assert.Equal(t, "Delhi", codErr.City)
	assert.Empty(t, f.store.committed, "no order may be created for a rejected COD city")
}

func TestCheckout_CODCityCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.carts.lines = []cart.Line{{ProductID: "tee", Size: "M", Quantity: 1}}

	req := codRequest()
	req.ShipTo.City = "  mumbai "

	_, err := f.svc.Checkout(context.Background(), "u1", req)
	require.NoError(t, err)
}

func TestCheckout_ProductVanished(t *testing.T) {
	f := newFixture(t)
	f.carts.lines = []cart.Line{{ProductID: "ghost", Size: "M", Quantity: 1}}

	_, err := f.svc.Checkout(context.Background(), "u1", codRequest())

	var pnf *ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, "ghost", pnf.ProductID)
}

func TestCheckout_CODCommitsOrder(t *testing.T) {
	// Subtotal 1000, discount 100 (WELCOME10), 50 points requested against
	// balance 500 -> total 850.
	f := newFixture(t)
	f.carts.lines = []cart.Line{
		{ProductID: "tee", Size: "M", Quantity: 1},
		{ProductID: "cap", Size: "L", Quantity: 2},
	}
	f.quoter.quote = discount.Quote{Code: "WELCOME10", Amount: dec("100")}
	f.balances.balance = 500

	req := codRequest()
	req.DiscountCode = "WELCOME10"
	req.UseLoyaltyPoints = 50

	result, err := f.svc.Checkout(context.Background(), "u1", req)
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	assert.Nil(t, result.Pending)

	o := result.Order
	assert.True(t, dec("1000").Equal(o.Subtotal), "subtotal %s", o.Subtotal)
	assert.True(t, dec("100").Equal(o.DiscountAmount))
	assert.Equal(t, 50, o.LoyaltyPointsUsed)
	assert.True(t, dec("850").Equal(o.Total), "total %s", o.Total)
	assert.Equal(t, PaymentStatusCompleted, o.PaymentStatus)
	assert.Equal(t, StatusPlaced, o.Status)

	require.Len(t, f.store.committed, 1)
	p := f.store.committed[0]
	assert.Equal(t, 8, p.PointsEarned, "1 point per 100 on total 850")
	assert.Empty(t, p.ConsumeSessionID)
}

func TestCheckout_FixedDiscount(t *testing.T) {
	// Subtotal 1500, FLAT200 (fixed 200, min 1000) -> total 1300.
	f := newFixture(t)
	f.carts.lines = []cart.Line{{ProductID: "tee", Size: "M", Quantity: 3}}
	f.quoter.quote = discount.Quote{Code: "FLAT200", Amount: dec("200")}

	req := codRequest()
	req.DiscountCode = "FLAT200"

	result, err := f.svc.Checkout(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.True(t, dec("1300").Equal(result.Order.Total), "total %s", result.Order.Total)
}

func TestCheckout_RejectedDiscountChargesNothing(t *testing.T) {
	f := newFixture(t)
	f.carts.lines = []cart.Line{{ProductID: "tee", Size: "M", Quantity: 1}}
	f.quoter.quote = discount.Quote{Code: "OLD", Amount: decimal.Zero, Reason: discount.ReasonExpired}

	req := codRequest()
	req.DiscountCode = "OLD"

	result, err := f.svc.Checkout(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.True(t, result.Order.DiscountAmount.IsZero())
	assert.Empty(t, result.Order.DiscountCode, "rejected code must not be recorded for redemption")
	assert.True(t, dec("500").Equal(result.Order.Total))
}

func TestCheckout_TotalClampedAtZero(t *testing.T) {
	f := newFixture(t)
	f.carts.lines = []cart.Line{{ProductID: "cap", Size: "M", Quantity: 1}}
	f.quoter.quote = discount.Quote{Code: "MEGA", Amount: dec("9999")}

	req := codRequest()
	req.DiscountCode = "MEGA"

	result, err := f.svc.Checkout(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.True(t, result.Order.Total.IsZero(), "total %s", result.Order.Total)
}

func TestCheckout_EffectivePriceUsesDiscountedPrice(t *testing.T) {
	f := newFixture(t)
	sale := dec("400")
	f.products.byID["tee"] = product.Product{
		ID: "tee", Name: "Graphic Tee", Price: dec("500"), DiscountedPrice: &sale,
	}
	f.carts.lines = []cart.Line{{ProductID: "tee", Size: "M", Quantity: 2}}

	result, err := f.svc.Checkout(context.Background(), "u1", codRequest())
	require.NoError(t, err)
	assert.True(t, dec("800").Equal(result.Order.Subtotal))
	require.Len(t, result.Order.Lines, 1)
	assert.True(t, sale.Equal(result.Order.Lines[0].UnitPrice))
}

func TestCheckout_InsufficientStockAbortsCommit(t *testing.T) {
	f := newFixture(t)
	f.carts.lines = []cart.Line{{ProductID: "tee", Size: "M", Quantity: 5}}
	f.store.err = &inventory.InsufficientStockError{ProductID: "tee", Size: "M", Requested: 5}

	_, err := f.svc.Checkout(context.Background(), "u1", codRequest())
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestCheckout_GatewayStagesSession(t *testing.T) {
	f := newFixture(t)
	f.carts.lines = []cart.Line{{ProductID: "tee", Size: "M", Quantity: 2}}

	result, err := f.svc.Checkout(context.Background(), "u1", CheckoutRequest{
		PaymentMethod: PaymentGateway,
		ShipTo:        Address{City: "Delhi"}, // gateway has no city restriction
	})
	require.NoError(t, err)
	require.NotNil(t, result.Pending)
	assert.Nil(t, result.Order)

	assert.Equal(t, "gw_123", result.Pending.GatewayOrderID)
	assert.Equal(t, int64(100000), result.Pending.AmountMinor, "1000.00 in minor units")
	assert.Equal(t, "INR", result.Pending.Currency)
	assert.Equal(t, int64(100000), f.gateway.gotAmount)

	require.NotNil(t, f.sessions.created)
	assert.Equal(t, "gw_123", f.sessions.created.GatewayOrderID)
	assert.Equal(t, PaymentStatusPending, f.sessions.created.Order.PaymentStatus)

	assert.Empty(t, f.store.committed, "gateway checkout must not commit before confirmation")
}

func TestCheckout_GatewayIntentFailure(t *testing.T) {
	f := newFixture(t)
	f.carts.lines = []cart.Line{{ProductID: "tee", Size: "M", Quantity: 1}}
	f.gateway.intentErr = payment.ErrIntentFailed

	_, err := f.svc.Checkout(context.Background(), "u1", CheckoutRequest{
		PaymentMethod: PaymentGateway,
	})
	require.ErrorIs(t, err, payment.ErrIntentFailed)
	assert.Nil(t, f.sessions.created)
	assert.Empty(t, f.store.committed)
}

func stagedSession(total string) *Session {
	return &Session{
		GatewayOrderID: "gw_123",
		UserID:         "u1",
		Order: &Order{
			ID:            "ord-1",
			UserID:        "u1",
			Lines:         []Line{{ProductID: "tee", Size: "M", Quantity: 2, UnitPrice: dec("500")}},
			Subtotal:      dec(total),
			Total:         dec(total),
			PaymentMethod: PaymentGateway,
			PaymentStatus: PaymentStatusPending,
			Status:        StatusPlaced,
		},
		ExpiresAt: time.Now().Add(time.Minute),
	}
}

func TestConfirmPayment_CommitsStagedOrder(t *testing.T) {
	f := newFixture(t)
	f.sessions.found = stagedSession("1000")

	o, err := f.svc.ConfirmPayment(context.Background(), "gw_123", "pay_9", "sig")
	require.NoError(t, err)

	assert.Equal(t, "pay_9", o.PaymentID)
	assert.Equal(t, PaymentStatusCompleted, o.PaymentStatus)

	require.Len(t, f.store.committed, 1)
	p := f.store.committed[0]
	assert.Equal(t, "gw_123", p.ConsumeSessionID, "commit must consume the staged session")
	assert.Equal(t, 10, p.PointsEarned)
}

func TestConfirmPayment_BadSignature(t *testing.T) {
	f := newFixture(t)
	f.gateway.verifyOK = false
	f.sessions.found = stagedSession("1000")

	_, err := f.svc.ConfirmPayment(context.Background(), "gw_123", "pay_9", "bad")
	require.ErrorIs(t, err, ErrSignatureMismatch)
	assert.Empty(t, f.store.committed)
}

func TestConfirmPayment_MissingSession(t *testing.T) {
	f := newFixture(t)
	f.sessions.findErr = ErrSessionExpired

	_, err := f.svc.ConfirmPayment(context.Background(), "gw_gone", "pay_9", "sig")
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, f.store.committed)
}

func TestConfirmPayment_ReplayedCallback(t *testing.T) {
	// A second callback races the first: the commit finds the session
	// already consumed and must not create a second order.
	f := newFixture(t)
	f.sessions.found = stagedSession("1000")
	f.store.err = ErrSessionExpired

	_, err := f.svc.ConfirmPayment(context.Background(), "gw_123", "pay_9", "sig")
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestCheckout_CartRepositoryError(t *testing.T) {
	f := newFixture(t)
	f.carts.err = errors.New("db down")

	_, err := f.svc.Checkout(context.Background(), "u1", codRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list cart")
}
