// Package api exposes the storefront over HTTP/JSON.
package api

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/shopsphere/storefront/internal/domain/cart"
	"github.com/shopsphere/storefront/internal/domain/engagement"
	"github.com/shopsphere/storefront/internal/domain/inventory"
	"github.com/shopsphere/storefront/internal/domain/order"
	"github.com/shopsphere/storefront/internal/domain/product"
)

// APIKeyInfo holds the identity data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
}

// ErrKeyNotFound is returned by APIKeyRepository when no active key matches
// the presented hash. Any other lookup error is an infrastructure failure,
// not an authentication verdict.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyRepository provides lookup of API keys by their SHA-256 hash.
type APIKeyRepository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// CheckoutService is the slice of the order pipeline the handler drives.
type CheckoutService interface {
	Checkout(ctx context.Context, userID string, req order.CheckoutRequest) (*order.CheckoutResult, error)
	ConfirmPayment(ctx context.Context, gatewayOrderID, paymentID, signature string) (*order.Order, error)
}

// Handler serves the storefront API, delegating business logic to the
// injected domain repositories and the order pipeline service.
type Handler struct {
	products   product.Repository
	stock      inventory.Repository
	carts      cart.Repository
	orders     order.Repository
	checkout   CheckoutService
	engagement engagement.Repository
	apikeys    APIKeyRepository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	stock inventory.Repository,
	carts cart.Repository,
	orders order.Repository,
	checkout CheckoutService,
	social engagement.Repository,
	apikeys APIKeyRepository,
) *Handler {
	return &Handler{
		products:   products,
		stock:      stock,
		carts:      carts,
		orders:     orders,
		checkout:   checkout,
		engagement: social,
		apikeys:    apikeys,
	}
}

// Routes returns the API route table. Every route sits behind API-key
// authentication; mutating routes additionally require a user identity.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/categories", h.listCategories)

	mux.HandleFunc("GET /api/products/{id}/comments", h.listComments)
	mux.HandleFunc("POST /api/products/{id}/comments", h.withUser(h.addComment))
	mux.HandleFunc("POST /api/products/{id}/like", h.withUser(h.toggleLike))

	mux.HandleFunc("GET /api/wishlist", h.withUser(h.getWishlist))
	mux.HandleFunc("POST /api/wishlist/{productID}", h.withUser(h.addToWishlist))
	mux.HandleFunc("DELETE /api/wishlist/{productID}", h.withUser(h.removeFromWishlist))

	mux.HandleFunc("GET /api/cart", h.withUser(h.getCart))
	mux.HandleFunc("POST /api/cart/items", h.withUser(h.addToCart))
	mux.HandleFunc("PATCH /api/cart/items/{lineID}", h.withUser(h.updateCartLine))
	mux.HandleFunc("DELETE /api/cart/items/{lineID}", h.withUser(h.removeCartLine))

	mux.HandleFunc("POST /api/checkout", h.withUser(h.placeOrder))
	mux.HandleFunc("GET /api/orders", h.withUser(h.listOrders))
	mux.HandleFunc("GET /api/orders/{id}", h.withUser(h.getOrder))

	// The gateway calls back without a user context; the staged session
	// carries the identity.
	mux.HandleFunc("POST /api/payments/callback", h.paymentCallback)

	return h.requireAPIKey(mux)
}
