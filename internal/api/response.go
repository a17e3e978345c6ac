package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/shopsphere/storefront/internal/domain/cart"
	"github.com/shopsphere/storefront/internal/domain/discount"
	"github.com/shopsphere/storefront/internal/domain/engagement"
	"github.com/shopsphere/storefront/internal/domain/inventory"
	"github.com/shopsphere/storefront/internal/domain/loyalty"
	"github.com/shopsphere/storefront/internal/domain/order"
	"github.com/shopsphere/storefront/internal/domain/payment"
	"github.com/shopsphere/storefront/internal/domain/product"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

// writeError maps domain errors onto HTTP statuses. Unknown errors become an
// opaque 500 and are logged with the request-scoped logger.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		codErr   *order.CODNotAvailableError
		prodErr  *order.ProductNotFoundError
		stockErr *inventory.InsufficientStockError
	)

	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrUnknownPaymentMethod),
		errors.Is(err, order.ErrSignatureMismatch),
		errors.Is(err, engagement.ErrEmptyComment),
		errors.Is(err, engagement.ErrInvalidRating):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())

	case errors.As(err, &codErr), errors.As(err, &prodErr):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())

	case errors.As(err, &stockErr),
		errors.Is(err, discount.ErrUsageLimitReached),
		errors.Is(err, loyalty.ErrInsufficientPoints):
		writeErrorMessage(w, http.StatusConflict, err.Error())

	case errors.Is(err, order.ErrSessionExpired):
		writeErrorMessage(w, http.StatusGone, err.Error())

	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, engagement.ErrNotInWishlist):
		writeErrorMessage(w, http.StatusNotFound, err.Error())

	case errors.Is(err, payment.ErrIntentFailed):
		writeErrorMessage(w, http.StatusBadGateway, "payment gateway unavailable")

	default:
		zctx.From(r.Context()).Error("Internal error", zap.Error(err))
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
