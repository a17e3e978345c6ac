package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/shopsphere/storefront/internal/domain/cart"
	"github.com/shopsphere/storefront/internal/domain/product"
)

type cartLineResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type updateCartLineRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, userID string) {
	lines, err := h.carts.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list cart"))
		return
	}

	out := make([]cartLineResponse, len(lines))
	for i, l := range lines {
		out[i] = cartLineResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Size:      l.Size,
			Quantity:  l.Quantity,
			AddedAt:   l.AddedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request, userID string) {
	var req addToCartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "product_id and a positive quantity are required")
		return
	}

	// Reject products that no longer exist or were retired.
	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !p.Active {
		writeError(w, r, product.ErrNotFound)
		return
	}

	line := &cart.Line{
		UserID:    userID,
		ProductID: req.ProductID,
		Size:      req.Size,
		Quantity:  req.Quantity,
	}
	if err := h.carts.Add(r.Context(), line); err != nil {
		writeError(w, r, errors.Wrap(err, "add cart line"))
		return
	}

	writeJSON(w, http.StatusCreated, cartLineResponse{
		ID:        line.ID,
		ProductID: line.ProductID,
		Size:      line.Size,
		Quantity:  line.Quantity,
	})
}

func (h *Handler) updateCartLine(w http.ResponseWriter, r *http.Request, userID string) {
	var req updateCartLineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "quantity must be greater than 0")
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), userID, r.PathValue("lineID"), req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeCartLine(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.carts.Remove(r.Context(), userID, r.PathValue("lineID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
