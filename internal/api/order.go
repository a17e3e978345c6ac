package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/shopsphere/storefront/internal/domain/order"
)

type addressPayload struct {
	HouseNumber string `json:"house_number"`
	Street      string `json:"street"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
}

type checkoutRequest struct {
	PaymentMethod    string         `json:"payment_method"`
	ShippingAddress  addressPayload `json:"shipping_address"`
	DiscountCode     string         `json:"discount_code"`
	UseLoyaltyPoints int            `json:"use_loyalty_points"`
}

type orderLineResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type orderResponse struct {
	ID                string              `json:"id"`
	Items             []orderLineResponse `json:"items"`
	Subtotal          float64             `json:"subtotal"`
	DiscountAmount    float64             `json:"discount_amount"`
	DiscountCode      string              `json:"discount_code,omitempty"`
	LoyaltyPointsUsed int                 `json:"loyalty_points_used"`
	Total             float64             `json:"total"`
	PaymentMethod     string              `json:"payment_method"`
	PaymentStatus     string              `json:"payment_status"`
	OrderStatus       string              `json:"order_status"`
	CreatedAt         time.Time           `json:"created_at"`
}

type pendingPaymentResponse struct {
	GatewayOrderID string    `json:"gateway_order_id"`
	Amount         float64   `json:"amount"`
	AmountMinor    int64     `json:"amount_minor"`
	Currency       string    `json:"currency"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = orderLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Size:      l.Size,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.InexactFloat64(),
		}
	}
	return orderResponse{
		ID:                o.ID,
		Items:             items,
		Subtotal:          o.Subtotal.InexactFloat64(),
		DiscountAmount:    o.DiscountAmount.InexactFloat64(),
		DiscountCode:      o.DiscountCode,
		LoyaltyPointsUsed: o.LoyaltyPointsUsed,
		Total:             o.Total.InexactFloat64(),
		PaymentMethod:     string(o.PaymentMethod),
		PaymentStatus:     string(o.PaymentStatus),
		OrderStatus:       string(o.Status),
		CreatedAt:         o.CreatedAt,
	}
}

// placeOrder drives checkout. COD responds 201 with the committed order;
// gateway checkouts respond 202 with the pending payment the client must
// complete.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request, userID string) {
	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	method, err := order.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.checkout.Checkout(r.Context(), userID, order.CheckoutRequest{
		PaymentMethod: method,
		ShipTo: order.Address{
			HouseNumber: req.ShippingAddress.HouseNumber,
			Street:      req.ShippingAddress.Street,
			AddressLine: req.ShippingAddress.AddressLine,
			City:        req.ShippingAddress.City,
			State:       req.ShippingAddress.State,
			Pincode:     req.ShippingAddress.Pincode,
		},
		DiscountCode:     req.DiscountCode,
		UseLoyaltyPoints: req.UseLoyaltyPoints,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if result.Order != nil {
		writeJSON(w, http.StatusCreated, toOrderResponse(result.Order))
		return
	}

	p := result.Pending
	writeJSON(w, http.StatusAccepted, pendingPaymentResponse{
		GatewayOrderID: p.GatewayOrderID,
		Amount:         p.Amount.InexactFloat64(),
		AmountMinor:    p.AmountMinor,
		Currency:       p.Currency,
		ExpiresAt:      p.ExpiresAt,
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, userID string) {
	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list orders"))
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, userID string) {
	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Orders are private to their owner.
	if o.UserID != userID {
		writeError(w, r, order.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
