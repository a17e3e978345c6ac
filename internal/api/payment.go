package api

import (
	"net/http"
)

type paymentCallbackRequest struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
}

// paymentCallback finalizes a staged gateway checkout. A bad signature is a
// 400 and leaves the session intact; a missing, expired, or already-consumed
// session is a 410.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.GatewayOrderID == "" || req.PaymentID == "" || req.Signature == "" {
		writeErrorMessage(w, http.StatusBadRequest, "gateway_order_id, payment_id and signature are required")
		return
	}

	o, err := h.checkout.ConfirmPayment(r.Context(), req.GatewayOrderID, req.PaymentID, req.Signature)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
