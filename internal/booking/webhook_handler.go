package booking

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/frahmantamala/metro-ticketing/internal/paymentgateway"
	"github.com/frahmantamala/metro-ticketing/internal/transport"
)

const (
	SignatureHeader = "X-Razorpay-Signature"
	maxWebhookBytes = 1 << 20
)

type WebhookHandler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// HandlePaymentWebhook handles POST /api/v1/payment/webhook. The signature
// covers the raw body, so it is checked before the body is decoded.
func (h *WebhookHandler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		h.Logger.Error("failed to read webhook body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.VerifyWebhook(body, r.Header.Get(SignatureHeader)); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var ev paymentgateway.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		h.Logger.Error("invalid webhook payload", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.Logger.Info("received gateway webhook",
		"event", ev.Event,
		"order_id", ev.Payload.Payment.Entity.OrderID,
		"gateway_payment_id", ev.Payload.Payment.Entity.ID)

	handled, err := h.Service.HandleGatewayEvent(r.Context(), ev)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if !handled {
		h.WriteJSON(w, http.StatusOK, WebhookResponse{Status: "ignored", Message: "event type not handled"})
		return
	}
	h.WriteJSON(w, http.StatusOK, WebhookResponse{Status: "success", Message: "webhook processed successfully"})
}
