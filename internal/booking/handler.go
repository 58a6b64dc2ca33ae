package booking

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/metro-ticketing/internal/paymentgateway"
	"github.com/frahmantamala/metro-ticketing/internal/ticket"
	"github.com/frahmantamala/metro-ticketing/internal/transport"
)

type ServiceAPI interface {
	Book(ctx context.Context, userID int64, req BookTicketRequest) (*BookTicketResponse, error)
	InitiatePayment(ctx context.Context, userID int64, req CreateOrderRequest) (*OrderResponse, error)
	ConfirmPayment(ctx context.Context, userID int64, req VerifyPaymentRequest) (*VerifyPaymentResult, error)
	SettleAtCounter(ctx context.Context, stationID, paymentID int64, status string) (*ticket.Ticket, error)
	VerifyWebhook(body []byte, signature string) error
	HandleGatewayEvent(ctx context.Context, ev paymentgateway.WebhookEvent) (bool, error)
	ListMyTickets(ctx context.Context, userID int64) ([]*ticket.Ticket, error)
	TravelHistory(ctx context.Context, userID int64) ([]*ticket.Ticket, error)
	ListAllTickets(ctx context.Context, unsettledOnly bool) ([]*ticket.Ticket, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// BookTicket handles POST /api/v1/tickets
func (h *Handler) BookTicket(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var req BookTicketRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp, err := h.Service.Book(r.Context(), principal.UserID, req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("ticket booked", "ticket_id", resp.Ticket.ID, "user_id", principal.UserID)
	h.WriteJSON(w, http.StatusCreated, resp)
}

// GetMyTickets handles GET /api/v1/my-tickets
func (h *Handler) GetMyTickets(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.Principal(w, r)
	if !ok {
		return
	}

	tickets, err := h.Service.ListMyTickets(r.Context(), principal.UserID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, TicketsResponse{Tickets: tickets})
}

// GetTravelHistory handles GET /api/v1/my-tickets/history
func (h *Handler) GetTravelHistory(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.Principal(w, r)
	if !ok {
		return
	}

	tickets, err := h.Service.TravelHistory(r.Context(), principal.UserID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, TicketsResponse{Tickets: tickets})
}

// CreateOrder handles POST /api/v1/create-order
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	order, err := h.Service.InitiatePayment(r.Context(), principal.UserID, req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, order)
}

// VerifyPayment handles POST /api/v1/verify-payment
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var req VerifyPaymentRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.ConfirmPayment(r.Context(), principal.UserID, req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if !result.Verified {
		h.WriteJSON(w, http.StatusBadRequest, result)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// GetAllTickets handles GET /api/v1/tickets
func (h *Handler) GetAllTickets(w http.ResponseWriter, r *http.Request) {
	unsettled := false
	if raw := r.URL.Query().Get("unsettled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "unsettled must be a boolean")
			return
		}
		unsettled = v
	}

	tickets, err := h.Service.ListAllTickets(r.Context(), unsettled)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, TicketsResponse{Tickets: tickets})
}

// SettlePayment handles PATCH /api/v1/tickets/{paymentId}/pay
func (h *Handler) SettlePayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.Principal(w, r)
	if !ok {
		return
	}

	paymentID, err := h.ParseIDParam("paymentId", chi.URLParam(r, "paymentId"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var req SettlePaymentRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	t, err := h.Service.SettleAtCounter(r.Context(), principal.StationID, paymentID, req.Status)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("counter settlement recorded",
		"payment_id", paymentID,
		"station_id", principal.StationID,
		"status", t.Payment.Status)
	h.WriteJSON(w, http.StatusOK, SettlePaymentResponse{Msg: "Payment status updated", Ticket: t})
}
