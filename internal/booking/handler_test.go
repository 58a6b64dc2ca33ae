package booking_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/metro-ticketing/internal"
	"github.com/frahmantamala/metro-ticketing/internal/booking"
	"github.com/frahmantamala/metro-ticketing/internal/core/money"
	"github.com/frahmantamala/metro-ticketing/internal/paymentgateway"
	"github.com/frahmantamala/metro-ticketing/internal/ticket"
	"github.com/frahmantamala/metro-ticketing/internal/transport"
)

type mockService struct {
	bookReq     booking.BookTicketRequest
	orderReq    booking.CreateOrderRequest
	verified    bool
	settleArgs  []int64
	settleState string
	webhookErr  error
	handled     bool
}

func (m *mockService) Book(_ context.Context, userID int64, req booking.BookTicketRequest) (*booking.BookTicketResponse, error) {
	m.bookReq = req
	return &booking.BookTicketResponse{
		Msg: "Ticket booked successfully",
		Ticket: booking.BookedTicket{
			ID:     1,
			From:   req.FromStation,
			To:     req.ToStation,
			Date:   req.TicketDate,
			Status: ticket.StatusPending,
			Amount: money.MustParse("50.00"),
		},
	}, nil
}

func (m *mockService) InitiatePayment(_ context.Context, _ int64, req booking.CreateOrderRequest) (*booking.OrderResponse, error) {
	m.orderReq = req
	return nil, internal.ErrTicketNotFound
}

func (m *mockService) ConfirmPayment(context.Context, int64, booking.VerifyPaymentRequest) (*booking.VerifyPaymentResult, error) {
	if m.verified {
		return &booking.VerifyPaymentResult{Verified: true, Msg: "Payment successful and verified"}, nil
	}
	return &booking.VerifyPaymentResult{Verified: false, Msg: "Payment verification failed"}, nil
}

func (m *mockService) SettleAtCounter(_ context.Context, stationID, paymentID int64, status string) (*ticket.Ticket, error) {
	m.settleArgs = []int64{stationID, paymentID}
	m.settleState = status
	return &ticket.Ticket{ID: 1, Payment: ticket.Payment{ID: paymentID, Status: ticket.StatusSuccess}}, nil
}

func (m *mockService) VerifyWebhook([]byte, string) error {
	return m.webhookErr
}

func (m *mockService) HandleGatewayEvent(context.Context, paymentgateway.WebhookEvent) (bool, error) {
	return m.handled, nil
}

func (m *mockService) ListMyTickets(context.Context, int64) ([]*ticket.Ticket, error) {
	return []*ticket.Ticket{}, nil
}

func (m *mockService) TravelHistory(context.Context, int64) ([]*ticket.Ticket, error) {
	return []*ticket.Ticket{}, nil
}

func (m *mockService) ListAllTickets(context.Context, bool) ([]*ticket.Ticket, error) {
	return []*ticket.Ticket{}, nil
}

var _ = Describe("Booking handlers", func() {
	var (
		svc     *mockService
		handler *booking.Handler
		hooks   *booking.WebhookHandler
		router  chi.Router
	)

	commuter := internal.Principal{UserID: 7, Role: internal.RoleCommuter}
	admin := internal.Principal{UserID: 101, StationID: 101, Role: internal.RoleStationAdmin}

	do := func(method, path string, body interface{}, principal *internal.Principal) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		if principal != nil {
			req = req.WithContext(internal.ContextWithPrincipal(req.Context(), *principal))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		svc = &mockService{}
		base := transport.NewBaseHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
		handler = booking.NewHandler(base, svc)
		hooks = booking.NewWebhookHandler(base, svc)

		router = chi.NewRouter()
		router.Post("/tickets", handler.BookTicket)
		router.Get("/tickets", handler.GetAllTickets)
		router.Patch("/tickets/{paymentId}/pay", handler.SettlePayment)
		router.Post("/create-order", handler.CreateOrder)
		router.Post("/verify-payment", handler.VerifyPayment)
		router.Post("/payment/webhook", hooks.HandlePaymentWebhook)
	})

	It("requires an authenticated caller to book", func() {
		rec := do(http.MethodPost, "/tickets", map[string]string{"from_station": "A"}, nil)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("returns the booked ticket with a two-decimal amount", func() {
		rec := do(http.MethodPost, "/tickets", map[string]string{
			"from_station": "Station A",
			"to_station":   "Station B",
			"ticket_date":  "2030-01-02",
		}, &commuter)

		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(rec.Body.String()).To(ContainSubstring(`"amount":50.00`))
		Expect(rec.Body.String()).To(ContainSubstring(`"status":"pending"`))
		Expect(svc.bookReq.TicketDate).To(Equal("2030-01-02"))
	})

	It("rejects malformed bodies", func() {
		req := httptest.NewRequest(http.MethodPost, "/tickets", bytes.NewBufferString("{"))
		req = req.WithContext(internal.ContextWithPrincipal(req.Context(), commuter))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("maps service errors onto status codes", func() {
		rec := do(http.MethodPost, "/create-order", map[string]int64{"ticketId": 9}, &commuter)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("passes a sub-paisa ticket amount through to the service", func() {
		req := httptest.NewRequest(http.MethodPost, "/create-order", bytes.NewBufferString(`{"ticketId":9,"ticketAmount":50.005}`))
		req = req.WithContext(internal.ContextWithPrincipal(req.Context(), commuter))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(svc.orderReq.TicketID).To(Equal(int64(9)))
		Expect(svc.orderReq.TicketAmount.String()).To(Equal("50.005"))
	})

	It("answers a failed verification with 400", func() {
		rec := do(http.MethodPost, "/verify-payment", map[string]interface{}{"ticketId": 1}, &commuter)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring(`"verified":false`))

		svc.verified = true
		rec = do(http.MethodPost, "/verify-payment", map[string]interface{}{"ticketId": 1}, &commuter)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("settles at the admin's own station", func() {
		rec := do(http.MethodPatch, "/tickets/42/pay", map[string]string{"status": "paid"}, &admin)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(svc.settleArgs).To(Equal([]int64{101, 42}))
		Expect(svc.settleState).To(Equal("paid"))
	})

	It("rejects non-numeric payment ids", func() {
		rec := do(http.MethodPatch, "/tickets/abc/pay", map[string]string{"status": "paid"}, &admin)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects an invalid unsettled filter", func() {
		rec := do(http.MethodGet, "/tickets?unsettled=maybe", nil, &admin)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects webhooks with a bad signature", func() {
		svc.webhookErr = internal.NewUnauthorizedError("invalid webhook signature", internal.ErrCodeInvalidSignature)
		rec := do(http.MethodPost, "/payment/webhook", map[string]string{"event": "payment.captured"}, nil)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("acknowledges unhandled webhook events", func() {
		rec := do(http.MethodPost, "/payment/webhook", map[string]string{"event": "order.paid"}, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"status":"ignored"`))
	})
})
