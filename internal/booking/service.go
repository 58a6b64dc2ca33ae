// Package booking drives a ticket from request to settlement. It owns no
// storage; every state change goes through the ticket ledger.
package booking

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/metro-ticketing/internal"
	"github.com/frahmantamala/metro-ticketing/internal/core/common/validation"
	"github.com/frahmantamala/metro-ticketing/internal/core/events"
	"github.com/frahmantamala/metro-ticketing/internal/core/money"
	"github.com/frahmantamala/metro-ticketing/internal/fare"
	"github.com/frahmantamala/metro-ticketing/internal/paymentgateway"
	"github.com/frahmantamala/metro-ticketing/internal/ticket"
)

const (
	msgBooked             = "Ticket booked successfully"
	msgVerified           = "Payment successful and verified"
	msgVerificationFailed = "Payment verification failed"

	expiryBatchSize = 100
)

type StationResolver interface {
	ResolveStationID(ctx context.Context, name string) (int64, error)
}

type Ledger interface {
	CreatePendingBooking(ctx context.Context, nb ticket.NewBooking) (*ticket.Ticket, error)
	GetTicket(ctx context.Context, id int64) (*ticket.Ticket, error)
	GetTicketByGatewayOrderID(ctx context.Context, orderID string) (*ticket.Ticket, error)
	AttachGatewayOrder(ctx context.Context, paymentID int64, orderID string) (*ticket.Ticket, error)
	MarkSettled(ctx context.Context, paymentID int64, settlement ticket.Settlement) (*ticket.Ticket, bool, error)
	MarkCounterPaid(ctx context.Context, paymentID, stationID int64) (*ticket.Ticket, bool, error)
	MarkFailed(ctx context.Context, paymentID int64, reason string) (*ticket.Ticket, bool, error)
	ListTicketsForUser(ctx context.Context, userID int64, asOf time.Time) ([]*ticket.Ticket, error)
	ListTravelHistory(ctx context.Context, userID int64, asOf time.Time) ([]*ticket.Ticket, error)
	ListAllTickets(ctx context.Context, filter ticket.ListFilter) ([]*ticket.Ticket, error)
	ExpireStale(ctx context.Context, cutoff ticket.ExpiryCutoff, limit int) (int, error)
}

type Gateway interface {
	CreateOrder(ctx context.Context, amount money.Amount, ticketID int64) (*paymentgateway.OrderHandle, error)
	KeyID() string
}

// Recorder receives workflow outcomes that are not already domain events.
type Recorder interface {
	SignatureChecked(kind string, valid bool)
	PaymentsExpired(n int)
}

type nopRecorder struct{}

func (nopRecorder) SignatureChecked(string, bool) {}
func (nopRecorder) PaymentsExpired(int)           {}

type Options struct {
	Currency      string
	KeySecret     string
	WebhookSecret string
	Location      *time.Location
	PendingExpiry time.Duration
	// CheckoutExpiry applies once a gateway order is attached. Never shorter
	// than PendingExpiry.
	CheckoutExpiry time.Duration
}

type Service struct {
	stations  StationResolver
	fares     fare.Policy
	ledger    Ledger
	gateway   Gateway
	publisher events.Publisher
	recorder  Recorder
	logger    *slog.Logger
	opts      Options
	now       func() time.Time
}

func NewService(stations StationResolver, fares fare.Policy, ledger Ledger, gateway Gateway, publisher events.Publisher, logger *slog.Logger, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.PendingExpiry <= 0 {
		opts.PendingExpiry = 30 * time.Minute
	}
	if opts.CheckoutExpiry <= 0 {
		opts.CheckoutExpiry = 4 * opts.PendingExpiry
	}
	if opts.CheckoutExpiry < opts.PendingExpiry {
		opts.CheckoutExpiry = opts.PendingExpiry
	}
	return &Service{
		stations:  stations,
		fares:     fares,
		ledger:    ledger,
		gateway:   gateway,
		publisher: publisher,
		recorder:  nopRecorder{},
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) WithRecorder(r Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

func (s *Service) today() time.Time {
	n := s.now().In(s.opts.Location)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.opts.Location)
}

// Book quotes the trip and records it as pending. The fare comes from the
// configured policy; nothing in the request influences the amount.
func (s *Service) Book(ctx context.Context, userID int64, req BookTicketRequest) (*BookTicketResponse, error) {
	travelDate, travelAt, err := req.Validate(s.today(), s.opts.Location)
	if err != nil {
		return nil, err
	}

	fromID, err := s.stations.ResolveStationID(ctx, req.FromStation)
	if err != nil {
		return nil, err
	}
	toID, err := s.stations.ResolveStationID(ctx, req.ToStation)
	if err != nil {
		return nil, err
	}
	if fromID == toID {
		return nil, internal.ErrSameStation
	}

	amount, err := s.fares.Quote(fromID, toID)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to quote fare", err)
	}

	t, err := s.ledger.CreatePendingBooking(ctx, ticket.NewBooking{
		UserID:        userID,
		FromStationID: fromID,
		ToStationID:   toID,
		TravelDate:    travelDate,
		TravelAt:      travelAt,
		Amount:        amount,
		Currency:      s.opts.Currency,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewTicketBookedEvent(t.ID, t.Payment.ID, userID, t.Payment.Amount.Minor(), t.Payment.Currency))

	return &BookTicketResponse{
		Msg: msgBooked,
		Ticket: BookedTicket{
			ID:        t.ID,
			PaymentID: t.Payment.ID,
			From:      t.FromStation,
			To:        t.ToStation,
			Date:      req.TicketDate,
			Status:    t.Payment.Status,
			Amount:    t.Payment.Amount,
		},
	}, nil
}

// ownedTicket hides tickets of other users behind the same not-found error
// an unknown id produces.
func (s *Service) ownedTicket(ctx context.Context, userID, ticketID int64) (*ticket.Ticket, error) {
	t, err := s.ledger.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		s.logger.Warn("ticket requested by non-owner", "ticket_id", ticketID, "user_id", userID)
		return nil, internal.ErrTicketNotFound
	}
	return t, nil
}

// InitiatePayment returns the gateway order for a pending ticket, creating
// it on first use. The gateway call happens outside any ledger transaction.
func (s *Service) InitiatePayment(ctx context.Context, userID int64, req CreateOrderRequest) (*OrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t, err := s.ownedTicket(ctx, userID, req.TicketID)
	if err != nil {
		return nil, err
	}
	if t.Payment.Status != ticket.StatusPending {
		return nil, internal.NewConflictError("ticket is not awaiting payment", internal.ErrCodeInvalidTransition)
	}
	s.warnAmountMismatch(t, req.TicketAmount)

	if t.Payment.GatewayOrderID != "" {
		return s.orderFromTicket(t), nil
	}

	handle, err := s.gateway.CreateOrder(ctx, t.Payment.Amount, t.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.AttachGatewayOrder(ctx, t.Payment.ID, handle.OrderID); err != nil {
		appErr, ok := internal.IsAppError(err)
		if !ok || appErr.Code != internal.ErrCodeOrderMismatch {
			return nil, err
		}
		// a concurrent request attached its order first
		current, lerr := s.ledger.GetTicket(ctx, t.ID)
		if lerr != nil {
			return nil, lerr
		}
		s.logger.Info("reusing concurrently attached gateway order",
			"ticket_id", t.ID,
			"discarded_order_id", handle.OrderID,
			"order_id", current.Payment.GatewayOrderID)
		return s.orderFromTicket(current), nil
	}

	return &OrderResponse{OrderHandle: handle, TicketID: t.ID}, nil
}

func (s *Service) orderFromTicket(t *ticket.Ticket) *OrderResponse {
	return &OrderResponse{
		OrderHandle: &paymentgateway.OrderHandle{
			OrderID:  t.Payment.GatewayOrderID,
			Amount:   t.Payment.Amount,
			Currency: t.Payment.Currency,
			Receipt:  paymentgateway.Receipt(t.ID),
			Status:   "created",
			KeyID:    s.gateway.KeyID(),
		},
		TicketID: t.ID,
	}
}

func (s *Service) warnAmountMismatch(t *ticket.Ticket, claimed json.Number) {
	if claimed == "" {
		return
	}
	d, err := decimal.NewFromString(claimed.String())
	if err != nil || !d.Equal(t.Payment.Amount.Decimal()) {
		s.logger.Warn("client amount differs from stored fare",
			"ticket_id", t.ID,
			"claimed", claimed.String(),
			"stored", t.Payment.Amount.String())
	}
}

// ConfirmPayment checks the checkout proof and settles the payment. A proof
// that does not verify is a negative result, not an error, and leaves the
// payment pending.
func (s *Service) ConfirmPayment(ctx context.Context, userID int64, req VerifyPaymentRequest) (*VerifyPaymentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t, err := s.ownedTicket(ctx, userID, req.TicketID)
	if err != nil {
		return nil, err
	}
	s.warnAmountMismatch(t, req.TicketAmount)

	if t.Payment.GatewayOrderID != req.OrderID {
		s.logger.Warn("verification for foreign order",
			"ticket_id", t.ID,
			"order_id", req.OrderID,
			"expected_order_id", t.Payment.GatewayOrderID)
		return &VerifyPaymentResult{Verified: false, Msg: msgVerificationFailed}, nil
	}

	valid, err := paymentgateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature, s.opts.KeySecret)
	if err != nil {
		return nil, err
	}
	s.recorder.SignatureChecked("checkout", valid)
	if !valid {
		s.logger.Warn("payment signature mismatch", "ticket_id", t.ID, "order_id", req.OrderID)
		return &VerifyPaymentResult{Verified: false, Msg: msgVerificationFailed}, nil
	}

	settled, changed, err := s.ledger.MarkSettled(ctx, t.Payment.ID, ticket.Settlement{
		OrderID:          req.OrderID,
		GatewayPaymentID: req.PaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, events.NewPaymentSettledEvent(settled.ID, settled.Payment.ID, settled.Payment.Method, settled.Payment.Amount.Minor()))
	}

	return &VerifyPaymentResult{Verified: true, Msg: msgVerified, Ticket: settled}, nil
}

// SettleAtCounter records an in-person outcome. "paid" is accepted as an
// alias of success.
func (s *Service) SettleAtCounter(ctx context.Context, stationID, paymentID int64, status string) (*ticket.Ticket, error) {
	status = strings.ToLower(strings.TrimSpace(status))

	v := validation.NewValidator()
	v.Field("status", status).Required().OneOf(string(ticket.StatusSuccess), "paid", string(ticket.StatusFailed))
	if err := v.Validate(); err != nil {
		return nil, err
	}

	if status == string(ticket.StatusFailed) {
		t, changed, err := s.ledger.MarkFailed(ctx, paymentID, "rejected at station counter")
		if err != nil {
			return nil, err
		}
		if changed {
			s.publish(ctx, events.NewPaymentFailedEvent(t.ID, t.Payment.ID, t.Payment.FailureReason))
		}
		return t, nil
	}

	t, changed, err := s.ledger.MarkCounterPaid(ctx, paymentID, stationID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, events.NewPaymentSettledEvent(t.ID, t.Payment.ID, t.Payment.Method, t.Payment.Amount.Minor()))
	}
	return t, nil
}

// VerifyWebhook authenticates a raw gateway delivery.
func (s *Service) VerifyWebhook(body []byte, signature string) error {
	valid, err := paymentgateway.VerifyWebhookSignature(body, signature, s.opts.WebhookSecret)
	if err != nil {
		s.recorder.SignatureChecked("webhook", false)
		return internal.NewUnauthorizedError("missing webhook signature", internal.ErrCodeInvalidSignature)
	}
	s.recorder.SignatureChecked("webhook", valid)
	if !valid {
		return internal.NewUnauthorizedError("invalid webhook signature", internal.ErrCodeInvalidSignature)
	}
	return nil
}

// HandleGatewayEvent applies an authenticated webhook delivery. It returns
// false for event types it does not act on.
func (s *Service) HandleGatewayEvent(ctx context.Context, ev paymentgateway.WebhookEvent) (bool, error) {
	entity := ev.Payload.Payment.Entity

	switch ev.Event {
	case paymentgateway.EventPaymentCaptured, paymentgateway.EventPaymentFailed:
	default:
		s.logger.Debug("ignoring gateway event", "event", ev.Event)
		return false, nil
	}

	if entity.OrderID == "" {
		return false, internal.NewValidationFieldError("order_id", "payment entity has no order id", internal.ErrCodeValidationFailed)
	}

	t, err := s.ledger.GetTicketByGatewayOrderID(ctx, entity.OrderID)
	if err != nil {
		return false, err
	}

	if ev.Event == paymentgateway.EventPaymentFailed {
		reason := entity.ErrorDescription
		if reason == "" {
			reason = "payment failed at gateway"
		}
		failed, changed, err := s.ledger.MarkFailed(ctx, t.Payment.ID, reason)
		if err != nil {
			if internalErr, ok := internal.IsAppError(err); ok && internalErr.Code == internal.ErrCodeInvalidTransition {
				s.logger.Info("late failure for settled payment ignored", "payment_id", t.Payment.ID, "order_id", entity.OrderID)
				return true, nil
			}
			return false, err
		}
		if changed {
			s.publish(ctx, events.NewPaymentFailedEvent(failed.ID, failed.Payment.ID, reason))
		}
		return true, nil
	}

	if entity.Amount != 0 && entity.Amount != t.Payment.Amount.Minor() {
		s.logger.Error("captured amount does not match fare",
			"payment_id", t.Payment.ID,
			"captured", entity.Amount,
			"stored", t.Payment.Amount.Minor())
		return false, internal.NewConflictError("captured amount does not match fare", internal.ErrCodeInvalidAmount)
	}

	settled, changed, err := s.ledger.MarkSettled(ctx, t.Payment.ID, ticket.Settlement{
		OrderID:          entity.OrderID,
		GatewayPaymentID: entity.ID,
	})
	if err != nil {
		// The money moved but the ticket is closed; retrying cannot help.
		if internalErr, ok := internal.IsAppError(err); ok && internalErr.Code == internal.ErrCodeInvalidTransition {
			s.logger.Error("captured payment for a closed ticket needs reconciliation",
				"payment_id", t.Payment.ID,
				"order_id", entity.OrderID,
				"gateway_payment_id", entity.ID,
				"amount", entity.Amount,
				"status", t.Payment.Status)
			return true, nil
		}
		return false, err
	}
	if changed {
		s.publish(ctx, events.NewPaymentSettledEvent(settled.ID, settled.Payment.ID, settled.Payment.Method, settled.Payment.Amount.Minor()))
	}
	return true, nil
}

// ExpireStalePayments fails pending payments older than the configured
// expiry, one batch at a time until none remain. Payments already handed to
// the gateway get CheckoutExpiry instead.
func (s *Service) ExpireStalePayments(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := ticket.ExpiryCutoff{
		Unattached: now.Add(-s.opts.PendingExpiry),
		Attached:   now.Add(-s.opts.CheckoutExpiry),
	}
	total := 0
	for {
		n, err := s.ledger.ExpireStale(ctx, cutoff, expiryBatchSize)
		total += n
		if err != nil {
			s.recorder.PaymentsExpired(total)
			return total, err
		}
		if n < expiryBatchSize {
			break
		}
	}
	s.recorder.PaymentsExpired(total)
	return total, nil
}

func (s *Service) ListMyTickets(ctx context.Context, userID int64) ([]*ticket.Ticket, error) {
	return s.ledger.ListTicketsForUser(ctx, userID, s.now())
}

func (s *Service) TravelHistory(ctx context.Context, userID int64) ([]*ticket.Ticket, error) {
	return s.ledger.ListTravelHistory(ctx, userID, s.now())
}

func (s *Service) ListAllTickets(ctx context.Context, unsettledOnly bool) ([]*ticket.Ticket, error) {
	return s.ledger.ListAllTickets(ctx, ticket.ListFilter{ExcludeSettled: unsettledOnly})
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("failed to publish event", "event_type", e.EventType(), "error", err)
	}
}
