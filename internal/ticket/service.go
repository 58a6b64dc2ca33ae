package ticket

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/metro-ticketing/internal"
	paymentDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/payment"
	ticketDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/ticket"
)

type RepositoryAPI interface {
	// CreateBooking inserts the payment and then the ticket in one transaction.
	CreateBooking(ctx context.Context, p *paymentDatamodel.Payment, t *ticketDatamodel.Ticket) error
	GetTicketByID(ctx context.Context, id int64) (*ticketDatamodel.Ticket, error)
	GetTicketByPaymentID(ctx context.Context, paymentID int64) (*ticketDatamodel.Ticket, error)
	GetTicketByGatewayOrderID(ctx context.Context, orderID string) (*ticketDatamodel.Ticket, error)
	// UpdatePayment locks the payment row, applies mutate and persists the
	// result only when mutate reports a change.
	UpdatePayment(ctx context.Context, paymentID int64, mutate Mutation) (*paymentDatamodel.Payment, error)
	ListByUserSince(ctx context.Context, userID int64, after time.Time) ([]*ticketDatamodel.Ticket, error)
	ListSettledByUserBefore(ctx context.Context, userID int64, notAfter time.Time) ([]*ticketDatamodel.Ticket, error)
	ListAll(ctx context.Context, excludeSettled bool) ([]*ticketDatamodel.Ticket, error)
	ListStalePendingPaymentIDs(ctx context.Context, cutoff ExpiryCutoff, limit int) ([]int64, error)
}

// Service is the ticket ledger. It owns the payment status rules; the
// repository only provides the transactional primitives.
type Service struct {
	repo        RepositoryAPI
	logger      *slog.Logger
	graceWindow time.Duration
	now         func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger, graceWindow time.Duration) *Service {
	if graceWindow <= 0 {
		graceWindow = 24 * time.Hour
	}
	return &Service{
		repo:        repo,
		logger:      logger,
		graceWindow: graceWindow,
		now:         time.Now,
	}
}

// WithClock replaces the clock used to timestamp settlements.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) GraceWindow() time.Duration {
	return s.graceWindow
}

func (s *Service) CreatePendingBooking(ctx context.Context, nb NewBooking) (*Ticket, error) {
	if nb.FromStationID == nb.ToStationID {
		return nil, internal.ErrSameStation
	}
	if !nb.Amount.IsPositive() {
		return nil, internal.NewValidationError("fare must be positive", internal.ErrCodeInvalidAmount)
	}
	currency := strings.ToUpper(nb.Currency)
	if currency == "" {
		currency = "INR"
	}

	p := &paymentDatamodel.Payment{
		Amount:   nb.Amount,
		Currency: currency,
		Status:   paymentDatamodel.StatusPending,
	}
	t := &ticketDatamodel.Ticket{
		UserID:        nb.UserID,
		FromStationID: nb.FromStationID,
		ToStationID:   nb.ToStationID,
		TravelDate:    nb.TravelDate.UTC(),
		TravelAt:      nb.TravelAt.UTC(),
	}

	if err := s.repo.CreateBooking(ctx, p, t); err != nil {
		s.logger.Error("failed to create booking", "user_id", nb.UserID, "error", err)
		return nil, internal.NewInternalError("failed to create booking", err)
	}

	s.logger.Info("pending booking created",
		"ticket_id", t.ID,
		"payment_id", p.ID,
		"user_id", nb.UserID,
		"amount", nb.Amount.String())

	return s.GetTicket(ctx, t.ID)
}

func (s *Service) GetTicket(ctx context.Context, id int64) (*Ticket, error) {
	row, err := s.repo.GetTicketByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, "failed to load ticket")
	}
	return FromDataModel(row), nil
}

func (s *Service) GetTicketByPaymentID(ctx context.Context, paymentID int64) (*Ticket, error) {
	row, err := s.repo.GetTicketByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, s.lookupError(err, "failed to load ticket")
	}
	return FromDataModel(row), nil
}

func (s *Service) GetTicketByGatewayOrderID(ctx context.Context, orderID string) (*Ticket, error) {
	row, err := s.repo.GetTicketByGatewayOrderID(ctx, orderID)
	if err != nil {
		return nil, s.lookupError(err, "failed to load ticket")
	}
	return FromDataModel(row), nil
}

// AttachGatewayOrder records the gateway order created for a pending payment.
// Attaching the same order twice is a no-op.
func (s *Service) AttachGatewayOrder(ctx context.Context, paymentID int64, orderID string) (*Ticket, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, internal.NewValidationError("order id is required", internal.ErrCodeValidationFailed)
	}
	if _, err := s.update(ctx, paymentID, attachOrder(orderID)); err != nil {
		return nil, err
	}
	return s.GetTicketByPaymentID(ctx, paymentID)
}

// MarkSettled moves a pending payment to success. Repeating it with the same
// evidence succeeds without changes; changed reports whether this call did
// the transition.
func (s *Service) MarkSettled(ctx context.Context, paymentID int64, settlement Settlement) (*Ticket, bool, error) {
	changed, err := s.update(ctx, paymentID, settleOnline(settlement, s.now().UTC()))
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.logger.Info("payment settled", "payment_id", paymentID, "method", paymentDatamodel.MethodOnline)
	}
	t, err := s.GetTicketByPaymentID(ctx, paymentID)
	return t, changed, err
}

func (s *Service) MarkCounterPaid(ctx context.Context, paymentID, stationID int64) (*Ticket, bool, error) {
	changed, err := s.update(ctx, paymentID, settleAtCounter(stationID, s.now().UTC()))
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.logger.Info("payment settled", "payment_id", paymentID, "method", paymentDatamodel.MethodCounter, "station_id", stationID)
	}
	t, err := s.GetTicketByPaymentID(ctx, paymentID)
	return t, changed, err
}

func (s *Service) MarkFailed(ctx context.Context, paymentID int64, reason string) (*Ticket, bool, error) {
	changed, err := s.update(ctx, paymentID, fail(reason, s.now().UTC()))
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.logger.Info("payment failed", "payment_id", paymentID, "reason", reason)
	}
	t, err := s.GetTicketByPaymentID(ctx, paymentID)
	return t, changed, err
}

// ListTicketsForUser returns the user's tickets whose travel instant plus the
// grace window is still after asOf, newest first.
func (s *Service) ListTicketsForUser(ctx context.Context, userID int64, asOf time.Time) ([]*Ticket, error) {
	rows, err := s.repo.ListByUserSince(ctx, userID, asOf.Add(-s.graceWindow).UTC())
	if err != nil {
		s.logger.Error("failed to list user tickets", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to list tickets", err)
	}
	return FromDataModels(rows), nil
}

// ListTravelHistory returns paid tickets whose validity window has passed.
func (s *Service) ListTravelHistory(ctx context.Context, userID int64, asOf time.Time) ([]*Ticket, error) {
	rows, err := s.repo.ListSettledByUserBefore(ctx, userID, asOf.Add(-s.graceWindow).UTC())
	if err != nil {
		s.logger.Error("failed to list travel history", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to list travel history", err)
	}
	return FromDataModels(rows), nil
}

func (s *Service) ListAllTickets(ctx context.Context, filter ListFilter) ([]*Ticket, error) {
	rows, err := s.repo.ListAll(ctx, filter.ExcludeSettled)
	if err != nil {
		s.logger.Error("failed to list tickets", "error", err)
		return nil, internal.NewInternalError("failed to list tickets", err)
	}
	return FromDataModels(rows), nil
}

// ExpiryCutoff splits the sweep by checkout state. A payment with a gateway
// order may still be captured, so it is measured against Attached, which
// should lie at or before Unattached.
type ExpiryCutoff struct {
	Unattached time.Time
	Attached   time.Time
}

// ExpireStale fails pending payments created before their cutoff. Payments
// settled concurrently are skipped.
func (s *Service) ExpireStale(ctx context.Context, cutoff ExpiryCutoff, limit int) (int, error) {
	cutoff = ExpiryCutoff{Unattached: cutoff.Unattached.UTC(), Attached: cutoff.Attached.UTC()}
	ids, err := s.repo.ListStalePendingPaymentIDs(ctx, cutoff, limit)
	if err != nil {
		return 0, internal.NewInternalError("failed to list stale payments", err)
	}

	expired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		changed, err := s.update(ctx, id, fail("payment window expired", s.now().UTC()))
		if err != nil {
			if errors.Is(err, internal.ErrInvalidTransition) {
				continue
			}
			return expired, err
		}
		if changed {
			expired++
		}
	}

	if expired > 0 {
		s.logger.Info("expired stale payments", "count", expired, "cutoff", cutoff.Unattached, "checkout_cutoff", cutoff.Attached)
	}
	return expired, nil
}

func (s *Service) update(ctx context.Context, paymentID int64, mutate Mutation) (bool, error) {
	changed := false
	_, err := s.repo.UpdatePayment(ctx, paymentID, func(p *paymentDatamodel.Payment) (bool, error) {
		c, err := mutate(p)
		changed = c
		return c, err
	})
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return false, err
		}
		s.logger.Error("failed to update payment", "payment_id", paymentID, "error", err)
		return false, internal.NewInternalError("failed to update payment", err)
	}
	return changed, nil
}

func (s *Service) lookupError(err error, msg string) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	s.logger.Error(msg, "error", err)
	return internal.NewInternalError(msg, err)
}
