package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/metro-ticketing/internal"
	paymentDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/payment"
	ticketDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/ticket"
	"github.com/frahmantamala/metro-ticketing/internal/ticket"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) ticket.RepositoryAPI {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Payment").
		Preload("FromStation").
		Preload("ToStation")
}

func (r *TicketRepository) joinPayments(ctx context.Context) *gorm.DB {
	return r.withDetails(ctx).Joins("JOIN payments ON payments.id = tickets.payment_id")
}

func (r *TicketRepository) CreateBooking(ctx context.Context, p *paymentDatamodel.Payment, t *ticketDatamodel.Ticket) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		t.PaymentID = p.ID
		if err := tx.Omit(clause.Associations).Create(t).Error; err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		return nil
	})
}

func (r *TicketRepository) first(q *gorm.DB) (*ticketDatamodel.Ticket, error) {
	var t ticketDatamodel.Ticket
	if err := q.First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepository) GetTicketByID(ctx context.Context, id int64) (*ticketDatamodel.Ticket, error) {
	return r.first(r.withDetails(ctx).Where("tickets.id = ?", id))
}

func (r *TicketRepository) GetTicketByPaymentID(ctx context.Context, paymentID int64) (*ticketDatamodel.Ticket, error) {
	return r.first(r.withDetails(ctx).Where("tickets.payment_id = ?", paymentID))
}

func (r *TicketRepository) GetTicketByGatewayOrderID(ctx context.Context, orderID string) (*ticketDatamodel.Ticket, error) {
	return r.first(r.joinPayments(ctx).Where("payments.gateway_order_id = ?", orderID))
}

func (r *TicketRepository) UpdatePayment(ctx context.Context, paymentID int64, mutate ticket.Mutation) (*paymentDatamodel.Payment, error) {
	var result *paymentDatamodel.Payment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p paymentDatamodel.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", paymentID).First(&p).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrPaymentNotFound
			}
			return err
		}

		prevStatus := p.Status
		changed, err := mutate(&p)
		if err != nil {
			return err
		}
		result = &p
		if !changed {
			return nil
		}

		// the status guard keeps this a compare-and-set on drivers without row locks
		res := tx.Model(&paymentDatamodel.Payment{}).
			Where("id = ? AND status = ?", p.ID, prevStatus).
			Updates(map[string]interface{}{
				"status":             p.Status,
				"method":             p.Method,
				"gateway_order_id":   p.GatewayOrderID,
				"gateway_payment_id": p.GatewayPaymentID,
				"signature":          p.Signature,
				"failure_reason":     p.FailureReason,
				"settled_station_id": p.SettledStationID,
				"settled_at":         p.SettledAt,
				"updated_at":         time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *TicketRepository) ListByUserSince(ctx context.Context, userID int64, after time.Time) ([]*ticketDatamodel.Ticket, error) {
	var tickets []*ticketDatamodel.Ticket
	err := r.withDetails(ctx).
		Where("tickets.user_id = ? AND tickets.travel_at > ?", userID, after).
		Order("tickets.travel_at DESC").
		Order("tickets.id DESC").
		Find(&tickets).Error
	return tickets, err
}

func (r *TicketRepository) ListSettledByUserBefore(ctx context.Context, userID int64, notAfter time.Time) ([]*ticketDatamodel.Ticket, error) {
	var tickets []*ticketDatamodel.Ticket
	err := r.joinPayments(ctx).
		Where("tickets.user_id = ? AND tickets.travel_at <= ? AND payments.status = ?", userID, notAfter, paymentDatamodel.StatusSuccess).
		Order("tickets.travel_at DESC").
		Order("tickets.id DESC").
		Find(&tickets).Error
	return tickets, err
}

func (r *TicketRepository) ListAll(ctx context.Context, excludeSettled bool) ([]*ticketDatamodel.Ticket, error) {
	var tickets []*ticketDatamodel.Ticket
	q := r.joinPayments(ctx)
	if excludeSettled {
		q = q.Where("payments.status <> ?", paymentDatamodel.StatusSuccess)
	}
	err := q.Order("tickets.issued_at DESC").Order("tickets.id DESC").Find(&tickets).Error
	return tickets, err
}

func (r *TicketRepository) ListStalePendingPaymentIDs(ctx context.Context, cutoff ticket.ExpiryCutoff, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("status = ?", paymentDatamodel.StatusPending).
		Where("((gateway_order_id IS NULL AND created_at < ?) OR (gateway_order_id IS NOT NULL AND created_at < ?))",
			cutoff.Unattached, cutoff.Attached).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
