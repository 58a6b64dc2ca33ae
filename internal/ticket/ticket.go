package ticket

import (
	"time"

	paymentDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/payment"
	ticketDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/ticket"
	"github.com/frahmantamala/metro-ticketing/internal/core/money"
)

type Status string

const (
	StatusPending Status = paymentDatamodel.StatusPending
	StatusSuccess Status = paymentDatamodel.StatusSuccess
	StatusFailed  Status = paymentDatamodel.StatusFailed
)

func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

type Payment struct {
	ID               int64        `json:"id"`
	Amount           money.Amount `json:"amount"`
	Currency         string       `json:"currency"`
	Status           Status       `json:"status"`
	Method           string       `json:"method,omitempty"`
	GatewayOrderID   string       `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string       `json:"gateway_payment_id,omitempty"`
	FailureReason    string       `json:"failure_reason,omitempty"`
	SettledStationID int64        `json:"settled_station_id,omitempty"`
	SettledAt        *time.Time   `json:"settled_at,omitempty"`
}

type Ticket struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	FromStationID int64     `json:"from_station_id"`
	ToStationID   int64     `json:"to_station_id"`
	FromStation   string    `json:"from"`
	ToStation     string    `json:"to"`
	TravelDate    time.Time `json:"-"`
	TravelAt      time.Time `json:"travel_at"`
	IssuedAt      time.Time `json:"issued_at"`
	Payment       Payment   `json:"payment"`
}

func (t *Ticket) IsPaid() bool {
	return t.Payment.Status == StatusSuccess
}

// NewBooking carries everything needed to record a pending ticket. The
// amount is the fare quoted at booking time and never changes afterwards.
type NewBooking struct {
	UserID        int64
	FromStationID int64
	ToStationID   int64
	TravelDate    time.Time
	TravelAt      time.Time
	Amount        money.Amount
	Currency      string
}

// Settlement is the gateway evidence recorded when an online payment succeeds.
type Settlement struct {
	OrderID          string
	GatewayPaymentID string
	Signature        string
}

type ListFilter struct {
	ExcludeSettled bool
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func PaymentFromDataModel(p *paymentDatamodel.Payment) Payment {
	out := Payment{
		ID:               p.ID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           Status(p.Status),
		Method:           deref(p.Method),
		GatewayOrderID:   deref(p.GatewayOrderID),
		GatewayPaymentID: deref(p.GatewayPaymentID),
		FailureReason:    deref(p.FailureReason),
		SettledAt:        p.SettledAt,
	}
	if p.SettledStationID != nil {
		out.SettledStationID = *p.SettledStationID
	}
	return out
}

func FromDataModel(t *ticketDatamodel.Ticket) *Ticket {
	return &Ticket{
		ID:            t.ID,
		UserID:        t.UserID,
		FromStationID: t.FromStationID,
		ToStationID:   t.ToStationID,
		FromStation:   t.FromStation.Name,
		ToStation:     t.ToStation.Name,
		TravelDate:    t.TravelDate,
		TravelAt:      t.TravelAt,
		IssuedAt:      t.IssuedAt,
		Payment:       PaymentFromDataModel(&t.Payment),
	}
}

func FromDataModels(rows []*ticketDatamodel.Ticket) []*Ticket {
	out := make([]*Ticket, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out
}
