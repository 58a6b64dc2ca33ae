package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTicketBooked   = "ticket.booked"
	EventTypePaymentSettled = "payment.settled"
	EventTypePaymentFailed  = "payment.failed"
)

func newBase(eventType string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

type TicketBookedEvent struct {
	BaseEvent
	TicketID    int64  `json:"ticket_id"`
	PaymentID   int64  `json:"payment_id"`
	UserID      int64  `json:"user_id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
}

func NewTicketBookedEvent(ticketID, paymentID, userID, amountMinor int64, currency string) *TicketBookedEvent {
	return &TicketBookedEvent{
		BaseEvent:   newBase(EventTypeTicketBooked),
		TicketID:    ticketID,
		PaymentID:   paymentID,
		UserID:      userID,
		AmountMinor: amountMinor,
		Currency:    currency,
	}
}

type PaymentSettledEvent struct {
	BaseEvent
	TicketID    int64  `json:"ticket_id"`
	PaymentID   int64  `json:"payment_id"`
	Method      string `json:"method"`
	AmountMinor int64  `json:"amount"`
}

func NewPaymentSettledEvent(ticketID, paymentID int64, method string, amountMinor int64) *PaymentSettledEvent {
	return &PaymentSettledEvent{
		BaseEvent:   newBase(EventTypePaymentSettled),
		TicketID:    ticketID,
		PaymentID:   paymentID,
		Method:      method,
		AmountMinor: amountMinor,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	TicketID  int64  `json:"ticket_id"`
	PaymentID int64  `json:"payment_id"`
	Reason    string `json:"reason"`
}

func NewPaymentFailedEvent(ticketID, paymentID int64, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: newBase(EventTypePaymentFailed),
		TicketID:  ticketID,
		PaymentID: paymentID,
		Reason:    reason,
	}
}
