package booking

import (
	"encoding/json"
	"strings"
	"time"

	errors "github.com/frahmantamala/metro-ticketing/internal"
	"github.com/frahmantamala/metro-ticketing/internal/core/common/validation"
	"github.com/frahmantamala/metro-ticketing/internal/core/money"
	"github.com/frahmantamala/metro-ticketing/internal/paymentgateway"
	"github.com/frahmantamala/metro-ticketing/internal/ticket"
)

const travelTimeLayout = "15:04"

type BookTicketRequest struct {
	FromStation string `json:"from_station"`
	ToStation   string `json:"to_station"`
	TicketDate  string `json:"ticket_date"`
	TravelTime  string `json:"travel_time,omitempty"`
}

// Validate normalises the request and resolves the travel date and instant
// in loc. Same-station requests are rejected here, before any lookup.
func (r *BookTicketRequest) Validate(today time.Time, loc *time.Location) (travelDate, travelAt time.Time, err error) {
	r.FromStation = strings.TrimSpace(r.FromStation)
	r.ToStation = strings.TrimSpace(r.ToStation)
	r.TicketDate = strings.TrimSpace(r.TicketDate)
	r.TravelTime = strings.TrimSpace(r.TravelTime)

	v := validation.NewValidator()
	v.Field("from_station", r.FromStation).Required().MaxLength(100)
	v.Field("to_station", r.ToStation).Required().MaxLength(100)
	v.Field("ticket_date", r.TicketDate).Required().Date()
	v.Field("travel_time", r.TravelTime).Custom(func(value interface{}) *errors.AppError {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, perr := time.Parse(travelTimeLayout, s); perr != nil {
			return errors.NewValidationFieldError("travel_time", "travel_time must be in HH:MM format", errors.ErrCodeInvalidDate)
		}
		return nil
	})
	if verr := v.Validate(); verr != nil {
		return time.Time{}, time.Time{}, verr
	}

	if strings.EqualFold(r.FromStation, r.ToStation) {
		return time.Time{}, time.Time{}, errors.ErrSameStation
	}

	day, _ := time.ParseInLocation(time.DateOnly, r.TicketDate, loc)
	dv := validation.NewValidator()
	dv.Field("ticket_date", day).NotBefore(today)
	if verr := dv.Validate(); verr != nil {
		return time.Time{}, time.Time{}, verr
	}

	travelAt = day
	if r.TravelTime != "" {
		clock, _ := time.Parse(travelTimeLayout, r.TravelTime)
		travelAt = time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	}
	travelDate = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return travelDate, travelAt, nil
}

type BookedTicket struct {
	ID        int64         `json:"id"`
	PaymentID int64         `json:"payment_id"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Date      string        `json:"date"`
	Status    ticket.Status `json:"status"`
	Amount    money.Amount  `json:"amount"`
}

type BookTicketResponse struct {
	Msg    string       `json:"msg"`
	Ticket BookedTicket `json:"ticket"`
}

// CreateOrderRequest mirrors the checkout page payload. TicketAmount is
// accepted for compatibility but the stored fare is always what gets charged,
// so it is kept as the raw number and never rejected.
type CreateOrderRequest struct {
	TicketAmount json.Number `json:"ticketAmount"`
	TicketID     int64       `json:"ticketId"`
}

func (r *CreateOrderRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("ticketId", r.TicketID).Required().MinInt(1, errors.ErrCodeValidationFailed)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type OrderResponse struct {
	*paymentgateway.OrderHandle
	TicketID int64 `json:"ticket_id"`
}

type VerifyPaymentRequest struct {
	OrderID      string      `json:"razorpay_order_id"`
	PaymentID    string      `json:"razorpay_payment_id"`
	Signature    string      `json:"razorpay_signature"`
	TicketID     int64       `json:"ticketId"`
	TicketAmount json.Number `json:"ticketAmount"`
}

func (r *VerifyPaymentRequest) Validate() error {
	r.OrderID = strings.TrimSpace(r.OrderID)
	r.PaymentID = strings.TrimSpace(r.PaymentID)
	r.Signature = strings.TrimSpace(r.Signature)

	v := validation.NewValidator()
	v.Field("razorpay_order_id", r.OrderID).Required()
	v.Field("razorpay_payment_id", r.PaymentID).Required()
	v.Field("razorpay_signature", r.Signature).Required()
	v.Field("ticketId", r.TicketID).Required().MinInt(1, errors.ErrCodeValidationFailed)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type VerifyPaymentResult struct {
	Verified bool           `json:"verified"`
	Msg      string         `json:"msg"`
	Ticket   *ticket.Ticket `json:"ticket,omitempty"`
}

type SettlePaymentRequest struct {
	Status string `json:"status"`
}

type SettlePaymentResponse struct {
	Msg    string         `json:"msg"`
	Ticket *ticket.Ticket `json:"ticket"`
}

type TicketsResponse struct {
	Tickets []*ticket.Ticket `json:"tickets"`
}

type WebhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
