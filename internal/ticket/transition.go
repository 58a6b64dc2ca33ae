package ticket

import (
	"time"

	"github.com/frahmantamala/metro-ticketing/internal"
	paymentDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/payment"
)

// A Mutation inspects a locked payment row and edits it in place. It reports
// whether anything changed; returning false leaves the row untouched.
type Mutation func(p *paymentDatamodel.Payment) (bool, error)

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func invalidTransition(p *paymentDatamodel.Payment, to Status) error {
	return internal.ErrInvalidTransition.WithDetails(map[string]interface{}{
		"payment_id": p.ID,
		"from":       p.Status,
		"to":         to,
	})
}

func settleOnline(s Settlement, now time.Time) Mutation {
	return func(p *paymentDatamodel.Payment) (bool, error) {
		if s.OrderID != "" && p.GatewayOrderID != nil && *p.GatewayOrderID != s.OrderID {
			return false, internal.NewConflictError("order does not belong to this payment", internal.ErrCodeOrderMismatch)
		}

		switch Status(p.Status) {
		case StatusPending:
			method := paymentDatamodel.MethodOnline
			p.Status = string(StatusSuccess)
			p.Method = &method
			if s.OrderID != "" {
				p.GatewayOrderID = strPtr(s.OrderID)
			}
			p.GatewayPaymentID = strPtr(s.GatewayPaymentID)
			p.Signature = strPtr(s.Signature)
			p.SettledAt = &now
			return true, nil
		case StatusSuccess:
			stored := ""
			if p.GatewayPaymentID != nil {
				stored = *p.GatewayPaymentID
			}
			if stored != "" && s.GatewayPaymentID != "" && stored != s.GatewayPaymentID {
				return false, invalidTransition(p, StatusSuccess)
			}
			return false, nil
		default:
			return false, invalidTransition(p, StatusSuccess)
		}
	}
}

func settleAtCounter(stationID int64, now time.Time) Mutation {
	return func(p *paymentDatamodel.Payment) (bool, error) {
		switch Status(p.Status) {
		case StatusPending:
			method := paymentDatamodel.MethodCounter
			p.Status = string(StatusSuccess)
			p.Method = &method
			p.SettledStationID = &stationID
			p.SettledAt = &now
			return true, nil
		case StatusSuccess:
			return false, nil
		default:
			return false, invalidTransition(p, StatusSuccess)
		}
	}
}

func fail(reason string, now time.Time) Mutation {
	return func(p *paymentDatamodel.Payment) (bool, error) {
		switch Status(p.Status) {
		case StatusPending:
			p.Status = string(StatusFailed)
			p.FailureReason = strPtr(reason)
			p.SettledAt = &now
			return true, nil
		case StatusFailed:
			return false, nil
		default:
			return false, invalidTransition(p, StatusFailed)
		}
	}
}

func attachOrder(orderID string) Mutation {
	return func(p *paymentDatamodel.Payment) (bool, error) {
		if Status(p.Status) != StatusPending {
			return false, invalidTransition(p, StatusPending)
		}
		if p.GatewayOrderID == nil || *p.GatewayOrderID == "" {
			p.GatewayOrderID = strPtr(orderID)
			return true, nil
		}
		if *p.GatewayOrderID == orderID {
			return false, nil
		}
		return false, internal.NewConflictError("payment already has a different gateway order", internal.ErrCodeOrderMismatch)
	}
}
