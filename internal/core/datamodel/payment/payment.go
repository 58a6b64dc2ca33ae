package payment

import (
	"time"

	"github.com/frahmantamala/metro-ticketing/internal/core/money"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"

	MethodOnline  = "online"
	MethodCounter = "counter"
)

type Payment struct {
	ID               int64        `gorm:"primaryKey"`
	Amount           money.Amount `gorm:"column:amount;not null"`
	Currency         string       `gorm:"column:currency;not null"`
	Status           string       `gorm:"column:status;not null;index"`
	Method           *string      `gorm:"column:method"`
	GatewayOrderID   *string      `gorm:"column:gateway_order_id;uniqueIndex"`
	GatewayPaymentID *string      `gorm:"column:gateway_payment_id"`
	Signature        *string      `gorm:"column:signature"`
	FailureReason    *string      `gorm:"column:failure_reason"`
	SettledStationID *int64       `gorm:"column:settled_station_id"`
	SettledAt        *time.Time   `gorm:"column:settled_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}
