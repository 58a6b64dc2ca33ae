package ticket

import (
	"time"

	"github.com/frahmantamala/metro-ticketing/internal/core/datamodel/payment"
	"github.com/frahmantamala/metro-ticketing/internal/core/datamodel/station"
)

type Ticket struct {
	ID            int64     `gorm:"primaryKey"`
	UserID        int64     `gorm:"column:user_id;not null;index"`
	FromStationID int64     `gorm:"column:from_station_id;not null"`
	ToStationID   int64     `gorm:"column:to_station_id;not null"`
	TravelDate    time.Time `gorm:"column:travel_date;type:date;not null"`
	TravelAt      time.Time `gorm:"column:travel_at;not null;index"`
	PaymentID     int64     `gorm:"column:payment_id;not null;uniqueIndex"`
	IssuedAt      time.Time `gorm:"column:issued_at;autoCreateTime"`

	Payment     payment.Payment `gorm:"foreignKey:PaymentID"`
	FromStation station.Station `gorm:"foreignKey:FromStationID"`
	ToStation   station.Station `gorm:"foreignKey:ToStationID"`
}

func (Ticket) TableName() string {
	return "tickets"
}
