package station

import "time"

// Station doubles as the station-admin account: PasswordHash is set only
// for stations with a counter login.
type Station struct {
	ID           int64     `gorm:"primaryKey" db:"id"`
	Name         string    `gorm:"column:name;uniqueIndex;not null" db:"name"`
	Location     string    `gorm:"column:location" db:"location"`
	PasswordHash *string   `gorm:"column:password_hash" db:"password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" db:"created_at"`
}

func (Station) TableName() string {
	return "stations"
}

type Line struct {
	ID        int64     `gorm:"primaryKey" db:"id"`
	Color     string    `gorm:"column:color;uniqueIndex;not null" db:"color"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" db:"created_at"`
}

func (Line) TableName() string {
	return "lines"
}

type LineStation struct {
	LineID       int64 `gorm:"column:line_id;primaryKey" db:"line_id"`
	StationOrder int   `gorm:"column:station_order;primaryKey" db:"station_order"`
	StationID    int64 `gorm:"column:station_id;not null" db:"station_id"`
}

func (LineStation) TableName() string {
	return "line_stations"
}

// LineStop is a line membership joined with its station name.
type LineStop struct {
	LineID       int64  `db:"line_id"`
	StationOrder int    `db:"station_order"`
	StationID    int64  `db:"station_id"`
	StationName  string `db:"station_name"`
}
