package directory

import (
	"fmt"
	"strings"

	errors "github.com/frahmantamala/metro-ticketing/internal"
	"github.com/frahmantamala/metro-ticketing/internal/core/common/validation"
)

type StationNamesResponse struct {
	Stations []string `json:"stations"`
}

type StationsResponse struct {
	Stations []*Station `json:"stations"`
}

type LinesResponse struct {
	Lines []*Line `json:"lines"`
}

type CreateStationDTO struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Password string `json:"password,omitempty"`
}

func (d *CreateStationDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.Location = strings.TrimSpace(d.Location)

	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("location", d.Location).MaxLength(200)
	if d.Password != "" {
		v.Field("password", d.Password).MinLength(8).MaxLength(72)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type LineStopDTO struct {
	StationID int64 `json:"station_id"`
	Order     int   `json:"order"`
}

type CreateLineDTO struct {
	Color    string        `json:"color"`
	Stations []LineStopDTO `json:"stations"`
}

// Validate checks the color and that stop orders run exactly 1..n with
// each station appearing once.
func (d *CreateLineDTO) Validate() error {
	d.Color = strings.TrimSpace(d.Color)

	v := validation.NewValidator()
	v.Field("color", d.Color).Required().MaxLength(50)
	if err := v.Validate(); err != nil {
		return err
	}

	if len(d.Stations) < 2 {
		return errors.NewValidationFieldError("stations", "a line needs at least two stations", errors.ErrCodeInvalidLine)
	}

	seenOrder := make(map[int]bool, len(d.Stations))
	seenStation := make(map[int64]bool, len(d.Stations))
	for _, s := range d.Stations {
		if s.StationID <= 0 {
			return errors.NewValidationFieldError("stations", "station_id must be positive", errors.ErrCodeInvalidLine)
		}
		if s.Order < 1 || s.Order > len(d.Stations) {
			return errors.NewValidationFieldError("stations",
				fmt.Sprintf("order %d out of range 1..%d", s.Order, len(d.Stations)), errors.ErrCodeInvalidLine)
		}
		if seenOrder[s.Order] {
			return errors.NewValidationFieldError("stations", fmt.Sprintf("duplicate order %d", s.Order), errors.ErrCodeInvalidLine)
		}
		if seenStation[s.StationID] {
			return errors.NewValidationFieldError("stations",
				fmt.Sprintf("station %d appears more than once", s.StationID), errors.ErrCodeInvalidLine)
		}
		seenOrder[s.Order] = true
		seenStation[s.StationID] = true
	}
	return nil
}
