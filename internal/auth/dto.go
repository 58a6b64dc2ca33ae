package auth

import (
	"strings"

	"github.com/frahmantamala/metro-ticketing/internal/core/common/validation"
)

type RegisterDTO struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

func (d *RegisterDTO) Validate() error {
	d.FullName = strings.TrimSpace(d.FullName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.PhoneNumber = strings.TrimSpace(d.PhoneNumber)

	v := validation.NewValidator()
	v.Field("full_name", d.FullName).Required().MaxLength(100)
	v.Field("email", d.Email).Required().Email().MaxLength(255)
	v.Field("phone_number", d.PhoneNumber).MaxLength(20)
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(72)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d *LoginDTO) Validate() error {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))

	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// AdminLoginDTO authenticates a station administrator by station id.
type AdminLoginDTO struct {
	StationID int64  `json:"station_id"`
	Password  string `json:"password"`
}

func (d *AdminLoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("station_id", d.StationID).Required()
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
