package user

import (
	"strings"

	"github.com/frahmantamala/metro-ticketing/internal/core/common/validation"
)

type UpdateProfileDTO struct {
	FullName    *string `json:"full_name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

func (d *UpdateProfileDTO) Validate() error {
	v := validation.NewValidator()
	if d.FullName != nil {
		trimmed := strings.TrimSpace(*d.FullName)
		d.FullName = &trimmed
		v.Field("full_name", *d.FullName).Required().MaxLength(100)
	}
	if d.PhoneNumber != nil {
		trimmed := strings.TrimSpace(*d.PhoneNumber)
		d.PhoneNumber = &trimmed
		v.Field("phone_number", *d.PhoneNumber).MaxLength(20)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
