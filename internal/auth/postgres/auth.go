package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/frahmantamala/metro-ticketing/internal"
	"github.com/frahmantamala/metro-ticketing/internal/auth"
	stationDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/station"
	userDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.RepositoryAPI {
	return &Repository{db: db}
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) CreateUser(ctx context.Context, u *userDatamodel.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userDatamodel.User{}).Where("LOWER(email) = ?", strings.ToLower(u.Email)).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return auth.ErrDuplicateEmail
		}
		return tx.Create(u).Error
	})
	if err != nil && isUniqueViolation(err) {
		return auth.ErrDuplicateEmail
	}
	return err
}

func (r *Repository) GetStationByID(ctx context.Context, id int64) (*stationDatamodel.Station, error) {
	var st stationDatamodel.Station
	if err := r.db.WithContext(ctx).First(&st, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrStationNotFound
		}
		return nil, err
	}
	return &st, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
