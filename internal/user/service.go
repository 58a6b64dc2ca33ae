package user

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/metro-ticketing/internal"
	userDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/user"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	UpdateProfile(ctx context.Context, id int64, fields map[string]interface{}) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to load user", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to load user", err)
	}
	return FromDataModel(u), nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, dto UpdateProfileDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if dto.FullName != nil {
		fields["full_name"] = *dto.FullName
	}
	if dto.PhoneNumber != nil {
		fields["phone_number"] = *dto.PhoneNumber
	}
	if len(fields) == 0 {
		return s.GetProfile(ctx, userID)
	}

	if err := s.repo.UpdateProfile(ctx, userID, fields); err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to update user", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to update user", err)
	}
	s.logger.Info("profile updated", "user_id", userID)
	return s.GetProfile(ctx, userID)
}
