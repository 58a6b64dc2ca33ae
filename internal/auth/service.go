package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/metro-ticketing/internal"
	stationDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/station"
	userDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/user"
)

// ErrDuplicateEmail is returned by the repository when the email is taken.
var ErrDuplicateEmail = errors.New("email already registered")

type RepositoryAPI interface {
	GetUserByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	CreateUser(ctx context.Context, u *userDatamodel.User) error
	GetStationByID(ctx context.Context, id int64) (*stationDatamodel.Station, error)
}

type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGenerator
	logger         *slog.Logger
	bcryptCost     int
	dummyHash      []byte
}

func NewService(repo RepositoryAPI, tokenGen TokenGenerator, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	// compared against when the account does not exist so lookups of
	// unknown users cost the same as wrong passwords
	dummy, _ := bcrypt.GenerateFromPassword([]byte("metro-ticketing-dummy"), bcryptCost)
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		logger:         logger,
		bcryptCost:     bcryptCost,
		dummyHash:      dummy,
	}
}

// Register creates a commuter account and signs it in.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &userDatamodel.User{
		FullName:     dto.FullName,
		Email:        dto.Email,
		PhoneNumber:  dto.PhoneNumber,
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, internal.NewConflictError("User with this email already exists", internal.ErrCodeDuplicate)
		}
		s.logger.Error("failed to create user", "email", dto.Email, "error", err)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("commuter registered", "user_id", u.ID)
	return s.issue(internal.Principal{UserID: u.ID, Role: internal.RoleCommuter})
}

func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByEmail(ctx, dto.Email)
	if err != nil {
		if !errors.Is(err, internal.ErrUserNotFound) {
			s.logger.Error("failed to load user for login", "error", err)
			return nil, internal.NewInternalError("failed to authenticate", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(dto.Password))
		return nil, internal.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login rejected", "user_id", u.ID)
		return nil, internal.ErrInvalidCredentials
	}

	return s.issue(internal.Principal{UserID: u.ID, Role: internal.RoleCommuter})
}

// AuthenticateStationAdmin signs in the administrator of a station. Stations
// without a password cannot be administered.
func (s *Service) AuthenticateStationAdmin(ctx context.Context, dto AdminLoginDTO) (*AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	st, err := s.repo.GetStationByID(ctx, dto.StationID)
	if err != nil {
		if !errors.Is(err, internal.ErrStationNotFound) {
			s.logger.Error("failed to load station for login", "station_id", dto.StationID, "error", err)
			return nil, internal.NewInternalError("failed to authenticate", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(dto.Password))
		return nil, internal.ErrInvalidCredentials
	}

	if st.PasswordHash == nil || *st.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(dto.Password))
		return nil, internal.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*st.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("station admin login rejected", "station_id", st.ID)
		return nil, internal.ErrInvalidCredentials
	}

	s.logger.Info("station admin logged in", "station_id", st.ID)
	return s.issue(internal.Principal{UserID: st.ID, StationID: st.ID, Role: internal.RoleStationAdmin})
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) issue(p internal.Principal) (*AuthTokens, error) {
	token, expiresAt, err := s.tokenGenerator.GenerateAccessToken(p)
	if err != nil {
		s.logger.Error("failed to sign token", "user_id", p.UserID, "error", err)
		return nil, internal.NewInternalError("failed to issue token", err)
	}
	return &AuthTokens{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Role:        p.Role,
	}, nil
}
