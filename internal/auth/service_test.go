package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/metro-ticketing/internal"
	stationDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/station"
	userDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/user"
	"github.com/frahmantamala/metro-ticketing/internal/transport"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

type mockRepository struct {
	users    map[string]*userDatamodel.User
	stations map[int64]*stationDatamodel.Station
	nextID   int64
	fail     error
}

func newMockRepository() *mockRepository {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)
	h := string(hash)
	return &mockRepository{
		users: map[string]*userDatamodel.User{
			"user@example.com": {ID: 1, FullName: "Commuter", Email: "user@example.com", PasswordHash: h},
		},
		stations: map[int64]*stationDatamodel.Station{
			101: {ID: 101, Name: "Pune Central", PasswordHash: &h},
			102: {ID: 102, Name: "Shivajinagar"},
		},
		nextID: 10,
	}
}

func (m *mockRepository) GetUserByEmail(_ context.Context, email string) (*userDatamodel.User, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	u, ok := m.users[email]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (m *mockRepository) CreateUser(_ context.Context, u *userDatamodel.User) error {
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.users[u.Email]; ok {
		return ErrDuplicateEmail
	}
	m.nextID++
	u.ID = m.nextID
	m.users[u.Email] = u
	return nil
}

func (m *mockRepository) GetStationByID(_ context.Context, id int64) (*stationDatamodel.Station, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	st, ok := m.stations[id]
	if !ok {
		return nil, internal.ErrStationNotFound
	}
	return st, nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockRepository
		tokenGen *JWTTokenGenerator
		ctx      context.Context
		logger   *slog.Logger
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		mockRepo = newMockRepository()
		tokenGen = NewJWTTokenGenerator("test-secret", 15*time.Minute)
		service = NewService(mockRepo, tokenGen, logger, bcrypt.MinCost)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("issues a commuter token for valid credentials", func() {
			tokens, err := service.Authenticate(ctx, LoginDTO{Email: " User@Example.com ", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(tokens.TokenType).To(gomega.Equal("Bearer"))

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal(int64(1)))
			gomega.Expect(claims.Role).To(gomega.Equal(internal.RoleCommuter))
		})

		ginkgo.It("rejects a wrong password and an unknown email the same way", func() {
			_, err := service.Authenticate(ctx, LoginDTO{Email: "user@example.com", Password: "nope"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))

			_, err = service.Authenticate(ctx, LoginDTO{Email: "ghost@example.com", Password: "nope"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})

		ginkgo.It("reports storage failures as internal errors", func() {
			mockRepo.fail = errors.New("connection reset")
			_, err := service.Authenticate(ctx, LoginDTO{Email: "user@example.com", Password: "correct_password"})
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeInternal))
		})

		ginkgo.It("validates required fields", func() {
			_, err := service.Authenticate(ctx, LoginDTO{})
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeValidation))
		})
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("creates the account with a hashed password", func() {
			tokens, err := service.Register(ctx, RegisterDTO{
				FullName: "New Rider",
				Email:    "Rider@Example.com",
				Password: "long-enough",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(tokens.AccessToken).NotTo(gomega.BeEmpty())

			stored := mockRepo.users["rider@example.com"]
			gomega.Expect(stored).NotTo(gomega.BeNil())
			gomega.Expect(stored.PasswordHash).NotTo(gomega.Equal("long-enough"))
			gomega.Expect(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("long-enough"))).To(gomega.Succeed())
		})

		ginkgo.It("rejects duplicate emails with a conflict", func() {
			_, err := service.Register(ctx, RegisterDTO{FullName: "Dup", Email: "user@example.com", Password: "long-enough"})
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(http.StatusConflict))
		})

		ginkgo.It("rejects short passwords and malformed emails", func() {
			_, err := service.Register(ctx, RegisterDTO{FullName: "X", Email: "not-an-email", Password: "short"})
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			details := appErr.Details.(internal.ValidationErrors)
			gomega.Expect(details.Errors).To(gomega.HaveLen(2))
		})
	})

	ginkgo.Describe("AuthenticateStationAdmin", func() {
		ginkgo.It("issues a station-scoped token", func() {
			tokens, err := service.AuthenticateStationAdmin(ctx, AdminLoginDTO{StationID: 101, Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(tokens.Role).To(gomega.Equal(internal.RoleStationAdmin))

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(claims.StationID).To(gomega.Equal(int64(101)))
			gomega.Expect(claims.Principal().IsStationAdmin()).To(gomega.BeTrue())
		})

		ginkgo.It("refuses stations without a password", func() {
			_, err := service.AuthenticateStationAdmin(ctx, AdminLoginDTO{StationID: 102, Password: "anything"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})

		ginkgo.It("refuses unknown stations", func() {
			_, err := service.AuthenticateStationAdmin(ctx, AdminLoginDTO{StationID: 999, Password: "anything"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})
	})

	ginkgo.Describe("JWTTokenGenerator", func() {
		ginkgo.It("reports expired tokens", func() {
			issued := time.Now().Add(-2 * time.Hour)
			tokenGen.now = func() time.Time { return issued }
			token, _, err := tokenGen.GenerateAccessToken(internal.Principal{UserID: 1, Role: internal.RoleCommuter})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			tokenGen.now = time.Now
			_, err = tokenGen.ValidateToken(token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
		})

		ginkgo.It("rejects tokens signed with another secret", func() {
			other := NewJWTTokenGenerator("other-secret", time.Minute)
			token, _, err := other.GenerateAccessToken(internal.Principal{UserID: 1, Role: internal.RoleCommuter})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = tokenGen.ValidateToken(token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("rejects admin tokens without a station", func() {
			token, _, err := tokenGen.GenerateAccessToken(internal.Principal{UserID: 1, Role: internal.RoleStationAdmin})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = tokenGen.ValidateToken(token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("middleware", func() {
		var (
			handler *Handler
			roles   *RoleAuthorization
			reached bool
		)

		ginkgo.BeforeEach(func() {
			handler = NewHandler(transport.NewBaseHandler(logger), service)
			roles = NewRoleAuthorization(logger)
			reached = false
		})

		protected := func(role string) http.Handler {
			return handler.AuthMiddleware(roles.Require(role)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p, ok := internal.PrincipalFromContext(r.Context())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(p.UserID).To(gomega.BeNumerically(">", 0))
				reached = true
				w.WriteHeader(http.StatusNoContent)
			})))
		}

		request := func(token string) *http.Request {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			return req
		}

		ginkgo.It("rejects requests without a token", func() {
			rec := httptest.NewRecorder()
			protected(internal.RoleCommuter).ServeHTTP(rec, request(""))
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(reached).To(gomega.BeFalse())
		})

		ginkgo.It("passes a commuter through commuter routes", func() {
			tokens, err := service.Authenticate(ctx, LoginDTO{Email: "user@example.com", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			rec := httptest.NewRecorder()
			protected(internal.RoleCommuter).ServeHTTP(rec, request(tokens.AccessToken))
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(reached).To(gomega.BeTrue())
		})

		ginkgo.It("forbids commuters on admin routes", func() {
			tokens, err := service.Authenticate(ctx, LoginDTO{Email: "user@example.com", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			rec := httptest.NewRecorder()
			protected(internal.RoleStationAdmin).ServeHTTP(rec, request(tokens.AccessToken))
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(reached).To(gomega.BeFalse())
		})
	})
})
