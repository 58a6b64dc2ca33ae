package rest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/metro-ticketing/internal"
	"github.com/frahmantamala/metro-ticketing/internal/auth"
	"github.com/frahmantamala/metro-ticketing/internal/booking"
	"github.com/frahmantamala/metro-ticketing/internal/metrics"
	"github.com/frahmantamala/metro-ticketing/internal/transport"
)

func TestRest(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "REST Suite")
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type tokenOnlyAuth struct {
	*auth.JWTTokenGenerator
}

func (tokenOnlyAuth) Register(context.Context, auth.RegisterDTO) (*auth.AuthTokens, error) {
	return nil, errors.New("not used")
}

func (tokenOnlyAuth) Authenticate(context.Context, auth.LoginDTO) (*auth.AuthTokens, error) {
	return nil, errors.New("not used")
}

func (tokenOnlyAuth) AuthenticateStationAdmin(context.Context, auth.AdminLoginDTO) (*auth.AuthTokens, error) {
	return nil, errors.New("not used")
}

func (a tokenOnlyAuth) ValidateAccessToken(token string) (*auth.Claims, error) {
	return a.ValidateToken(token)
}

var _ = ginkgo.Describe("RegisterAllRoutes", func() {
	var (
		router  *chi.Mux
		tokens  *auth.JWTTokenGenerator
		dbErr   error
		logger  *slog.Logger
		metricz *metrics.Registry
	)

	serve := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	tokenFor := func(p internal.Principal) string {
		tok, _, err := tokens.GenerateAccessToken(p)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		return tok
	}

	ginkgo.BeforeEach(func() {
		dbErr = nil
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		tokens = auth.NewJWTTokenGenerator("router-test-secret", time.Hour)
		metricz = metrics.New()
		base := transport.NewBaseHandler(logger)

		router = chi.NewRouter()
		RegisterAllRoutes(router, Handlers{
			Auth:        auth.NewHandler(base, tokenOnlyAuth{tokens}),
			Roles:       auth.NewRoleAuthorization(logger),
			Booking:     booking.NewHandler(base, nil),
			Metrics:     metricz,
			MetricsPath: "/metrics",
			Checks: map[string]Pinger{
				"database": pingFunc(func(context.Context) error { return dbErr }),
			},
		}, logger)
	})

	ginkgo.It("answers the liveness probe", func() {
		rec := serve(http.MethodGet, "/api/v1/ping", "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"OK"`))
	})

	ginkgo.It("reports readiness from the registered checks", func() {
		gomega.Expect(serve(http.MethodGet, "/api/v1/health", "").Code).To(gomega.Equal(http.StatusOK))

		dbErr = errors.New("connection refused")
		rec := serve(http.MethodGet, "/api/v1/health", "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusServiceUnavailable))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("connection refused"))
	})

	ginkgo.It("serves the API description", func() {
		rec := serve(http.MethodGet, "/openapi.yml", "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("openapi: 3.0.3"))
	})

	ginkgo.It("rejects commuter routes without a token", func() {
		gomega.Expect(serve(http.MethodGet, "/api/v1/my-tickets", "").Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("keeps commuters away from station admin routes", func() {
		tok := tokenFor(internal.Principal{UserID: 7, Role: internal.RoleCommuter})
		gomega.Expect(serve(http.MethodGet, "/api/v1/tickets", tok).Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(serve(http.MethodPatch, "/api/v1/tickets/1/pay", tok).Code).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("keeps station admins away from commuter routes", func() {
		tok := tokenFor(internal.Principal{UserID: 101, StationID: 101, Role: internal.RoleStationAdmin})
		gomega.Expect(serve(http.MethodPost, "/api/v1/tickets", tok).Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(serve(http.MethodGet, "/api/v1/my-tickets", tok).Code).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("records requests on the metrics endpoint", func() {
		serve(http.MethodGet, "/api/v1/ping", "")

		rec := serve(http.MethodGet, "/metrics", "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`route="/api/v1/ping"`))
	})
})
