package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/metro-ticketing/internal/auth"
	"github.com/frahmantamala/metro-ticketing/internal/booking"
	"github.com/frahmantamala/metro-ticketing/internal/directory"
	"github.com/frahmantamala/metro-ticketing/internal/transport"
	"github.com/frahmantamala/metro-ticketing/internal/transport/middleware"
	"github.com/frahmantamala/metro-ticketing/internal/transport/swagger"
	"github.com/frahmantamala/metro-ticketing/internal/user"
	"github.com/go-chi/chi"
)

// Handlers groups everything the router mounts. Nil handlers leave their
// routes unregistered.
type Handlers struct {
	Auth      *auth.Handler
	Roles     *auth.RoleAuthorization
	User      *user.Handler
	Directory *directory.Handler
	Booking   *booking.Handler
	Webhook   *booking.WebhookHandler

	// Metrics wraps every request and, with MetricsPath set, exposes the scrape endpoint.
	Metrics     MetricsProvider
	MetricsPath string

	Checks map[string]Pinger
}

type MetricsProvider interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(transport.NewBaseHandler(logger), h.Checks)

	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	if h.Metrics != nil {
		router.Use(h.Metrics.Middleware)
	}

	router.Method(http.MethodGet, swagger.SpecPath, swagger.SpecHandler())
	router.Handle("/swagger/*", swagger.Handler())
	if h.Metrics != nil && h.MetricsPath != "" {
		router.Method(http.MethodGet, h.MetricsPath, h.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Webhook != nil {
			r.Post("/payment/webhook", h.Webhook.HandlePaymentWebhook)
		}

		if h.Directory != nil {
			r.Get("/tickets/stations", h.Directory.GetStationNames)
		}

		if h.Auth == nil {
			return
		}

		r.Post("/users/register", h.Auth.Register)
		r.Post("/users/login", h.Auth.Login)
		r.Post("/admin/login", h.Auth.AdminLogin)

		roles := h.Roles
		if roles == nil {
			roles = auth.NewRoleAuthorization(logger)
		}

		// commuter routes
		r.Group(func(cr chi.Router) {
			cr.Use(h.Auth.AuthMiddleware)
			cr.Use(middleware.PrincipalContext)
			cr.Use(roles.RequireCommuter())

			if h.User != nil {
				cr.Get("/users/me", h.User.GetCurrentUser)
				cr.Patch("/users/me", h.User.UpdateCurrentUser)
			}

			if h.Booking != nil {
				cr.Post("/tickets", h.Booking.BookTicket)
				cr.Get("/my-tickets", h.Booking.GetMyTickets)
				cr.Get("/my-tickets/history", h.Booking.GetTravelHistory)
				cr.Post("/create-order", h.Booking.CreateOrder)
				cr.Post("/verify-payment", h.Booking.VerifyPayment)
			}
		})

		// station admin routes
		r.Group(func(ar chi.Router) {
			ar.Use(h.Auth.AuthMiddleware)
			ar.Use(middleware.PrincipalContext)
			ar.Use(roles.RequireStationAdmin())

			if h.Booking != nil {
				ar.Get("/tickets", h.Booking.GetAllTickets)
				ar.Patch("/tickets/{paymentId}/pay", h.Booking.SettlePayment)
			}

			if h.Directory != nil {
				ar.Get("/admin/stations", h.Directory.GetStations)
				ar.Post("/admin/stations", h.Directory.CreateStation)
				ar.Get("/admin/lines", h.Directory.GetLines)
				ar.Post("/admin/lines", h.Directory.CreateLine)
			}
		})
	})
}
