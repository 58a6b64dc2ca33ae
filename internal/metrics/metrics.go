package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frahmantamala/metro-ticketing/internal/core/events"
)

const namespace = "metro"

// Registry owns every collector the service exports. Each instance has its
// own prometheus registry so tests can build as many as they like.
type Registry struct {
	reg *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	bookings      prometheus.Counter
	settlements   *prometheus.CounterVec
	failures      prometheus.Counter
	signatures    *prometheus.CounterVec
	gatewayCalls  *prometheus.HistogramVec
	expiredTotals prometheus.Counter
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Registry{
		reg: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bookings: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_booked_total",
			Help:      "Tickets created in pending state.",
		}),
		settlements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_settled_total",
			Help:      "Payments moved to success, by method.",
		}, []string{"method"}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_failed_total",
			Help:      "Payments moved to failed.",
		}),
		signatures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signature_verifications_total",
			Help:      "Gateway signature checks by result.",
		}, []string{"kind", "result"}),
		gatewayCalls: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Payment gateway call latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation", "outcome"}),
		expiredTotals: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_expired_total",
			Help:      "Pending payments failed by the expiry sweep.",
		}),
	}
}

func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Registry) ObserveGatewayCall(operation, outcome string, elapsed time.Duration) {
	m.gatewayCalls.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
}

func (m *Registry) SignatureChecked(kind string, valid bool) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.signatures.WithLabelValues(kind, result).Inc()
}

func (m *Registry) PaymentsExpired(n int) {
	m.expiredTotals.Add(float64(n))
}

// Subscribe counts domain events as they are published.
func (m *Registry) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeTicketBooked, func(context.Context, events.Event) error {
		m.bookings.Inc()
		return nil
	})
	bus.Subscribe(events.EventTypePaymentSettled, func(_ context.Context, e events.Event) error {
		method := "unknown"
		if settled, ok := e.(*events.PaymentSettledEvent); ok {
			method = settled.Method
		}
		m.settlements.WithLabelValues(method).Inc()
		return nil
	})
	bus.Subscribe(events.EventTypePaymentFailed, func(context.Context, events.Event) error {
		m.failures.Inc()
		return nil
	})
}

// Middleware records request counts and latency keyed by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
