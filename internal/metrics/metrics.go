// Package metrics exposes Prometheus instruments for request tiers, the
// response cache and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsdesk_requests_total",
			Help: "Resolved chat requests by the tier that answered and the outcome",
		},
		[]string{"tier", "outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partsdesk_request_duration_seconds",
			Help:    "Time from request start to its terminal fragment",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"tier"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsdesk_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)

	Fragments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsdesk_fragments_total",
			Help: "Fragments emitted by type",
		},
		[]string{"type"},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partsdesk_active_streams",
			Help: "Requests currently streaming",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// Observer receives request lifecycle events.
type Observer interface {
	CacheLookup(hit bool)
	Resolved(tier, outcome string, elapsed time.Duration)
	Fragment(kind string)
	StreamStarted()
	StreamEnded()
}

// Prometheus records events into the package instruments.
type Prometheus struct{}

func (Prometheus) CacheLookup(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

func (Prometheus) Resolved(tier, outcome string, elapsed time.Duration) {
	Requests.WithLabelValues(tier, outcome).Inc()
	RequestDuration.WithLabelValues(tier).Observe(elapsed.Seconds())
}

func (Prometheus) Fragment(kind string) { Fragments.WithLabelValues(kind).Inc() }
func (Prometheus) StreamStarted()       { ActiveStreams.Inc() }
func (Prometheus) StreamEnded()         { ActiveStreams.Dec() }

// Nop discards events.
type Nop struct{}

func (Nop) CacheLookup(bool)                       {}
func (Nop) Resolved(string, string, time.Duration) {}
func (Nop) Fragment(string)                        {}
func (Nop) StreamStarted()                         {}
func (Nop) StreamEnded()                           {}

// Middleware counts HTTP requests by route pattern, which keeps label
// cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}
