// Package metrics holds the prometheus collectors of the battle engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trigger labels for RoundsClosed.
const (
	TriggerAuto   = "auto"
	TriggerAdmin  = "admin"
	TriggerPublic = "public"
	TriggerFinish = "finish_match"
)

// Metrics is nil-safe: every recording method is a no-op on a nil receiver.
type Metrics struct {
	VotesCast            *prometheus.CounterVec
	RoundsClosed         *prometheus.CounterVec
	TournamentsFinished  prometheus.Counter
	NotificationFailures prometheus.Counter
	RequestDuration      *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		VotesCast: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battles_votes_total",
				Help: "Total accepted votes, by side.",
			},
			[]string{"choice"},
		),
		RoundsClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battles_rounds_closed_total",
				Help: "Rounds closed and advanced, by what triggered the close.",
			},
			[]string{"trigger"},
		),
		TournamentsFinished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "battles_tournaments_finished_total",
				Help: "Tournaments that crowned a champion.",
			},
		),
		NotificationFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "battles_notification_failures_total",
				Help: "Notifications that could not be stored or pushed.",
			},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "battles_api_request_duration_seconds",
				Help:    "HTTP request duration in seconds, by route pattern and method.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.VotesCast,
		m.RoundsClosed,
		m.TournamentsFinished,
		m.NotificationFailures,
		m.RequestDuration,
	)
	return m
}

func (m *Metrics) VoteCast(choice string) {
	if m == nil {
		return
	}
	m.VotesCast.WithLabelValues(choice).Inc()
}

func (m *Metrics) RoundClosed(trigger string) {
	if m == nil {
		return
	}
	m.RoundsClosed.WithLabelValues(trigger).Inc()
}

func (m *Metrics) TournamentFinished() {
	if m == nil {
		return
	}
	m.TournamentsFinished.Inc()
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationFailures.Inc()
}

// Middleware records request durations labelled by chi route pattern, which keeps ids out of
// the label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
