// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "church_app"

// Failure reasons reported by DonationMetrics.IncIntentFailed.
const (
	ReasonInvalid   = "invalid"
	ReasonProvider  = "provider"
	ReasonCancelled = "cancelled"
	ReasonTimeout   = "timeout"
)

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// DonationMetrics counts payment intent outcomes.
type DonationMetrics struct {
	created *prometheus.CounterVec
	failed  *prometheus.CounterVec
	amount  *prometheus.HistogramVec
}

// NewDonationMetrics registers the donation collectors on registry.
func NewDonationMetrics(registry prometheus.Registerer) *DonationMetrics {
	factory := promauto.With(registry)

	return &DonationMetrics{
		created: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "donation_intents_created_total",
				Help:      "Payment intents created with the payment provider.",
			},
			[]string{"currency"},
		),
		failed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "donation_intents_failed_total",
				Help:      "Payment intent requests that did not produce a client secret.",
			},
			[]string{"reason"},
		),
		amount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "donation_amount_minor_units",
				Help:      "Requested donation amounts in the currency's minor unit.",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6), // 1.00 .. 100000.00
			},
			[]string{"currency"},
		),
	}
}

// IncIntentCreated records a successful intent.
func (m *DonationMetrics) IncIntentCreated(currency string) {
	m.created.WithLabelValues(currency).Inc()
}

// IncIntentFailed records a failed intent by reason.
func (m *DonationMetrics) IncIntentFailed(reason string) {
	m.failed.WithLabelValues(reason).Inc()
}

// ObserveAmount records the requested amount.
func (m *DonationMetrics) ObserveAmount(amount int64, currency string) {
	m.amount.WithLabelValues(currency).Observe(float64(amount))
}

// ProfileMetrics counts profile lifecycle events.
type ProfileMetrics struct {
	created  *prometheus.CounterVec
	promoted prometheus.Counter
}

// NewProfileMetrics registers the profile collectors on registry.
func NewProfileMetrics(registry prometheus.Registerer) *ProfileMetrics {
	factory := promauto.With(registry)

	return &ProfileMetrics{
		created: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profiles_created_total",
				Help:      "User profiles written by create, including replacements.",
			},
			[]string{"role"},
		),
		promoted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profiles_promoted_total",
				Help:      "User profiles promoted to admin.",
			},
		),
	}
}

// IncProfileCreated records a create for role.
func (m *ProfileMetrics) IncProfileCreated(role string) {
	m.created.WithLabelValues(role).Inc()
}

// IncProfilePromoted records a promotion.
func (m *ProfileMetrics) IncProfilePromoted() {
	m.promoted.Inc()
}

// HTTPMetrics tracks request counts and latency per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP collectors on registry.
func NewHTTPMetrics(registry prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(registry)

	return &HTTPMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status code.",
			},
			[]string{"route", "method", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

// ObserveRequest records one finished request.
func (m *HTTPMetrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
