package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"church_app_backend/internal/domain"
	"church_app_backend/internal/logging"
	"church_app_backend/internal/metrics"
)

// Route paths.
const (
	PathCreateDonationIntent = "/createDonationPaymentIntent"
	PathHealth               = "/healthz"
	PathMetrics              = "/metrics"
)

// DonationCreator is the donation service as seen by the HTTP layer.
type DonationCreator interface {
	CreateIntent(ctx context.Context, req domain.DonationRequest) (domain.DonationIntentResult, error)
}

// Config contains dependencies needed for the router setup.
type Config struct {
	Donations      DonationCreator
	Health         http.Handler
	Gatherer       prometheus.Gatherer
	HTTPMetrics    *metrics.HTTPMetrics
	AllowedOrigins []string
	Logger         *logrus.Entry
}

// NewRouter wires middleware and routes.
func NewRouter(cfg Config) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Logger()
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger, cfg.HTTPMetrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", headerIdempotencyKey, headerRequestID},
		ExposedHeaders: []string{headerRequestID},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	donations := &donationHandler{service: cfg.Donations, logger: logger}
	r.Post(PathCreateDonationIntent, donations.create)

	if cfg.Health != nil {
		r.Method(http.MethodGet, PathHealth, cfg.Health)
	}
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, PathMetrics, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
