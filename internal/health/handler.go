// Package health serves the liveness/readiness probe mounted at /healthz.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"church_app_backend/internal/logging"
)

const mongoPingTimeout = 2 * time.Second

// MongoChecker defines the subset of MongoDB client behavior required for health.
type MongoChecker interface {
	Ping(ctx context.Context) error
}

// Handler reports process health as JSON. A failing dependency yields 503.
type Handler struct {
	logger       *logrus.Entry
	mongoChecker MongoChecker
	pingTimeout  time.Duration
}

type response struct {
	Status string `json:"status"`
	Mongo  string `json:"mongo,omitempty"`
}

// NewHandler constructs a health handler backed by mongoChecker.
func NewHandler(mongoChecker MongoChecker, logger *logrus.Entry) *Handler {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Handler{
		logger:       logger,
		mongoChecker: mongoChecker,
		pingTimeout:  mongoPingTimeout,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := response{Status: "ok"}
	status := http.StatusOK

	if !h.mongoHealthy(r.Context()) {
		resp.Status = "degraded"
		resp.Mongo = "error"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.WithField("event", "health_write_error").WithError(err).Error("failed to encode health response")
	}
}

func (h *Handler) mongoHealthy(ctx context.Context) bool {
	if h.mongoChecker == nil {
		h.logger.WithField("event", "health_mongo_missing").Warn("mongo checker is not configured for health endpoint")
		return false
	}

	pingCtx, cancel := context.WithTimeout(ctx, h.pingTimeout)
	defer cancel()

	if err := h.mongoChecker.Ping(pingCtx); err != nil {
		h.logger.WithFields(logging.Fields{
			"event": "health_mongo_error",
		}).WithError(err).Warn("mongo ping failed during health check")
		return false
	}

	return true
}
