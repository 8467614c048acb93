// Package donation validates donation requests and turns them into payment
// intents with the configured provider.
package donation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"church_app_backend/internal/domain"
	"church_app_backend/internal/logging"
	"church_app_backend/internal/metrics"
)

// DefaultCurrency is used when the service is built without a currency.
const DefaultCurrency = "usd"

// IntentProvider creates payment intents with an external payment provider.
type IntentProvider interface {
	CreatePaymentIntent(ctx context.Context, params domain.PaymentIntentParams) (domain.PaymentIntent, error)
}

// Recorder receives donation outcome counts.
type Recorder interface {
	IncIntentCreated(currency string)
	IncIntentFailed(reason string)
	ObserveAmount(amount int64, currency string)
}

// Option customizes a Service.
type Option func(*Service)

// WithRecorder attaches a metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// WithIdempotencyKeyRequired rejects requests that carry no idempotency key.
func WithIdempotencyKeyRequired(required bool) Option {
	return func(s *Service) {
		s.requireKey = required
	}
}

// Service creates donation payment intents. It is safe for concurrent use.
type Service struct {
	provider   IntentProvider
	currency   string
	logger     *logrus.Entry
	validate   *validator.Validate
	recorder   Recorder
	requireKey bool
}

// NewService builds a Service that charges in currency through provider.
func NewService(provider IntentProvider, currency string, logger *logrus.Entry, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Logger()
	}

	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	s := &Service{
		provider: provider,
		currency: currency,
		logger:   logger,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Currency reports the fixed currency intents are created in.
func (s *Service) Currency() string {
	return s.currency
}

// CreateIntent validates req and asks the provider for exactly one payment
// intent. Invalid input never reaches the provider.
func (s *Service) CreateIntent(ctx context.Context, req domain.DonationRequest) (domain.DonationIntentResult, error) {
	if s == nil || s.provider == nil {
		return domain.DonationIntentResult{}, errors.New("donation service is not initialized")
	}
	if ctx == nil {
		return domain.DonationIntentResult{}, errors.New("context is required")
	}

	req.UserID = strings.TrimSpace(req.UserID)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)

	log := s.logger.WithFields(logging.Fields{
		"user_id": req.UserID,
		"amount":  req.Amount,
	})

	if err := s.check(req); err != nil {
		s.fail(metrics.ReasonInvalid)
		log.WithFields(logging.Fields{
			"event": "donation_rejected",
			"error": err.Error(),
		}).Warn("donation request rejected")
		return domain.DonationIntentResult{}, err
	}

	if s.recorder != nil {
		s.recorder.ObserveAmount(req.Amount, s.currency)
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, domain.PaymentIntentParams{
		Amount:         req.Amount,
		Currency:       s.currency,
		UserID:         req.UserID,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err == nil && strings.TrimSpace(intent.ClientSecret) == "" {
		err = errors.New("provider returned an empty client secret")
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = errors.Join(ctxErr, err)
		}
		wrapped := domain.WrapCollaborator("create payment intent", domain.ErrProviderError, err)
		s.fail(failureReason(wrapped))
		log.WithFields(logging.Fields{
			"event":    "donation_intent_failed",
			"currency": s.currency,
		}).WithError(err).Error("payment intent creation failed")
		return domain.DonationIntentResult{}, wrapped
	}

	if s.recorder != nil {
		s.recorder.IncIntentCreated(s.currency)
	}

	log.WithFields(logging.Fields{
		"event":             "donation_intent_created",
		"currency":          s.currency,
		"payment_intent_id": intent.ID,
	}).Info("donation payment intent created")

	return domain.DonationIntentResult{ClientSecret: intent.ClientSecret}, nil
}

func (s *Service) check(req domain.DonationRequest) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, describe(verrs))
		}
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	if s.requireKey && req.IdempotencyKey == "" {
		return fmt.Errorf("%w: idempotency key is required", domain.ErrInvalidRequest)
	}

	return nil
}

func (s *Service) fail(reason string) {
	if s.recorder != nil {
		s.recorder.IncIntentFailed(reason)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrCancelled):
		return metrics.ReasonCancelled
	case errors.Is(err, domain.ErrTimeout):
		return metrics.ReasonTimeout
	default:
		return metrics.ReasonProvider
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return "idempotencyKey"
		}
		return name
	})
	return v
}

func describe(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "gt":
			parts = append(parts, fe.Field()+" must be greater than "+fe.Param())
		case "max":
			parts = append(parts, fe.Field()+" must be at most "+fe.Param()+" characters")
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
