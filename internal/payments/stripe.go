// Package payments adapts the Stripe API to the donation service.
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"church_app_backend/internal/domain"
	"church_app_backend/internal/logging"
)

// MetadataUserIDKey is the metadata key that links an intent to a profile.
const MetadataUserIDKey = "userId"

// paymentIntentCreator is the slice of the Stripe client the provider calls.
type paymentIntentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeProvider creates payment intents through the Stripe API.
type StripeProvider struct {
	intents paymentIntentCreator
	logger  *logrus.Entry
}

// NewStripeProvider builds a provider authenticated with apiKey. The client
// never retries on its own and logs through logger.
func NewStripeProvider(apiKey string, logger *logrus.Entry) *StripeProvider {
	return newStripeProviderWithURL(apiKey, "", logger)
}

// newStripeProviderWithURL points the API backend at baseURL when set.
func newStripeProviderWithURL(apiKey, baseURL string, logger *logrus.Entry) *StripeProvider {
	if logger == nil {
		logger = logging.Logger()
	}
	clientLogger := logger.WithField("event", "stripe_client")

	backendConfig := func(url string) *stripe.BackendConfig {
		cfg := &stripe.BackendConfig{
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     clientLogger,
		}
		if url != "" {
			cfg.URL = stripe.String(url)
		}
		return cfg
	}

	sc := client.New(apiKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig(baseURL)),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig("")),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig("")),
	})

	return newStripeProvider(sc.PaymentIntents, logger)
}

func newStripeProvider(intents paymentIntentCreator, logger *logrus.Entry) *StripeProvider {
	if logger == nil {
		logger = logging.Logger()
	}
	return &StripeProvider{
		intents: intents,
		logger:  logger,
	}
}

// CreatePaymentIntent creates one intent with automatic payment methods
// enabled. The returned error carries the Stripe error unchanged; callers
// decide what crosses the trust boundary.
func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, in domain.PaymentIntentParams) (domain.PaymentIntent, error) {
	if p == nil || p.intents == nil {
		return domain.PaymentIntent{}, errors.New("stripe provider is not initialized")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.Amount),
		Currency: stripe.String(in.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, in.UserID)
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	intent, err := p.intents.New(params)
	if err != nil {
		logStripeError(p.logger, "create_payment_intent", in.UserID, err)
		return domain.PaymentIntent{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	if intent == nil {
		return domain.PaymentIntent{}, errors.New("stripe: create payment intent: empty response")
	}

	p.logger.WithFields(logging.Fields{
		"event":             "payment_intent_created",
		"user_id":           in.UserID,
		"payment_intent_id": intent.ID,
		"amount":            in.Amount,
		"currency":          in.Currency,
	}).Info("stripe payment intent created")

	return domain.PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

func logStripeError(logger *logrus.Entry, operation, userID string, err error) {
	fields := logging.Fields{
		"event":     "stripe_error",
		"operation": operation,
		"user_id":   userID,
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		fields["type"] = string(stripeErr.Type)
		fields["code"] = string(stripeErr.Code)
		fields["param"] = stripeErr.Param
		fields["message"] = stripeErr.Msg
		fields["request_id"] = stripeErr.RequestID
		fields["status_code"] = stripeErr.HTTPStatusCode
		logger.WithFields(fields).Error("stripe API error")
		return
	}

	logger.WithFields(fields).WithError(err).Error("non-stripe error during stripe operation")
}
