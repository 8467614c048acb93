package donation

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"church_app_backend/internal/domain"
	"church_app_backend/internal/metrics"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreatePaymentIntent(ctx context.Context, params domain.PaymentIntentParams) (domain.PaymentIntent, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(domain.PaymentIntent), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) IncIntentCreated(currency string) { m.Called(currency) }
func (m *MockRecorder) IncIntentFailed(reason string)    { m.Called(reason) }
func (m *MockRecorder) ObserveAmount(amount int64, currency string) {
	m.Called(amount, currency)
}

func newTestService(t *testing.T, provider IntentProvider, opts ...Option) (*Service, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	return NewService(provider, "", logrus.NewEntry(logger), opts...), hook
}

func TestCreateIntentForwardsAmountCurrencyAndMetadata(t *testing.T) {
	provider := new(MockProvider)
	recorder := new(MockRecorder)
	service, hook := newTestService(t, provider, WithRecorder(recorder))

	provider.On("CreatePaymentIntent", mock.Anything, domain.PaymentIntentParams{
		Amount:   500,
		Currency: "usd",
		UserID:   "u1",
	}).Return(domain.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil).Once()
	recorder.On("ObserveAmount", int64(500), "usd").Once()
	recorder.On("IncIntentCreated", "usd").Once()

	result, err := service.CreateIntent(context.Background(), domain.DonationRequest{Amount: 500, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", result.ClientSecret)

	provider.AssertExpectations(t)
	recorder.AssertExpectations(t)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "donation_intent_created", entry.Data["event"])
	assert.Equal(t, "pi_1", entry.Data["payment_intent_id"])
}

func TestCreateIntentUsesConfiguredCurrency(t *testing.T) {
	provider := new(MockProvider)
	logger, _ := logtest.NewNullLogger()
	service := NewService(provider, " EUR ", logrus.NewEntry(logger))

	provider.On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(p domain.PaymentIntentParams) bool {
		return p.Currency == "eur"
	})).Return(domain.PaymentIntent{ClientSecret: "secret"}, nil).Once()

	_, err := service.CreateIntent(context.Background(), domain.DonationRequest{Amount: 100, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "eur", service.Currency())
	provider.AssertExpectations(t)
}

func TestCreateIntentRejectsInvalidRequestsWithoutProviderCall(t *testing.T) {
	tests := []struct {
		name    string
		request domain.DonationRequest
		message string
	}{
		{name: "zero amount", request: domain.DonationRequest{Amount: 0, UserID: "u1"}, message: "amount"},
		{name: "negative amount", request: domain.DonationRequest{Amount: -5, UserID: "u1"}, message: "amount"},
		{name: "empty user", request: domain.DonationRequest{Amount: 500, UserID: ""}, message: "userId"},
		{name: "blank user", request: domain.DonationRequest{Amount: 500, UserID: "   "}, message: "userId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := new(MockProvider)
			recorder := new(MockRecorder)
			service, _ := newTestService(t, provider, WithRecorder(recorder))
			recorder.On("IncIntentFailed", metrics.ReasonInvalid).Once()

			_, err := service.CreateIntent(context.Background(), tt.request)
			require.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.Contains(t, err.Error(), tt.message)

			provider.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)
			recorder.AssertExpectations(t)
		})
	}
}

func TestCreateIntentRequiresIdempotencyKeyWhenConfigured(t *testing.T) {
	provider := new(MockProvider)
	service, _ := newTestService(t, provider, WithIdempotencyKeyRequired(true))

	_, err := service.CreateIntent(context.Background(), domain.DonationRequest{Amount: 500, UserID: "u1"})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	provider.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)

	provider.On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(p domain.PaymentIntentParams) bool {
		return p.IdempotencyKey == "key-7"
	})).Return(domain.PaymentIntent{ClientSecret: "secret"}, nil).Once()

	_, err = service.CreateIntent(context.Background(), domain.DonationRequest{Amount: 500, UserID: "u1", IdempotencyKey: " key-7 "})
	require.NoError(t, err)
	provider.AssertExpectations(t)
}

func TestCreateIntentMapsProviderFailure(t *testing.T) {
	provider := new(MockProvider)
	recorder := new(MockRecorder)
	service, hook := newTestService(t, provider, WithRecorder(recorder))

	detail := errors.New("stripe: card_declined sk_live_leak")
	provider.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(domain.PaymentIntent{}, detail).Once()
	recorder.On("ObserveAmount", int64(500), "usd").Once()
	recorder.On("IncIntentFailed", metrics.ReasonProvider).Once()

	_, err := service.CreateIntent(context.Background(), domain.DonationRequest{Amount: 500, UserID: "u1"})
	require.ErrorIs(t, err, domain.ErrProviderError)
	require.ErrorIs(t, err, detail)
	provider.AssertNumberOfCalls(t, "CreatePaymentIntent", 1)
	recorder.AssertExpectations(t)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, detail, entry.Data[logrus.ErrorKey])
}

func TestCreateIntentTreatsEmptySecretAsProviderFailure(t *testing.T) {
	provider := new(MockProvider)
	service, _ := newTestService(t, provider)

	provider.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(domain.PaymentIntent{ID: "pi_2"}, nil).Once()

	_, err := service.CreateIntent(context.Background(), domain.DonationRequest{Amount: 500, UserID: "u1"})
	require.ErrorIs(t, err, domain.ErrProviderError)
}

func TestCreateIntentMapsContextErrors(t *testing.T) {
	t.Run("cancelled", func(t *testing.T) {
		provider := new(MockProvider)
		recorder := new(MockRecorder)
		service, _ := newTestService(t, provider, WithRecorder(recorder))

		ctx, cancel := context.WithCancel(context.Background())
		provider.On("CreatePaymentIntent", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(domain.PaymentIntent{}, errors.New("request aborted")).Once()
		recorder.On("ObserveAmount", mock.Anything, mock.Anything)
		recorder.On("IncIntentFailed", metrics.ReasonCancelled).Once()

		_, err := service.CreateIntent(ctx, domain.DonationRequest{Amount: 500, UserID: "u1"})
		require.ErrorIs(t, err, domain.ErrCancelled)
		recorder.AssertExpectations(t)
	})

	t.Run("timeout", func(t *testing.T) {
		provider := new(MockProvider)
		service, _ := newTestService(t, provider)

		provider.On("CreatePaymentIntent", mock.Anything, mock.Anything).
			Return(domain.PaymentIntent{}, context.DeadlineExceeded).Once()

		_, err := service.CreateIntent(context.Background(), domain.DonationRequest{Amount: 500, UserID: "u1"})
		require.ErrorIs(t, err, domain.ErrTimeout)
	})
}

func TestCreateIntentRequiresInitialization(t *testing.T) {
	var service *Service
	_, err := service.CreateIntent(context.Background(), domain.DonationRequest{Amount: 1, UserID: "u"})
	assert.Error(t, err)
}
