package domain

// DonationRequest is an inbound request to start a donation payment.
// Amount is expressed in the smallest currency unit.
type DonationRequest struct {
	Amount         int64  `json:"amount" validate:"gt=0"`
	UserID         string `json:"userId" validate:"required"`
	IdempotencyKey string `json:"-" validate:"omitempty,max=255"`
}

// DonationIntentResult carries the secret the client uses to confirm payment.
type DonationIntentResult struct {
	ClientSecret string `json:"clientSecret"`
}

// PaymentIntentParams is the provider-neutral create-intent request.
type PaymentIntentParams struct {
	Amount         int64
	Currency       string
	UserID         string
	IdempotencyKey string
}

// PaymentIntent is the provider's answer to a create-intent request.
type PaymentIntent struct {
	ID           string
	ClientSecret string
}
