package service

import (
	"fmt"
	"strings"

	"github.com/richardliu001/payment-intents/internal/model"
)

type CreatePaymentIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Validate checks amount and currency before any storage work.
func (r CreatePaymentIntentRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrValidation)
	}
	if strings.TrimSpace(r.Currency) == "" {
		return fmt.Errorf("%w: currency is required", ErrValidation)
	}
	return nil
}

// PaymentIntentResponse is the wire shape of an intent, also stored as the
// idempotent replay body.
type PaymentIntentResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

func NewPaymentIntentResponse(pi *model.PaymentIntent) PaymentIntentResponse {
	return PaymentIntentResponse{
		ID:       pi.ID.String(),
		Amount:   pi.Amount,
		Currency: pi.Currency,
		Status:   string(pi.Status),
	}
}

// eventPayload is the outbox snapshot of an intent.
type eventPayload struct {
	PaymentIntent PaymentIntentResponse `json:"payment_intent"`
}
