package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/richardliu001/payment-intents/internal/model"
	"github.com/richardliu001/payment-intents/internal/outbox"
	"github.com/richardliu001/payment-intents/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentIntentService owns the intent lifecycle:
// requires_confirmation -> succeeded, nothing else.
type PaymentIntentService struct {
	repo   repo.RepositoryInterface
	outbox *outbox.Writer
	log    *zap.SugaredLogger
}

// NewPaymentIntentService returns PaymentIntentService.
func NewPaymentIntentService(r repo.RepositoryInterface, w *outbox.Writer, logger *zap.SugaredLogger) *PaymentIntentService {
	return &PaymentIntentService{repo: r, outbox: w, log: logger}
}

// Create inserts a new intent and its created event on the caller's tx.
// It matches CreateFunc so the coordinator can run it inside a reservation.
func (s *PaymentIntentService) Create(ctx context.Context, tx *gorm.DB, req CreatePaymentIntentRequest) (*model.PaymentIntent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pi := &model.PaymentIntent{
		ID:       uuid.New(),
		Amount:   req.Amount,
		Currency: req.Currency,
		Status:   model.StatusRequiresConfirmation,
	}
	if err := s.repo.CreatePaymentIntent(ctx, tx, pi); err != nil {
		return nil, fmt.Errorf("insert payment_intent: %w", err)
	}
	payload := eventPayload{PaymentIntent: NewPaymentIntentResponse(pi)}
	if err := s.outbox.Append(ctx, tx, model.EventPaymentIntentCreated, pi.ID, payload); err != nil {
		return nil, err
	}
	return pi, nil
}

// Confirm moves an intent to succeeded with a compare-and-set update. When
// nothing matched, a read inside the same tx decides between not found and
// conflict; that tx is then rolled back with no writes in it.
func (s *PaymentIntentService) Confirm(ctx context.Context, id uuid.UUID) (*model.PaymentIntent, error) {
	var confirmed *model.PaymentIntent
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.ConfirmPaymentIntent(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("confirm payment_intent: %w", err)
		}
		if !ok {
			current, err := s.repo.GetPaymentIntent(ctx, tx, id)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("load payment_intent: %w", err)
			}
			return fmt.Errorf("%w: cannot confirm payment_intent in status '%s'", ErrConflict, current.Status)
		}

		pi, err := s.repo.GetPaymentIntent(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("load payment_intent: %w", err)
		}
		payload := eventPayload{PaymentIntent: NewPaymentIntentResponse(pi)}
		if err := s.outbox.Append(ctx, tx, model.EventPaymentIntentSucceeded, pi.ID, payload); err != nil {
			return err
		}
		confirmed = pi
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.log.Infof("confirm rejected id=%s: %v", id, err)
		}
		return nil, err
	}
	s.log.Infof("payment_intent %s succeeded", id)
	return confirmed, nil
}

// Get is a plain read.
func (s *PaymentIntentService) Get(ctx context.Context, id uuid.UUID) (*model.PaymentIntent, error) {
	pi, err := s.repo.GetPaymentIntent(ctx, s.repo.DB(ctx), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment_intent: %w", err)
	}
	return pi, nil
}
