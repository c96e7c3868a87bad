package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/richardliu001/payment-intents/internal/model"
	"github.com/richardliu001/payment-intents/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreatePaymentIntentEndpoint scopes idempotency keys for the create call.
const CreatePaymentIntentEndpoint = "POST /v1/payment_intents"

// CreateFunc creates an intent on the given tx.
type CreateFunc func(ctx context.Context, tx *gorm.DB, req CreatePaymentIntentRequest) (*model.PaymentIntent, error)

// CreateResult is what the transport writes back. Replayed marks answers
// served from an existing record.
type CreateResult struct {
	StatusCode int
	Response   PaymentIntentResponse
	Replayed   bool
}

// IdempotencyCoordinator runs creates so that one (key, endpoint) pair yields
// at most one intent, however often and however concurrently it is retried.
type IdempotencyCoordinator struct {
	repo     repo.RepositoryInterface
	endpoint string
	log      *zap.SugaredLogger
}

func NewIdempotencyCoordinator(r repo.RepositoryInterface, endpoint string, logger *zap.SugaredLogger) *IdempotencyCoordinator {
	return &IdempotencyCoordinator{repo: r, endpoint: endpoint, log: logger}
}

// ExecuteCreate runs create exactly once per key. An empty key disables
// deduplication. Every path runs in one transaction; any error rolls it
// back, which also frees a reservation made by this call.
func (c *IdempotencyCoordinator) ExecuteCreate(ctx context.Context, key string, req CreatePaymentIntentRequest, create CreateFunc) (*CreateResult, error) {
	if key == "" {
		return c.createWithoutKey(ctx, req, create)
	}

	hash := Fingerprint(req)
	var result *CreateResult
	err := c.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := c.repo.ReserveIdempotencyKey(ctx, tx, &model.IdempotencyRecord{
			Key:          key,
			Endpoint:     c.endpoint,
			RequestHash:  hash,
			ResponseBody: model.EmptyResponseBody,
		})
		if err != nil {
			return fmt.Errorf("reserve idempotency key: %w", err)
		}
		if won {
			result, err = c.createReserved(ctx, tx, key, req, create)
			return err
		}
		result, err = c.replay(ctx, tx, key, hash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *IdempotencyCoordinator) createWithoutKey(ctx context.Context, req CreatePaymentIntentRequest, create CreateFunc) (*CreateResult, error) {
	var pi *model.PaymentIntent
	err := c.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pi, err = create(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CreateResult{StatusCode: http.StatusCreated, Response: NewPaymentIntentResponse(pi)}, nil
}

// createReserved stores the back-reference before the response body so a
// record that has the reference can always be answered.
func (c *IdempotencyCoordinator) createReserved(ctx context.Context, tx *gorm.DB, key string, req CreatePaymentIntentRequest, create CreateFunc) (*CreateResult, error) {
	pi, err := create(ctx, tx, req)
	if err != nil {
		return nil, err
	}
	if err := c.repo.SetIdempotencyPaymentIntent(ctx, tx, key, c.endpoint, pi.ID); err != nil {
		return nil, fmt.Errorf("store payment_intent_id: %w", err)
	}
	resp := NewPaymentIntentResponse(pi)
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	if err := c.repo.SetIdempotencyResponse(ctx, tx, key, c.endpoint, body); err != nil {
		return nil, fmt.Errorf("store response_body: %w", err)
	}
	c.log.Infof("idempotency key %q reserved for payment_intent %s", key, pi.ID)
	return &CreateResult{StatusCode: http.StatusCreated, Response: resp}, nil
}

func (c *IdempotencyCoordinator) replay(ctx context.Context, tx *gorm.DB, key, hash string) (*CreateResult, error) {
	rec, err := c.repo.GetIdempotencyRecord(ctx, tx, key, c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("load idempotency record: %w", err)
	}
	if rec.RequestHash != hash {
		return nil, fmt.Errorf("%w: idempotency key reused with different request", ErrConflict)
	}

	if resp, ok := completeResponse(rec); ok {
		c.log.Infof("idempotency key %q replayed", key)
		return &CreateResult{StatusCode: http.StatusCreated, Response: resp, Replayed: true}, nil
	}

	if rec.PaymentIntentID == nil {
		c.log.Errorf("idempotency key %q: %v", key, ErrIdempotencyInconsistent)
		return nil, ErrIdempotencyInconsistent
	}

	// the intent exists but the response body never landed
	pi, err := c.repo.GetPaymentIntent(ctx, tx, *rec.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("reconstruct from payment_intent %s: %w", *rec.PaymentIntentID, err)
	}
	resp := NewPaymentIntentResponse(pi)
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	if err := c.repo.SetIdempotencyResponse(ctx, tx, key, c.endpoint, body); err != nil {
		return nil, fmt.Errorf("backfill response_body: %w", err)
	}
	c.log.Warnf("idempotency key %q: rebuilt response from payment_intent %s", key, pi.ID)
	return &CreateResult{StatusCode: http.StatusCreated, Response: resp, Replayed: true}, nil
}

// completeResponse treats a body as complete once it names the intent.
func completeResponse(rec *model.IdempotencyRecord) (PaymentIntentResponse, bool) {
	var resp PaymentIntentResponse
	if len(rec.ResponseBody) == 0 {
		return resp, false
	}
	if err := json.Unmarshal(rec.ResponseBody, &resp); err != nil {
		return resp, false
	}
	return resp, resp.ID != ""
}
