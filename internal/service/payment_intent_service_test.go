package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/richardliu001/payment-intents/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createIntent(t *testing.T, env *testEnv, ctx context.Context, amount int64, currency string) *model.PaymentIntent {
	var pi *model.PaymentIntent
	err := env.db.Transaction(func(tx *gorm.DB) error {
		var err error
		pi, err = env.intents.Create(ctx, tx, CreatePaymentIntentRequest{Amount: amount, Currency: currency})
		return err
	})
	require.NoError(t, err)
	return pi
}

func TestCreate_InsertsIntentAndEvent(t *testing.T) {
	env, ctx := newTestEnv(t)

	pi := createIntent(t, env, ctx, 1000, "gbp")
	assert.Equal(t, model.StatusRequiresConfirmation, pi.Status)

	got, err := env.intents.Get(ctx, pi.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Amount)
	assert.Equal(t, "gbp", got.Currency)

	var evt model.OutboxEvent
	require.NoError(t, env.db.Where("aggregate_id = ?", pi.ID).First(&evt).Error)
	assert.Equal(t, model.EventPaymentIntentCreated, evt.EventType)
	assert.JSONEq(t,
		`{"payment_intent":{"id":"`+pi.ID.String()+`","amount":1000,"currency":"gbp","status":"requires_confirmation"}}`,
		string(evt.Payload))
}

func TestCreate_ValidationRollsBack(t *testing.T) {
	env, ctx := newTestEnv(t)

	err := env.db.Transaction(func(tx *gorm.DB) error {
		_, err := env.intents.Create(ctx, tx, CreatePaymentIntentRequest{Amount: 0, Currency: "gbp"})
		return err
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, env.count(t, &model.PaymentIntent{}, ""))
	assert.Zero(t, env.count(t, &model.OutboxEvent{}, ""))
}

func TestConfirm_Lifecycle(t *testing.T) {
	env, ctx := newTestEnv(t)
	pi := createIntent(t, env, ctx, 2500, "gbp")

	confirmed, err := env.intents.Confirm(ctx, pi.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSucceeded, confirmed.Status)
	assert.Equal(t, int64(1), env.events(t, model.EventPaymentIntentSucceeded))

	_, err = env.intents.Confirm(ctx, pi.ID)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "succeeded")

	got, err := env.intents.Get(ctx, pi.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSucceeded, got.Status)
	assert.Equal(t, int64(1), env.events(t, model.EventPaymentIntentSucceeded))
}

func TestConfirm_UnknownID(t *testing.T) {
	env, ctx := newTestEnv(t)

	_, err := env.intents.Confirm(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, env.count(t, &model.OutboxEvent{}, ""))
}

func TestConfirm_ConcurrentCallsSucceedOnce(t *testing.T) {
	env, ctx := newTestEnv(t)
	pi := createIntent(t, env, ctx, 2500, "gbp")

	const n = 8
	errs := make([]error, n)
	wg := sync.WaitGroup{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.intents.Confirm(ctx, pi.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(1), env.events(t, model.EventPaymentIntentSucceeded))
}

func TestGet_UnknownID(t *testing.T) {
	env, ctx := newTestEnv(t)

	_, err := env.intents.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
