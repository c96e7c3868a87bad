package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/richardliu001/payment-intents/internal/logger"
	"github.com/richardliu001/payment-intents/internal/model"
	"github.com/richardliu001/payment-intents/internal/outbox"
	"github.com/richardliu001/payment-intents/internal/repo"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	repo        *repo.Repository
	intents     *PaymentIntentService
	coordinator *IdempotencyCoordinator
}

func newTestEnv(t *testing.T) (*testEnv, context.Context) {
	// one connection: concurrent callers queue on the pool instead of
	// tripping over SQLite's database-level lock
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.PaymentIntent{}, &model.IdempotencyRecord{}, &model.OutboxEvent{}))

	log, err := logger.NewLogger("error")
	require.NoError(t, err)
	repository := repo.NewRepository(db, log)
	return &testEnv{
		db:          db,
		repo:        repository,
		intents:     NewPaymentIntentService(repository, outbox.NewWriter(repository), log),
		coordinator: NewIdempotencyCoordinator(repository, CreatePaymentIntentEndpoint, log),
	}, context.Background()
}

func (e *testEnv) count(t *testing.T, m interface{}, query string, args ...interface{}) int64 {
	var n int64
	q := e.db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func (e *testEnv) events(t *testing.T, eventType model.EventType) int64 {
	return e.count(t, &model.OutboxEvent{}, "event_type = ?", eventType)
}

func mustParse(t *testing.T, s string) uuid.UUID {
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
