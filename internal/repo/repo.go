package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richardliu001/payment-intents/internal/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RepositoryInterface restricts Repo methods so services can be tested against fakes.
// Every write takes the caller's tx; none of them commit.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB

	CreatePaymentIntent(ctx context.Context, tx *gorm.DB, pi *model.PaymentIntent) error
	GetPaymentIntent(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)

	ReserveIdempotencyKey(ctx context.Context, tx *gorm.DB, rec *model.IdempotencyRecord) (bool, error)
	GetIdempotencyRecord(ctx context.Context, tx *gorm.DB, key, endpoint string) (*model.IdempotencyRecord, error)
	SetIdempotencyPaymentIntent(ctx context.Context, tx *gorm.DB, key, endpoint string, id uuid.UUID) error
	SetIdempotencyResponse(ctx context.Context, tx *gorm.DB, key, endpoint string, body datatypes.JSON) error

	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error
}

// Repository implements RepositoryInterface.
type Repository struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// CreatePaymentIntent inserts a new intent.
func (r *Repository) CreatePaymentIntent(ctx context.Context, tx *gorm.DB, pi *model.PaymentIntent) error {
	return tx.WithContext(ctx).Create(pi).Error
}

// GetPaymentIntent returns gorm.ErrRecordNotFound when the id is unknown.
func (r *Repository) GetPaymentIntent(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.PaymentIntent, error) {
	var pi model.PaymentIntent
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&pi).Error; err != nil {
		return nil, err
	}
	return &pi, nil
}

// ConfirmPaymentIntent is a single compare-and-set statement. It reports
// false when no row was in requires_confirmation, without saying why.
func (r *Repository) ConfirmPaymentIntent(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&model.PaymentIntent{}).
		Where("id = ? AND status = ?", id, model.StatusRequiresConfirmation).
		Updates(map[string]interface{}{
			"status":     model.StatusSucceeded,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReserveIdempotencyKey inserts the record unless (key, endpoint) already
// exists. A concurrent reservation blocks on the unique index until the
// holder commits or rolls back. Returns true when this call won.
func (r *Repository) ReserveIdempotencyKey(ctx context.Context, tx *gorm.DB, rec *model.IdempotencyRecord) (bool, error) {
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}, {Name: "endpoint"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GetIdempotencyRecord reads the stored record for (key, endpoint).
func (r *Repository) GetIdempotencyRecord(ctx context.Context, tx *gorm.DB, key, endpoint string) (*model.IdempotencyRecord, error) {
	var rec model.IdempotencyRecord
	err := tx.WithContext(ctx).
		Where(&model.IdempotencyRecord{Key: key, Endpoint: endpoint}).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetIdempotencyPaymentIntent writes the back-reference to the created intent.
func (r *Repository) SetIdempotencyPaymentIntent(ctx context.Context, tx *gorm.DB, key, endpoint string, id uuid.UUID) error {
	return tx.WithContext(ctx).
		Model(&model.IdempotencyRecord{Key: key, Endpoint: endpoint}).
		Update("payment_intent_id", id).Error
}

// SetIdempotencyResponse stores the response returned to retries.
func (r *Repository) SetIdempotencyResponse(ctx context.Context, tx *gorm.DB, key, endpoint string, body datatypes.JSON) error {
	return tx.WithContext(ctx).
		Model(&model.IdempotencyRecord{Key: key, Endpoint: endpoint}).
		Update("response_body", body).Error
}

// CreateOutboxEvent writes event.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	return tx.WithContext(ctx).Create(evt).Error
}

// PollOutbox pulls unprocessed events in commit-time order.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("created_at, id").
		Limit(limit).
		Find(&evts).Error
	return evts, err
}

// MarkOutboxProcessed stamps processed_at.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Update("processed_at", &now).Error
}
