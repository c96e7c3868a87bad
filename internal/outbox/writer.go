// Package outbox records domain events next to the state change they
// describe and relays them to Kafka afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/richardliu001/payment-intents/internal/model"
	"github.com/richardliu001/payment-intents/internal/repo"
	"gorm.io/gorm"
)

// Writer appends events. Callers must pass the tx that carries the state
// change; the writer cannot check this.
type Writer struct {
	repo repo.RepositoryInterface
}

func NewWriter(r repo.RepositoryInterface) *Writer {
	return &Writer{repo: r}
}

// Append inserts one event row for a payment intent. It does not retry.
func (w *Writer) Append(ctx context.Context, tx *gorm.DB, eventType model.EventType, aggregateID uuid.UUID, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	evt := &model.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: model.AggregatePaymentIntent,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
	}
	if err := w.repo.CreateOutboxEvent(ctx, tx, evt); err != nil {
		return fmt.Errorf("append %s: %w", eventType, err)
	}
	return nil
}
