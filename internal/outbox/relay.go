package outbox

import (
	"context"
	"time"

	"github.com/richardliu001/payment-intents/internal/model"
	"github.com/richardliu001/payment-intents/internal/repo"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is satisfied by *kafka.Writer.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Relay moves committed outbox rows to Kafka. Delivery is at-least-once:
// a crash between publish and mark republishes the event.
type Relay struct {
	repo      repo.RepositoryInterface
	pub       Publisher
	locker    Locker
	log       *zap.SugaredLogger
	interval  time.Duration
	batchSize int
}

func NewRelay(r repo.RepositoryInterface, pub Publisher, locker Locker, log *zap.SugaredLogger, interval time.Duration, batchSize int) *Relay {
	return &Relay{repo: r, pub: pub, locker: locker, log: log, interval: interval, batchSize: batchSize}
}

// Run polls until ctx is cancelled.
func (rl *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()

	rl.log.Info("outbox relay started")
	for {
		select {
		case <-ctx.Done():
			rl.log.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := rl.RunOnce(ctx); err != nil {
				rl.log.Errorf("relay tick: %v", err)
			}
		}
	}
}

// RunOnce publishes one batch and returns how many events were marked processed.
// It stops at the first failure so events of one intent keep their order.
func (rl *Relay) RunOnce(ctx context.Context) (int, error) {
	if rl.locker != nil {
		ok, err := rl.locker.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
		defer func() {
			if err := rl.locker.Release(context.Background()); err != nil {
				rl.log.Warnf("release relay lease: %v", err)
			}
		}()
	}

	events, err := rl.repo.PollOutbox(ctx, rl.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, evt := range events {
		if err := rl.extendLease(ctx); err != nil {
			return sent, err
		}
		if err := rl.pub.WriteMessages(ctx, toMessage(evt)); err != nil {
			rl.log.Errorf("publish id=%s: %v", evt.ID, err)
			return sent, err
		}
		if err := rl.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
			rl.log.Errorf("mark processed id=%s: %v", evt.ID, err)
			return sent, err
		}
		rl.log.Infof("event %s (%s) sent", evt.ID, evt.EventType)
		sent++
	}
	return sent, nil
}

// extendLease renews the lease before each publish so a slow batch never
// outlives lease_ttl.
func (rl *Relay) extendLease(ctx context.Context) error {
	if rl.locker == nil {
		return nil
	}
	ok, err := rl.locker.Extend(ctx)
	if err != nil {
		return err
	}
	if !ok {
		rl.log.Warn("relay lease lost, stopping batch")
		return ErrLeaseLost
	}
	return nil
}

func toMessage(evt model.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(evt.AggregateID.String()),
		Value: []byte(evt.Payload),
		Time:  evt.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.ID.String())},
			{Key: "event_type", Value: []byte(evt.EventType)},
		},
	}
}
