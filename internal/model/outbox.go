package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EventType string

const (
	EventPaymentIntentCreated   EventType = "payment_intent.created"
	EventPaymentIntentSucceeded EventType = "payment_intent.succeeded"
)

const AggregatePaymentIntent = "payment_intent"

type OutboxEvent struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	AggregateType string         `gorm:"size:64;not null"`
	AggregateID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	EventType     EventType      `gorm:"size:64;not null"`
	Payload       datatypes.JSON `gorm:"not null"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index"`
	ProcessedAt   *time.Time
}

func (OutboxEvent) TableName() string { return "events_outbox" }
