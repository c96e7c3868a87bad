package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentIntentStatus string

const (
	StatusRequiresConfirmation PaymentIntentStatus = "requires_confirmation"
	StatusSucceeded            PaymentIntentStatus = "succeeded"
)

// PaymentIntent amount is in minor currency units. Amount and currency never
// change after insert; status only moves requires_confirmation -> succeeded.
type PaymentIntent struct {
	ID        uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Amount    int64               `gorm:"not null"`
	Currency  string              `gorm:"type:text;not null"`
	Status    PaymentIntentStatus `gorm:"size:32;not null;index"`
	CreatedAt time.Time           `gorm:"autoCreateTime"`
	UpdatedAt time.Time           `gorm:"autoUpdateTime"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }
