package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IdempotencyRecord is unique on (key, endpoint). PaymentIntentID is written
// before ResponseBody and is what a retry falls back on when the body is
// still the empty placeholder.
type IdempotencyRecord struct {
	Key             string         `gorm:"column:key;type:text;primaryKey"`
	Endpoint        string         `gorm:"column:endpoint;size:128;primaryKey"`
	RequestHash     string         `gorm:"size:64;not null"`
	ResponseBody    datatypes.JSON `gorm:"not null"`
	PaymentIntentID *uuid.UUID     `gorm:"type:uuid"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (IdempotencyRecord) TableName() string { return "idempotency_keys" }

// EmptyResponseBody is the placeholder stored at reservation time.
var EmptyResponseBody = datatypes.JSON(`{}`)
