package service

import "errors"

var (
	// ErrValidation means the request itself is unacceptable.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound means no payment intent has the given id.
	ErrNotFound = errors.New("payment_intent not found")
	// ErrConflict covers key reuse with another payload and confirming a
	// non-confirmable intent. Stored data is left untouched.
	ErrConflict = errors.New("conflict")
	// ErrIdempotencyInconsistent means a record has neither a usable
	// response nor a payment intent reference.
	ErrIdempotencyInconsistent = errors.New("idempotency record exists but has no stored response or payment_intent_id")
)
