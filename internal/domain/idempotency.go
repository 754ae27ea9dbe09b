package domain

import (
	"errors"
	"time"
)

// ErrKeyConflict indicates an idempotency key reused by a different owner.
var ErrKeyConflict = errors.New("idempotency key already used by another user")

// IdempotencyRecord binds a client-supplied idempotency key to the transfer it
// produced. Keys are globally unique; a repeated admission with a recorded key
// returns the bound transfer without side effects.
type IdempotencyRecord struct {
	Key        string    `json:"key"`
	Owner      string    `json:"owner"`
	TransferID int64     `json:"transfer_id"`
	CreatedAt  time.Time `json:"created_at"`
}
