// Package cache holds the idempotency stores that let clients retry
// writes safely.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotReserved is returned when saving a response for a key that was
// never reserved or already expired
var ErrKeyNotReserved = errors.New("idempotency key not reserved")

// Response is a recorded reply to a write request
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore records which request keys were already handled and
// what was answered
type IdempotencyStore interface {
	// Reserve claims key for ttl. It returns false when the key is held
	// by an earlier request.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Save records the response of a reserved key
	Save(ctx context.Context, key string, resp Response, ttl time.Duration) error
	// Load returns the state of key. A reserved key with no response yet
	// is found with a nil response.
	Load(ctx context.Context, key string) (resp *Response, found bool, err error)
	// Release frees key so the request can be retried
	Release(ctx context.Context, key string) error
	Close() error
}
