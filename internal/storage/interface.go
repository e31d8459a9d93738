package storage

import (
	"context"
	"time"
)

// Storage is a key-value store for resumption tokens.
// Get returns model.ErrTokenNotFound for absent or expired keys.
type Storage interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
