// Package cache provides short-lived caching for catalog payloads and the
// per-shopper recent search history.
package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned when a key has no cached value.
var ErrCacheMiss = errors.New("cache: miss")

// DefaultHistoryLimit caps how many recent searches are retained per shopper.
const DefaultHistoryLimit = 10

// Cache stores JSON-encoded values under string keys with a bounded lifetime.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// SearchHistory records the most recent search terms per shopper.
type SearchHistory interface {
	Record(ctx context.Context, shopperID, term string) error
	Recent(ctx context.Context, shopperID string) ([]string, error)
	Clear(ctx context.Context, shopperID string) error
}
