// Package cache provides the keyed caches used by the scoring pipeline.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// Store is the cache contract the scoring pipeline depends on. Redis backs
// it in production; the in-memory implementation backs tests and
// single-node deployments without Redis.
type Store interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Cache key prefixes
const (
	KeyScorePrefix      = "score:"
	KeyPreferencePrefix = "prefs:"
)

// ScoreKey builds the cache key for one (type, value) pair
func ScoreKey(indicatorType, value string) string {
	return KeyScorePrefix + indicatorType + ":" + value
}
