package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Get when the key has no value.
var ErrCacheMiss = errors.New("cache: miss")

// Store is the minimal key/value surface the fallback layer needs. Both the
// in-memory and Redis implementations satisfy it; values are opaque strings,
// serialization is the caller's concern.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
}
