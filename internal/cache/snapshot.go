package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrStale means a snapshot exists but is older than the freshness window.
// Callers decide whether stale data is still worth showing.
var ErrStale = errors.New("cache: snapshot stale")

// SnapshotStore persists typed snapshots alongside a write timestamp so the
// fallback layer can distinguish fresh, stale and missing data. Each snapshot
// occupies two keys: the JSON payload and "<key>_cache_time" holding unix
// seconds of the last write.
type SnapshotStore struct {
	store  Store
	maxAge time.Duration
	now    func() time.Time
}

func NewSnapshotStore(store Store, maxAge time.Duration) *SnapshotStore {
	return &SnapshotStore{store: store, maxAge: maxAge, now: time.Now}
}

func newSnapshotStoreForTest(store Store, maxAge time.Duration, now func() time.Time) *SnapshotStore {
	return &SnapshotStore{store: store, maxAge: maxAge, now: now}
}

func timeKey(key string) string { return key + "_cache_time" }

// Save marshals v and stamps the write time. The payload write happens first
// so a crash between the two leaves the snapshot stale rather than phantom.
func (s *SnapshotStore) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, string(data)); err != nil {
		return err
	}
	return s.store.Set(ctx, timeKey(key), strconv.FormatInt(s.now().Unix(), 10))
}

// Invalidate removes the snapshots and their timestamps.
func (s *SnapshotStore) Invalidate(ctx context.Context, keys ...string) error {
	all := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		all = append(all, k, timeKey(k))
	}
	return s.store.Del(ctx, all...)
}

// Age reports how long ago the snapshot was written. ErrCacheMiss when the
// snapshot or its timestamp is absent.
func (s *SnapshotStore) Age(ctx context.Context, key string) (time.Duration, error) {
	raw, err := s.store.Get(ctx, timeKey(key))
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse snapshot time %s: %w", key, err)
	}
	return s.now().Sub(time.Unix(sec, 0)), nil
}

// Load reads a snapshot of any age into out, reporting its write time.
func (s *SnapshotStore) Load(ctx context.Context, key string, out any) (time.Time, error) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return time.Time{}, fmt.Errorf("unmarshal snapshot %s: %w", key, err)
	}
	tsRaw, err := s.store.Get(ctx, timeKey(key))
	if err != nil {
		// Payload without timestamp counts as stale from the epoch.
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return time.Time{}, nil
	}
	return time.Unix(sec, 0), nil
}

// LoadIfFresh reads a snapshot only when it is younger than the freshness
// window. Returns ErrStale (with out populated) when the data exists but has
// aged out, ErrCacheMiss when absent.
func (s *SnapshotStore) LoadIfFresh(ctx context.Context, key string, out any) (time.Time, error) {
	at, err := s.Load(ctx, key, out)
	if err != nil {
		return time.Time{}, err
	}
	if s.now().Sub(at) >= s.maxAge {
		return at, ErrStale
	}
	return at, nil
}
