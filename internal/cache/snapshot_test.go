package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	Handle string `json:"handle"`
	Rating int    `json:"rating"`
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	snap := newSnapshotStoreForTest(mem, 24*time.Hour, func() time.Time { return base })

	if err := snap.Save(ctx, "cached_profile_tourist", payload{Handle: "tourist", Rating: 3979}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var got payload
	at, err := snap.LoadIfFresh(ctx, "cached_profile_tourist", &got)
	if err != nil {
		t.Fatalf("LoadIfFresh: %v", err)
	}
	if got.Rating != 3979 || got.Handle != "tourist" {
		t.Errorf("payload = %+v", got)
	}
	if !at.Equal(base.Truncate(time.Second)) {
		t.Errorf("write time = %v, want %v", at, base)
	}
}

func TestSnapshotStaleAfterWindow(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	snap := newSnapshotStoreForTest(mem, 24*time.Hour, clock)

	if err := snap.Save(ctx, "cached_contests", payload{Handle: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Just inside the window.
	now = now.Add(24*time.Hour - time.Second)
	var got payload
	if _, err := snap.LoadIfFresh(ctx, "cached_contests", &got); err != nil {
		t.Fatalf("LoadIfFresh inside window: %v", err)
	}

	// Exactly the window age is already stale, but the payload is still
	// handed back.
	now = now.Add(time.Second)
	got = payload{}
	_, err := snap.LoadIfFresh(ctx, "cached_contests", &got)
	if !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
	if got.Handle != "x" {
		t.Errorf("stale payload not populated: %+v", got)
	}

	// Load ignores age entirely.
	got = payload{}
	if _, err := snap.Load(ctx, "cached_contests", &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Handle != "x" {
		t.Errorf("payload = %+v", got)
	}
}

func TestSnapshotMissAndInvalidate(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	snap := NewSnapshotStore(mem, 24*time.Hour)

	var got payload
	if _, err := snap.LoadIfFresh(ctx, "absent", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("err = %v, want ErrCacheMiss", err)
	}

	if err := snap.Save(ctx, "cached_rating_tourist", payload{Handle: "tourist"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := snap.Invalidate(ctx, "cached_rating_tourist"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := snap.Load(ctx, "cached_rating_tourist", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("after invalidate err = %v, want ErrCacheMiss", err)
	}
	if mem.Len() != 0 {
		t.Errorf("leftover keys = %d, want 0", mem.Len())
	}
}

func TestSnapshotAge(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	snap := newSnapshotStoreForTest(mem, time.Hour, func() time.Time { return now })

	if err := snap.Save(ctx, "k", payload{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	now = now.Add(90 * time.Minute)
	age, err := snap.Age(ctx, "k")
	if err != nil {
		t.Fatalf("Age: %v", err)
	}
	if age != 90*time.Minute {
		t.Errorf("age = %v, want 90m", age)
	}
}

func TestHandleKeys(t *testing.T) {
	keys := HandleKeys("jiangly")
	want := []string{"cached_profile_jiangly", "cached_rating_jiangly", "cached_submissions_jiangly"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
