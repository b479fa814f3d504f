package cfapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/krypticgrind/cfcore/internal/appconfig"
	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/pkg/common"
	"github.com/krypticgrind/cfcore/pkg/observability"
)

// Doer is the transport seam; *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client fetches Codeforces API data with mirror failover, retry/backoff and
// cache-backed fallback. All fetch methods are safe for concurrent use;
// identical in-flight calls are collapsed through singleflight.
type Client struct {
	mirrors         []string
	http            Doer
	timeout         time.Duration
	maxRetries      int
	rateLimitWait   time.Duration
	cancelWait      time.Duration
	userAgent       string
	submissionCount int
	upcomingLimit   int

	// online reports current connectivity; nil means assume online. The
	// embedding application wires its reachability signal here.
	online func() bool
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time

	snapshots *cache.SnapshotStore
	store     cache.Store
	sf        singleflight.Group
	log       *slog.Logger
}

// New builds a Client from fetch config. snapshots backs the stale-data
// fallback; store holds small non-snapshot state like the saved handle.
func New(cfg appconfig.FetchConfig, snapshots *cache.SnapshotStore, store cache.Store) *Client {
	return &Client{
		mirrors:         cfg.Mirrors,
		http:            &http.Client{},
		timeout:         time.Duration(cfg.RequestTimeoutSec) * time.Second,
		maxRetries:      cfg.MaxRetries,
		rateLimitWait:   time.Duration(cfg.RateLimitWaitSec) * time.Second,
		cancelWait:      time.Duration(cfg.CancelWaitSec) * time.Second,
		userAgent:       cfg.UserAgent,
		submissionCount: cfg.SubmissionCount,
		upcomingLimit:   cfg.UpcomingLimit,
		sleep:           sleepCtx,
		now:             time.Now,
		snapshots:       snapshots,
		store:           store,
		log:             observability.Component("cfapi"),
	}
}

// SetOnline installs a connectivity probe consulted before each fetch.
func (c *Client) SetOnline(probe func() bool) { c.online = probe }

// SubmissionCount is the default page size for FetchSubmissions.
func (c *Client) SubmissionCount() int { return c.submissionCount }

// SaveHandle persists the active handle across sessions.
func (c *Client) SaveHandle(ctx context.Context, handle string) error {
	return c.store.Set(ctx, cache.KeySavedHandle, handle)
}

// SavedHandle returns the persisted handle, empty when none is saved.
func (c *Client) SavedHandle(ctx context.Context) (string, error) {
	h, err := c.store.Get(ctx, cache.KeySavedHandle)
	if err == cache.ErrCacheMiss {
		return "", nil
	}
	return h, err
}

// ClearHandle drops the persisted handle and every snapshot tied to it.
func (c *Client) ClearHandle(ctx context.Context) error {
	handle, err := c.SavedHandle(ctx)
	if err != nil {
		return err
	}
	if handle != "" {
		if err := c.snapshots.Invalidate(ctx, cache.HandleKeys(handle)...); err != nil {
			return err
		}
	}
	return c.store.Del(ctx, cache.KeySavedHandle)
}

func (c *Client) isOnline() bool {
	return c.online == nil || c.online()
}

// fallbackEligible reports whether a failure kind may be papered over with
// cached data. Authoritative API answers never are.
func fallbackEligible(kind common.Kind) bool {
	switch kind {
	case common.KindNotFound, common.KindAPILogical:
		return false
	default:
		return true
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
