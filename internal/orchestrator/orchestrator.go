// Package orchestrator drives the aggregate load for one handle: profile
// first, then rating history, submissions and upcoming contests concurrently.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/krypticgrind/cfcore/internal/analytics"
	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/internal/model"
	"github.com/krypticgrind/cfcore/pkg/observability"
)

// ErrLoadInProgress is returned when LoadAll is called while a previous load
// is still running. The caller keeps the snapshot it already has.
var ErrLoadInProgress = errors.New("orchestrator: load already in progress")

// Resource names one independently loadable slice of the aggregate.
type Resource string

const (
	ResourceProfile     Resource = "profile"
	ResourceRating      Resource = "rating"
	ResourceSubmissions Resource = "submissions"
	ResourceContests    Resource = "contests"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateFailed  State = "failed"
)

// ResourceState is the per-resource load status. FromCache marks data served
// from the fallback layer after a failed fetch.
type ResourceState struct {
	State     State
	FromCache bool
	Err       error
	UpdatedAt time.Time
}

// Snapshot is an immutable copy of the aggregate at one point in time.
type Snapshot struct {
	Handle           string
	Profile          model.UserProfile
	RatingHistory    []model.RatingChange
	Submissions      []model.Submission
	UpcomingContests []model.Contest
	Stats            analytics.UserStats
	States           map[Resource]ResourceState
}

// Fetcher is the data source seam the orchestrator fans out over.
type Fetcher interface {
	FetchUserInfo(ctx context.Context, handle string) (model.UserProfile, error)
	FetchRatingHistory(ctx context.Context, handle string) ([]model.RatingChange, error)
	FetchSubmissions(ctx context.Context, handle string, count int) ([]model.Submission, error)
	FetchUpcomingContests(ctx context.Context) ([]model.Contest, error)
}

type Orchestrator struct {
	fetcher   Fetcher
	snapshots *cache.SnapshotStore
	subCount  int
	now       func() time.Time
	log       *slog.Logger

	inFlight atomic.Bool

	mu  sync.Mutex
	cur Snapshot

	emu     sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New builds an orchestrator. snapshots may be nil when no cache is wired;
// Refresh then skips invalidation.
func New(fetcher Fetcher, snapshots *cache.SnapshotStore, submissionCount int) *Orchestrator {
	return &Orchestrator{
		fetcher:   fetcher,
		snapshots: snapshots,
		subCount:  submissionCount,
		now:       time.Now,
		log:       observability.Component("orchestrator"),
		cur:       emptySnapshot(""),
		subs:      make(map[int]chan Event),
	}
}

func emptySnapshot(handle string) Snapshot {
	return Snapshot{
		Handle: handle,
		States: map[Resource]ResourceState{
			ResourceProfile:     {State: StateIdle},
			ResourceRating:      {State: StateIdle},
			ResourceSubmissions: {State: StateIdle},
			ResourceContests:    {State: StateIdle},
		},
	}
}

// Snapshot returns a copy of the current aggregate. The slices are shared and
// must be treated as read-only; the state map is copied.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.copySnapshotLocked()
}

func (o *Orchestrator) copySnapshotLocked() Snapshot {
	out := o.cur
	out.States = make(map[Resource]ResourceState, len(o.cur.States))
	for k, v := range o.cur.States {
		out.States[k] = v
	}
	return out
}

// LoadAll loads the whole aggregate for handle. Only one load runs at a time;
// concurrent calls get the current snapshot and ErrLoadInProgress. The
// returned error is nil once the profile loads, even when individual fan-out
// resources failed; their status lives in Snapshot.States.
func (o *Orchestrator) LoadAll(ctx context.Context, handle string) (Snapshot, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return o.Snapshot(), ErrLoadInProgress
	}
	defer o.inFlight.Store(false)

	log := o.log.With("trace_id", uuid.NewString(), "handle", handle)
	log.Info("starting aggregate load")

	o.mu.Lock()
	o.cur = emptySnapshot(handle)
	o.setStateLocked(ResourceProfile, ResourceState{State: StateLoading, UpdatedAt: o.now()})
	o.mu.Unlock()

	profile, perr := o.fetcher.FetchUserInfo(ctx, handle)
	profileFromCache := perr != nil && profile.Handle != ""
	if perr != nil && !profileFromCache {
		log.Error("profile load failed, skipping fan-out", "error", perr)
		o.mu.Lock()
		o.setStateLocked(ResourceProfile, ResourceState{State: StateFailed, Err: perr, UpdatedAt: o.now()})
		snap := o.copySnapshotLocked()
		o.mu.Unlock()
		return snap, perr
	}

	o.mu.Lock()
	o.cur.Profile = profile
	o.setStateLocked(ResourceProfile, ResourceState{State: StateLoaded, FromCache: profileFromCache, UpdatedAt: o.now()})
	o.setStateLocked(ResourceRating, ResourceState{State: StateLoading, UpdatedAt: o.now()})
	o.setStateLocked(ResourceSubmissions, ResourceState{State: StateLoading, UpdatedAt: o.now()})
	o.setStateLocked(ResourceContests, ResourceState{State: StateLoading, UpdatedAt: o.now()})
	o.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		changes, err := o.fetcher.FetchRatingHistory(ctx, handle)
		o.finish(ctx, ResourceRating, err, changes != nil, func(s *Snapshot) {
			s.RatingHistory = changes
		})
	}()
	go func() {
		defer wg.Done()
		subs, err := o.fetcher.FetchSubmissions(ctx, handle, o.subCount)
		o.finish(ctx, ResourceSubmissions, err, subs != nil, func(s *Snapshot) {
			s.Submissions = subs
		})
	}()
	go func() {
		defer wg.Done()
		contests, err := o.fetcher.FetchUpcomingContests(ctx)
		o.finish(ctx, ResourceContests, err, contests != nil, func(s *Snapshot) {
			s.UpcomingContests = contests
		})
	}()
	wg.Wait()

	o.mu.Lock()
	if o.cur.States[ResourceSubmissions].State == StateLoaded {
		o.cur.Stats = analytics.BuildUserStats(o.cur.Submissions, o.cur.RatingHistory, o.now())
	}
	snap := o.copySnapshotLocked()
	o.mu.Unlock()

	log.Info("aggregate load finished",
		"rating", string(snap.States[ResourceRating].State),
		"submissions", string(snap.States[ResourceSubmissions].State),
		"contests", string(snap.States[ResourceContests].State))
	return snap, nil
}

// finish records one fan-out result. hasData distinguishes a cache-served
// result (data plus error) from a plain failure. Nothing is written once the
// caller's context is gone.
func (o *Orchestrator) finish(ctx context.Context, res Resource, err error, hasData bool, apply func(*Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cerr := ctx.Err(); cerr != nil {
		o.setStateLocked(res, ResourceState{State: StateFailed, Err: cerr, UpdatedAt: o.now()})
		return
	}
	switch {
	case err == nil:
		apply(&o.cur)
		o.setStateLocked(res, ResourceState{State: StateLoaded, UpdatedAt: o.now()})
	case hasData:
		apply(&o.cur)
		o.setStateLocked(res, ResourceState{State: StateLoaded, FromCache: true, Err: err, UpdatedAt: o.now()})
	default:
		o.setStateLocked(res, ResourceState{State: StateFailed, Err: err, UpdatedAt: o.now()})
	}
}

// Refresh drops the cached snapshots for handle and reloads everything.
func (o *Orchestrator) Refresh(ctx context.Context, handle string) (Snapshot, error) {
	if o.snapshots != nil {
		keys := append(cache.HandleKeys(handle), cache.KeyCachedContests)
		if err := o.snapshots.Invalidate(ctx, keys...); err != nil {
			o.log.Error("cache invalidation failed", "handle", handle, "error", err)
		}
	}
	return o.LoadAll(ctx, handle)
}
