// Package leaderboard maintains a user-curated list of rival handles and
// computes standings for them from live API data.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/krypticgrind/cfcore/internal/analytics"
	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/internal/model"
	"github.com/krypticgrind/cfcore/pkg/observability"
)

var (
	ErrAlreadyExists = errors.New("leaderboard: handle already added")
	ErrNotTracked    = errors.New("leaderboard: handle not tracked")
)

// Fetcher is the slice of the API client the leaderboard needs. Profile
// lookups go through LookupUser so refreshing rivals never disturbs the
// saved session handle.
type Fetcher interface {
	LookupUser(ctx context.Context, handle string) (model.UserProfile, error)
	FetchRatingHistory(ctx context.Context, handle string) ([]model.RatingChange, error)
	FetchSubmissions(ctx context.Context, handle string, count int) ([]model.Submission, error)
}

// Entry is one computed leaderboard row. Err is set when the row could not be
// refreshed; stale display fields then hold zero values. Delta is the rating
// movement since the previous successful refresh, zero on first sight.
type Entry struct {
	Handle               string
	Rating               int
	Delta                int
	MaxRating            int
	Rank                 string
	ProblemsSolved       int
	ContestsParticipated int
	Err                  error
}

type Service struct {
	store   cache.Store
	fetcher Fetcher
	mu      sync.Mutex
	log     *slog.Logger
}

func NewService(store cache.Store, fetcher Fetcher) *Service {
	return &Service{
		store:   store,
		fetcher: fetcher,
		log:     observability.Component("leaderboard"),
	}
}

// AddHandle verifies the handle exists, then tracks it. Duplicates compare
// case-insensitively; the stored spelling is whatever the API reports.
func (s *Service) AddHandle(ctx context.Context, handle string) error {
	profile, err := s.fetcher.LookupUser(ctx, handle)
	if err != nil {
		return fmt.Errorf("verify handle %s: %w", handle, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handles, err := s.loadHandles(ctx)
	if err != nil {
		return err
	}
	for _, h := range handles {
		if strings.EqualFold(h, profile.Handle) {
			return ErrAlreadyExists
		}
	}
	return s.saveHandles(ctx, append(handles, profile.Handle))
}

// RemoveHandle stops tracking a handle.
func (s *Service) RemoveHandle(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	handles, err := s.loadHandles(ctx)
	if err != nil {
		return err
	}
	out := handles[:0]
	found := false
	for _, h := range handles {
		if strings.EqualFold(h, handle) {
			found = true
			continue
		}
		out = append(out, h)
	}
	if !found {
		return ErrNotTracked
	}
	return s.saveHandles(ctx, out)
}

// Handles lists tracked handles in insertion order.
func (s *Service) Handles(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadHandles(ctx)
}

// Standings fetches every tracked handle concurrently and ranks the entries
// by current rating, highest first. A handle whose refresh fails keeps its
// row with Err set so the board never silently shrinks.
func (s *Service) Standings(ctx context.Context) ([]Entry, error) {
	handles, err := s.Handles(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(handles))
	var wg sync.WaitGroup
	for i, handle := range handles {
		wg.Add(1)
		go func(i int, handle string) {
			defer wg.Done()
			entries[i] = s.buildEntry(ctx, handle)
		}(i, handle)
	}
	wg.Wait()

	s.applyDeltas(ctx, entries)

	sort.SliceStable(entries, func(i, j int) bool {
		if (entries[i].Err == nil) != (entries[j].Err == nil) {
			return entries[i].Err == nil
		}
		return entries[i].Rating > entries[j].Rating
	})
	return entries, nil
}

// applyDeltas compares each row's rating to the one recorded at the previous
// refresh and remembers the current ratings for the next one. Failed rows keep
// their recorded rating so a transient outage does not fake a drop.
func (s *Service) applyDeltas(ctx context.Context, entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := make(map[string]int)
	if raw, err := s.store.Get(ctx, cache.KeyLeaderboardRatings); err == nil {
		_ = json.Unmarshal([]byte(raw), &prev)
	}

	next := make(map[string]int, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.Err != nil {
			if old, ok := prev[strings.ToLower(e.Handle)]; ok {
				next[strings.ToLower(e.Handle)] = old
			}
			continue
		}
		if old, ok := prev[strings.ToLower(e.Handle)]; ok {
			e.Delta = e.Rating - old
		}
		next[strings.ToLower(e.Handle)] = e.Rating
	}

	data, err := json.Marshal(next)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, cache.KeyLeaderboardRatings, string(data)); err != nil {
		s.log.Error("rating history write failed", "error", err)
	}
}

func (s *Service) buildEntry(ctx context.Context, handle string) Entry {
	entry := Entry{Handle: handle}
	profile, err := s.fetcher.LookupUser(ctx, handle)
	if err != nil && profile.Handle == "" {
		s.log.Error("leaderboard row refresh failed", "handle", handle, "error", err)
		entry.Err = err
		return entry
	}
	entry.Rating = profile.Rating
	entry.MaxRating = profile.MaxRating
	entry.Rank = profile.Rank

	// Solve and contest counts are derived, not guessed: distinct accepted
	// problems and distinct rated contests.
	if subs, serr := s.fetcher.FetchSubmissions(ctx, handle, 0); serr == nil || subs != nil {
		entry.ProblemsSolved = analytics.ProblemsSolved(subs)
	}
	if changes, cerr := s.fetcher.FetchRatingHistory(ctx, handle); cerr == nil || changes != nil {
		entry.ContestsParticipated = analytics.ContestsParticipated(changes)
	}
	return entry
}

func (s *Service) loadHandles(ctx context.Context) ([]string, error) {
	raw, err := s.store.Get(ctx, cache.KeyLeaderboardHandles)
	if errors.Is(err, cache.ErrCacheMiss) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var handles []string
	if err := json.Unmarshal([]byte(raw), &handles); err != nil {
		return nil, fmt.Errorf("decode %s: %w", cache.KeyLeaderboardHandles, err)
	}
	return handles, nil
}

func (s *Service) saveHandles(ctx context.Context, handles []string) error {
	data, err := json.Marshal(handles)
	if err != nil {
		return fmt.Errorf("encode %s: %w", cache.KeyLeaderboardHandles, err)
	}
	return s.store.Set(ctx, cache.KeyLeaderboardHandles, string(data))
}
