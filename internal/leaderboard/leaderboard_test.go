package leaderboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/internal/model"
	"github.com/krypticgrind/cfcore/pkg/common"
)

type fakeFetcher struct {
	mu       sync.Mutex
	profiles map[string]model.UserProfile
	ratings  map[string][]model.RatingChange
	subs     map[string][]model.Submission
	downFor  map[string]bool
}

func (f *fakeFetcher) LookupUser(_ context.Context, handle string) (model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.downFor[handle] {
		return model.UserProfile{}, common.E(common.KindTimeout, "user.info", "request deadline exceeded", nil)
	}
	for h, p := range f.profiles {
		if strings.EqualFold(h, handle) {
			return p, nil
		}
	}
	return model.UserProfile{}, common.E(common.KindNotFound, "user.info", "user "+handle+" not found", nil)
}

func (f *fakeFetcher) FetchRatingHistory(_ context.Context, handle string) ([]model.RatingChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ratings[handle], nil
}

func (f *fakeFetcher) FetchSubmissions(_ context.Context, handle string, _ int) ([]model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[handle], nil
}

func accepted(contestID int, index string) model.Submission {
	cid := contestID
	return model.Submission{Verdict: "OK", Problem: model.Problem{ContestID: &cid, Index: index}}
}

func newTestBoard() (*Service, *fakeFetcher) {
	f := &fakeFetcher{
		profiles: map[string]model.UserProfile{
			"tourist": {Handle: "tourist", Rating: 3979, MaxRating: 4009, Rank: "tourist"},
			"jiangly": {Handle: "jiangly", Rating: 3796, MaxRating: 3860, Rank: "tourist"},
			"newbie1": {Handle: "newbie1", Rating: 900, Rank: "newbie"},
		},
		ratings: map[string][]model.RatingChange{
			"tourist": {{ContestID: 1}, {ContestID: 2}, {ContestID: 3}},
			"jiangly": {{ContestID: 1}, {ContestID: 2}},
		},
		subs: map[string][]model.Submission{
			"tourist": {accepted(1, "A"), accepted(1, "A"), accepted(2, "B")},
			"jiangly": {accepted(1, "A")},
		},
		downFor: map[string]bool{},
	}
	return NewService(cache.NewMemory(), f), f
}

func TestAddHandleValidatesAndDedupes(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestBoard()

	if err := s.AddHandle(ctx, "tourist"); err != nil {
		t.Fatalf("AddHandle: %v", err)
	}
	// Same handle, different case.
	if err := s.AddHandle(ctx, "TOURIST"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
	// Unknown handles never make the list.
	if err := s.AddHandle(ctx, "doesnotexist123"); err == nil || errors.Is(err, ErrAlreadyExists) {
		t.Errorf("err = %v, want verification failure", err)
	}
	handles, _ := s.Handles(ctx)
	if len(handles) != 1 || handles[0] != "tourist" {
		t.Errorf("handles = %v", handles)
	}
}

func TestRemoveHandle(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestBoard()
	if err := s.AddHandle(ctx, "tourist"); err != nil {
		t.Fatalf("AddHandle: %v", err)
	}
	if err := s.RemoveHandle(ctx, "Tourist"); err != nil {
		t.Fatalf("RemoveHandle: %v", err)
	}
	if err := s.RemoveHandle(ctx, "tourist"); !errors.Is(err, ErrNotTracked) {
		t.Errorf("err = %v, want ErrNotTracked", err)
	}
	handles, _ := s.Handles(ctx)
	if len(handles) != 0 {
		t.Errorf("handles = %v", handles)
	}
}

func TestStandingsRankedByRating(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestBoard()
	for _, h := range []string{"newbie1", "tourist", "jiangly"} {
		if err := s.AddHandle(ctx, h); err != nil {
			t.Fatalf("AddHandle %s: %v", h, err)
		}
	}

	entries, err := s.Standings(ctx)
	if err != nil {
		t.Fatalf("Standings: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Handle != "tourist" || entries[1].Handle != "jiangly" || entries[2].Handle != "newbie1" {
		t.Errorf("order = %s, %s, %s", entries[0].Handle, entries[1].Handle, entries[2].Handle)
	}
	// Derived columns come from actual data, not profile guesses.
	if entries[0].ProblemsSolved != 2 {
		t.Errorf("tourist solved = %d, want 2 distinct", entries[0].ProblemsSolved)
	}
	if entries[0].ContestsParticipated != 3 {
		t.Errorf("tourist contests = %d, want 3", entries[0].ContestsParticipated)
	}
}

func TestStandingsDeltaAcrossRefreshes(t *testing.T) {
	ctx := context.Background()
	s, f := newTestBoard()
	for _, h := range []string{"tourist", "jiangly"} {
		if err := s.AddHandle(ctx, h); err != nil {
			t.Fatalf("AddHandle %s: %v", h, err)
		}
	}

	entries, err := s.Standings(ctx)
	if err != nil {
		t.Fatalf("Standings: %v", err)
	}
	for _, e := range entries {
		if e.Delta != 0 {
			t.Errorf("first refresh delta for %s = %d, want 0", e.Handle, e.Delta)
		}
	}

	f.mu.Lock()
	p := f.profiles["tourist"]
	p.Rating += 25
	f.profiles["tourist"] = p
	f.mu.Unlock()

	entries, err = s.Standings(ctx)
	if err != nil {
		t.Fatalf("Standings second refresh: %v", err)
	}
	if entries[0].Handle != "tourist" || entries[0].Delta != 25 {
		t.Errorf("tourist delta = %d, want 25", entries[0].Delta)
	}
	if entries[1].Handle != "jiangly" || entries[1].Delta != 0 {
		t.Errorf("jiangly delta = %d, want 0", entries[1].Delta)
	}

	// A failed refresh must not register as a rating drop.
	f.mu.Lock()
	f.downFor["tourist"] = true
	f.mu.Unlock()
	if _, err := s.Standings(ctx); err != nil {
		t.Fatalf("Standings with outage: %v", err)
	}
	f.mu.Lock()
	f.downFor["tourist"] = false
	f.mu.Unlock()
	entries, err = s.Standings(ctx)
	if err != nil {
		t.Fatalf("Standings after recovery: %v", err)
	}
	if entries[0].Handle != "tourist" || entries[0].Delta != 0 {
		t.Errorf("post-recovery delta = %d, want 0", entries[0].Delta)
	}
}

func TestStandingsKeepsFailedRows(t *testing.T) {
	ctx := context.Background()
	s, f := newTestBoard()
	for _, h := range []string{"tourist", "jiangly"} {
		if err := s.AddHandle(ctx, h); err != nil {
			t.Fatalf("AddHandle %s: %v", h, err)
		}
	}
	f.mu.Lock()
	f.downFor["jiangly"] = true
	f.mu.Unlock()

	entries, err := s.Standings(ctx)
	if err != nil {
		t.Fatalf("Standings: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	// Failed rows sink to the bottom but stay visible.
	last := entries[len(entries)-1]
	if last.Handle != "jiangly" || last.Err == nil {
		t.Errorf("last entry = %+v", last)
	}
}
