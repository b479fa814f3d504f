// Package notes keeps per-problem study state: free-form notes, review-later
// bookmarks and saved solutions. Everything persists through the shared cache
// store so it survives restarts and syncs across devices sharing a Redis.
package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/pkg/observability"
)

var (
	ErrNoteNotFound     = errors.New("notes: note not found")
	ErrSolutionNotFound = errors.New("notes: solution not found")
)

// Note is one free-form annotation attached to a problem key.
type Note struct {
	ID         string    `json:"id"`
	ProblemKey string    `json:"problemKey"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Solution is the user's saved code for a problem, one per problem key.
type Solution struct {
	ProblemKey string    `json:"problemKey"`
	Language   string    `json:"language"`
	Code       string    `json:"code"`
	SavedAt    time.Time `json:"savedAt"`
}

// Service serializes all read-modify-write cycles with one mutex; the store
// itself only sees whole-document swaps.
type Service struct {
	store cache.Store
	now   func() time.Time
	newID func() string
	mu    sync.Mutex
	log   *slog.Logger
}

func NewService(store cache.Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
		log:   observability.Component("notes"),
	}
}

// Add creates a note under problemKey.
func (s *Service) Add(ctx context.Context, problemKey, text string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadNotes(ctx)
	if err != nil {
		return Note{}, err
	}
	note := Note{
		ID:         s.newID(),
		ProblemKey: problemKey,
		Text:       text,
		CreatedAt:  s.now(),
		UpdatedAt:  s.now(),
	}
	all[problemKey] = append(all[problemKey], note)
	if err := s.saveJSON(ctx, cache.KeyProblemNotes, all); err != nil {
		return Note{}, err
	}
	return note, nil
}

// Update replaces the text of an existing note.
func (s *Service) Update(ctx context.Context, id, text string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadNotes(ctx)
	if err != nil {
		return Note{}, err
	}
	for key, list := range all {
		for i := range list {
			if list[i].ID != id {
				continue
			}
			list[i].Text = text
			list[i].UpdatedAt = s.now()
			all[key] = list
			if err := s.saveJSON(ctx, cache.KeyProblemNotes, all); err != nil {
				return Note{}, err
			}
			return list[i], nil
		}
	}
	return Note{}, ErrNoteNotFound
}

// Delete removes a note by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadNotes(ctx)
	if err != nil {
		return err
	}
	for key, list := range all {
		for i := range list {
			if list[i].ID != id {
				continue
			}
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(all, key)
			} else {
				all[key] = list
			}
			return s.saveJSON(ctx, cache.KeyProblemNotes, all)
		}
	}
	return ErrNoteNotFound
}

// ForProblem lists the notes on one problem in creation order.
func (s *Service) ForProblem(ctx context.Context, problemKey string) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadNotes(ctx)
	if err != nil {
		return nil, err
	}
	return append([]Note(nil), all[problemKey]...), nil
}

// MarkReviewLater bookmarks a problem; marking twice is a no-op.
func (s *Service) MarkReviewLater(ctx context.Context, problemKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.loadReviewLater(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == problemKey {
			return nil
		}
	}
	return s.saveJSON(ctx, cache.KeyReviewLater, append(keys, problemKey))
}

// UnmarkReviewLater drops the bookmark; absent keys are a no-op.
func (s *Service) UnmarkReviewLater(ctx context.Context, problemKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.loadReviewLater(ctx)
	if err != nil {
		return err
	}
	out := keys[:0]
	for _, k := range keys {
		if k != problemKey {
			out = append(out, k)
		}
	}
	return s.saveJSON(ctx, cache.KeyReviewLater, out)
}

// ReviewLater lists bookmarked problem keys in marking order.
func (s *Service) ReviewLater(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadReviewLater(ctx)
}

// IsReviewLater reports whether a problem is bookmarked.
func (s *Service) IsReviewLater(ctx context.Context, problemKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.loadReviewLater(ctx)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if k == problemKey {
			return true, nil
		}
	}
	return false, nil
}

// SaveSolution stores or overwrites the one saved solution for a problem.
func (s *Service) SaveSolution(ctx context.Context, problemKey, language, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadSolutions(ctx)
	if err != nil {
		return err
	}
	all[problemKey] = Solution{
		ProblemKey: problemKey,
		Language:   language,
		Code:       code,
		SavedAt:    s.now(),
	}
	return s.saveJSON(ctx, cache.KeyProblemSolutions, all)
}

// Solution returns the saved solution for a problem.
func (s *Service) Solution(ctx context.Context, problemKey string) (Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadSolutions(ctx)
	if err != nil {
		return Solution{}, err
	}
	sol, ok := all[problemKey]
	if !ok {
		return Solution{}, ErrSolutionNotFound
	}
	return sol, nil
}

// DeleteSolution removes the saved solution, if any.
func (s *Service) DeleteSolution(ctx context.Context, problemKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadSolutions(ctx)
	if err != nil {
		return err
	}
	if _, ok := all[problemKey]; !ok {
		return nil
	}
	delete(all, problemKey)
	return s.saveJSON(ctx, cache.KeyProblemSolutions, all)
}

func (s *Service) loadNotes(ctx context.Context) (map[string][]Note, error) {
	out := make(map[string][]Note)
	if err := s.loadJSON(ctx, cache.KeyProblemNotes, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) loadReviewLater(ctx context.Context) ([]string, error) {
	out := []string{}
	if err := s.loadJSON(ctx, cache.KeyReviewLater, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) loadSolutions(ctx context.Context) (map[string]Solution, error) {
	out := make(map[string]Solution)
	if err := s.loadJSON(ctx, cache.KeyProblemSolutions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadJSON leaves out untouched on a cache miss.
func (s *Service) loadJSON(ctx context.Context, key string, out any) error {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Service) saveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.store.Set(ctx, key, string(data))
}
