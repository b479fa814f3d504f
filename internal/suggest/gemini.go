// Package suggest produces training suggestions for a user by asking a
// Gemini model to read their derived statistics. The model output follows a
// line-oriented contract parsed in parse.go; anything malformed is dropped
// rather than surfaced.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/krypticgrind/cfcore/internal/analytics"
	"github.com/krypticgrind/cfcore/internal/appconfig"
	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/internal/model"
	"github.com/krypticgrind/cfcore/pkg/common"
	"github.com/krypticgrind/cfcore/pkg/observability"
)

// ErrNoAPIKey means the service was built without a configured key. The key
// always comes from config or env, never from source.
var ErrNoAPIKey = errors.New("suggest: no API key configured")

type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

type Service struct {
	apiKey         string
	baseURL        string
	model          string
	temperature    float64
	maxSuggestions int
	timeout        time.Duration
	http           Doer
	store          cache.Store
	mu             sync.Mutex
	log            *slog.Logger
}

// NewService builds the suggestion service. store may be nil; tag analyses
// are then fetched fresh each time.
func NewService(cfg appconfig.SuggestConfig, store cache.Store) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	return &Service{
		apiKey:         cfg.APIKey,
		baseURL:        cfg.BaseURL,
		model:          cfg.Model,
		temperature:    cfg.Temperature,
		maxSuggestions: cfg.MaxSuggestions,
		timeout:        time.Duration(cfg.TimeoutSec) * time.Second,
		http:           &http.Client{},
		store:          store,
		log:            observability.Component("suggest"),
	}, nil
}

// Suggestions asks the model for training suggestions based on the user's
// aggregate statistics.
func (s *Service) Suggestions(ctx context.Context, profile model.UserProfile, stats analytics.UserStats) ([]Suggestion, error) {
	text, err := s.generate(ctx, buildPrompt(profile, stats, s.maxSuggestions))
	if err != nil {
		return nil, err
	}
	suggestions := ParseSuggestions(text, s.maxSuggestions)
	s.log.Info("suggestions generated", "handle", profile.Handle, "count", len(suggestions))
	return suggestions, nil
}

// TagAnalysis explains how to practice one problem tag. Responses are cached
// because they change far slower than user data.
func (s *Service) TagAnalysis(ctx context.Context, tag string) (string, error) {
	if cached, ok := s.cachedTag(ctx, tag); ok {
		return cached, nil
	}
	text, err := s.generate(ctx, buildTagPrompt(tag))
	if err != nil {
		return "", err
	}
	s.storeTag(ctx, tag, text)
	return text, nil
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"topK"`
	TopP        float64 `json:"topP"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenConfig{
			Temperature: s.temperature,
			TopK:        40,
			TopP:        0.95,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", common.E(common.KindRateLimited, "suggest.generate",
			"AI suggestion quota exhausted, please try again later", nil)
	}
	if out.Error != nil {
		return "", fmt.Errorf("model error: %s", out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model returned HTTP %d", resp.StatusCode)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("model returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func (s *Service) cachedTag(ctx context.Context, tag string) (string, bool) {
	if s.store == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.store.Get(ctx, cache.KeyTagCache)
	if err != nil {
		return "", false
	}
	var m map[string]string
	if json.Unmarshal([]byte(raw), &m) != nil {
		return "", false
	}
	text, ok := m[tag]
	return text, ok
}

func (s *Service) storeTag(ctx context.Context, tag, text string) {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[string]string)
	if raw, err := s.store.Get(ctx, cache.KeyTagCache); err == nil {
		_ = json.Unmarshal([]byte(raw), &m)
	}
	m[tag] = text
	if data, err := json.Marshal(m); err == nil {
		if serr := s.store.Set(ctx, cache.KeyTagCache, string(data)); serr != nil {
			s.log.Error("tag cache write failed", "tag", tag, "error", serr)
		}
	}
}
