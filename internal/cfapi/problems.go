package cfapi

import (
	"context"
	"net/url"
	"strings"

	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/internal/model"
)

const epProblemsetProblems = "problemset.problems"

// FetchProblems returns the problemset, optionally narrowed to problems
// carrying every given tag. Each tag combination gets its own snapshot so the
// practice browser keeps working offline.
func (c *Client) FetchProblems(ctx context.Context, tags []string) (model.ProblemsetResult, error) {
	joined := strings.Join(tags, ";")
	v, err, _ := c.sf.Do(epProblemsetProblems+":"+joined, func() (any, error) {
		r, ferr := c.fetchProblems(ctx, joined)
		return r, ferr
	})
	result, _ := v.(model.ProblemsetResult)
	return result, err
}

func (c *Client) fetchProblems(ctx context.Context, joinedTags string) (model.ProblemsetResult, error) {
	path := "/problemset.problems"
	if joinedTags != "" {
		path += "?tags=" + url.QueryEscape(joinedTags)
	}
	key := cache.ProblemsKey(joinedTags)
	result, err := execute[model.ProblemsetResult](ctx, c, epProblemsetProblems, path)
	if err != nil {
		var cached model.ProblemsetResult
		if c.loadFallback(ctx, epProblemsetProblems, key, err, &cached) {
			return cached, err
		}
		return model.ProblemsetResult{}, err
	}
	c.saveSnapshot(ctx, key, result)
	return result, nil
}
