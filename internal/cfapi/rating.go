package cfapi

import (
	"context"
	"net/url"
	"sort"

	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/internal/model"
)

const epUserRating = "user.rating"

// FetchRatingHistory returns every rating change for a handle in contest
// order. A brand-new account yields an empty, non-nil slice.
func (c *Client) FetchRatingHistory(ctx context.Context, handle string) ([]model.RatingChange, error) {
	v, err, _ := c.sf.Do(epUserRating+":"+handle, func() (any, error) {
		r, ferr := c.fetchRatingHistory(ctx, handle)
		return r, ferr
	})
	changes, _ := v.([]model.RatingChange)
	return changes, err
}

func (c *Client) fetchRatingHistory(ctx context.Context, handle string) ([]model.RatingChange, error) {
	path := "/user.rating?handle=" + url.QueryEscape(handle)
	changes, err := execute[[]model.RatingChange](ctx, c, epUserRating, path)
	if err != nil {
		var cached []model.RatingChange
		if c.loadFallback(ctx, epUserRating, cache.RatingKey(handle), err, &cached) {
			return cached, err
		}
		return nil, err
	}
	if changes == nil {
		changes = []model.RatingChange{}
	}
	// Oldest first, guaranteed even if a mirror disagrees with the API docs.
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].RatingUpdateTimeSeconds < changes[j].RatingUpdateTimeSeconds
	})
	c.saveSnapshot(ctx, cache.RatingKey(handle), changes)
	return changes, nil
}
