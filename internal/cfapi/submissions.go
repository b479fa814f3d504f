package cfapi

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/internal/model"
)

const epUserStatus = "user.status"

// FetchSubmissions returns the newest submissions for a handle, newest first
// as the API orders them. count <= 0 uses the configured default page size.
func (c *Client) FetchSubmissions(ctx context.Context, handle string, count int) ([]model.Submission, error) {
	if count <= 0 {
		count = c.submissionCount
	}
	key := fmt.Sprintf("%s:%s:%d", epUserStatus, handle, count)
	v, err, _ := c.sf.Do(key, func() (any, error) {
		s, ferr := c.fetchSubmissions(ctx, handle, count)
		return s, ferr
	})
	subs, _ := v.([]model.Submission)
	return subs, err
}

func (c *Client) fetchSubmissions(ctx context.Context, handle string, count int) ([]model.Submission, error) {
	path := fmt.Sprintf("/user.status?handle=%s&from=1&count=%d", url.QueryEscape(handle), count)
	subs, err := execute[[]model.Submission](ctx, c, epUserStatus, path)
	if err != nil {
		var cached []model.Submission
		if c.loadFallback(ctx, epUserStatus, cache.SubmissionsKey(handle), err, &cached) {
			return cached, err
		}
		return nil, err
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	// Newest first, guaranteed even if a mirror disagrees with the API docs.
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].CreationTimeSeconds > subs[j].CreationTimeSeconds
	})
	c.saveSnapshot(ctx, cache.SubmissionsKey(handle), subs)
	return subs, nil
}
