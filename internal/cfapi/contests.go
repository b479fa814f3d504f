package cfapi

import (
	"context"
	"sort"

	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/internal/model"
)

const epContestList = "contest.list"

// FetchUpcomingContests returns the next scheduled contests, soonest first,
// capped at the configured limit. The filtered list is what gets cached, so
// offline fallback serves exactly what the last successful call produced.
func (c *Client) FetchUpcomingContests(ctx context.Context) ([]model.Contest, error) {
	v, err, _ := c.sf.Do(epContestList, func() (any, error) {
		cs, ferr := c.fetchUpcomingContests(ctx)
		return cs, ferr
	})
	contests, _ := v.([]model.Contest)
	return contests, err
}

func (c *Client) fetchUpcomingContests(ctx context.Context) ([]model.Contest, error) {
	all, err := execute[[]model.Contest](ctx, c, epContestList, "/contest.list")
	if err != nil {
		var cached []model.Contest
		if c.loadFallback(ctx, epContestList, cache.KeyCachedContests, err, &cached) {
			return cached, err
		}
		return nil, err
	}

	upcoming := make([]model.Contest, 0, c.upcomingLimit)
	for _, contest := range all {
		if contest.Upcoming() {
			upcoming = append(upcoming, contest)
		}
	}
	// Soonest first; contests without a published start sort last.
	sort.SliceStable(upcoming, func(i, j int) bool {
		si, oki := upcoming[i].StartTimeSeconds, upcoming[i].StartTimeSeconds != nil
		sj, okj := upcoming[j].StartTimeSeconds, upcoming[j].StartTimeSeconds != nil
		if oki && okj {
			return *si < *sj
		}
		return oki && !okj
	})
	if len(upcoming) > c.upcomingLimit {
		upcoming = upcoming[:c.upcomingLimit]
	}
	c.saveSnapshot(ctx, cache.KeyCachedContests, upcoming)
	return upcoming, nil
}
