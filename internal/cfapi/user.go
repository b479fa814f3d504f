package cfapi

import (
	"context"
	"net/url"

	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/internal/model"
	"github.com/krypticgrind/cfcore/pkg/common"
)

const epUserInfo = "user.info"

// FetchUserInfo returns the profile for one handle. An unknown handle maps to
// KindNotFound; transient failures fall back to the cached profile when one is
// fresh enough, in which case both the profile and the error are returned.
// A confirmed profile becomes the last known good handle for session restore,
// stored with the server's spelling.
func (c *Client) FetchUserInfo(ctx context.Context, handle string) (model.UserProfile, error) {
	profile, err := c.LookupUser(ctx, handle)
	if err == nil {
		if serr := c.SaveHandle(ctx, profile.Handle); serr != nil {
			c.log.Error("saving handle failed", "handle", profile.Handle, "error", serr)
		}
	}
	return profile, err
}

// LookupUser fetches a profile without touching the saved handle. Rival
// lookups (leaderboard rows, handle verification) go through here so they
// never hijack the active session.
func (c *Client) LookupUser(ctx context.Context, handle string) (model.UserProfile, error) {
	v, err, _ := c.sf.Do(epUserInfo+":"+handle, func() (any, error) {
		p, ferr := c.fetchUserInfo(ctx, handle)
		return p, ferr
	})
	profile, _ := v.(model.UserProfile)
	return profile, err
}

func (c *Client) fetchUserInfo(ctx context.Context, handle string) (model.UserProfile, error) {
	path := "/user.info?handles=" + url.QueryEscape(handle)
	profiles, err := execute[[]model.UserProfile](ctx, c, epUserInfo, path)
	if err != nil {
		// The API reports unknown handles as a logical failure.
		if common.IsKind(err, common.KindAPILogical) {
			err = common.E(common.KindNotFound, epUserInfo, "user "+handle+" not found", err)
		}
		var cached model.UserProfile
		if c.loadFallback(ctx, epUserInfo, cache.ProfileKey(handle), err, &cached) {
			return cached, err
		}
		return model.UserProfile{}, err
	}
	if len(profiles) == 0 {
		return model.UserProfile{}, common.E(common.KindNotFound, epUserInfo, "empty result for handle "+handle, nil)
	}
	profile := profiles[0]
	c.saveSnapshot(ctx, cache.ProfileKey(handle), profile)
	return profile, nil
}
