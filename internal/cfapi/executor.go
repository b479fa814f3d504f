package cfapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/internal/model"
	"github.com/krypticgrind/cfcore/pkg/common"
)

// maxRateLimitWaits caps how many 429 cooldowns one mirror absorbs before the
// call moves on. Cooldowns do not consume the retry budget, so without a cap
// a permanently throttling mirror would pin the call forever.
const maxRateLimitWaits = 3

// execute runs one logical API call across the mirror list. T is the payload
// type inside the response envelope.
func execute[T any](ctx context.Context, c *Client, endpoint, path string) (T, error) {
	var zero T
	if !c.isOnline() {
		requestTotal.WithLabelValues(endpoint, string(common.KindUnreachable)).Inc()
		return zero, common.E(common.KindUnreachable, endpoint, "no network connectivity", nil)
	}
	start := c.now()
	result, err := executeMirrors[T](ctx, c, endpoint, path)
	requestDurationSeconds.WithLabelValues(endpoint).Observe(c.now().Sub(start).Seconds())
	if err != nil {
		requestTotal.WithLabelValues(endpoint, string(common.KindOf(err))).Inc()
		return zero, err
	}
	requestTotal.WithLabelValues(endpoint, "ok").Inc()
	return result, nil
}

func executeMirrors[T any](ctx context.Context, c *Client, endpoint, path string) (T, error) {
	var zero T
	var lastErr error
	for i, mirror := range c.mirrors {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, common.E(common.KindCanceled, endpoint, "caller canceled", err)
		}
		if i > 0 {
			mirrorFailoverTotal.WithLabelValues(mirror).Inc()
			c.log.Info("failing over to backup mirror",
				"endpoint", endpoint, "mirror", mirror, "error", lastErr)
		}
		result, err := executeOne[T](ctx, c, endpoint, mirror+path)
		if err == nil {
			return result, nil
		}
		lastErr = err
		// Logical API answers are authoritative; a second mirror would
		// only repeat them.
		if !common.Retryable(common.KindOf(err)) {
			return zero, err
		}
	}
	if lastErr == nil {
		// Guards against an empty mirror list masquerading as success.
		return zero, common.E(common.KindUnknown, endpoint, "no mirrors configured", nil)
	}
	return zero, lastErr
}

// executeOne exhausts the retry budget against a single mirror.
func executeOne[T any](ctx context.Context, c *Client, endpoint, url string) (T, error) {
	var zero T
	var lastErr error
	rateLimitHits := 0
	for attempt := 1; ; attempt++ {
		result, err := attemptOnce[T](ctx, c, endpoint, url)
		if err == nil {
			return result, nil
		}
		lastErr = err
		kind := common.KindOf(err)
		if !common.Retryable(kind) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, err
		}
		if kind == common.KindRateLimited {
			rateLimitHits++
			retryTotal.WithLabelValues(endpoint, string(kind)).Inc()
			if rateLimitHits > maxRateLimitWaits {
				return zero, err
			}
			c.log.Info("rate limited, cooling down",
				"endpoint", endpoint, "wait", c.rateLimitWait.String())
			if serr := c.sleep(ctx, c.rateLimitWait); serr != nil {
				return zero, common.E(common.KindCanceled, endpoint, "canceled during cooldown", serr)
			}
			// Cooldown retries the same attempt slot.
			attempt--
			continue
		}
		if attempt > c.maxRetries {
			return zero, lastErr
		}
		retryTotal.WithLabelValues(endpoint, string(kind)).Inc()
		wait := c.backoff(kind, attempt)
		c.log.Info("retrying after failure",
			"endpoint", endpoint, "attempt", attempt, "reason", string(kind), "wait", wait.String())
		if serr := c.sleep(ctx, wait); serr != nil {
			return zero, common.E(common.KindCanceled, endpoint, "canceled during backoff", serr)
		}
	}
}

// backoff picks the wait before retry attempt+1. Server errors back off
// linearly, client-side cancellations get a fixed cooldown, everything else
// doubles.
func (c *Client) backoff(kind common.Kind, attempt int) time.Duration {
	switch kind {
	case common.KindServerError:
		return time.Duration(attempt) * 2 * time.Second
	case common.KindCanceled:
		return c.cancelWait
	default:
		return time.Duration(1<<uint(attempt)) * time.Second
	}
}

func attemptOnce[T any](ctx context.Context, c *Client, endpoint, url string) (T, error) {
	var zero T
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return zero, common.E(common.KindUnknown, endpoint, "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, classifyTransport(ctx, reqCtx, endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return zero, common.E(common.KindRateLimited, endpoint, "HTTP 429", nil)
	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return zero, common.E(common.KindServerError, endpoint, fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, classifyTransport(ctx, reqCtx, endpoint, err)
	}

	// 4xx bodies still carry an envelope when the failure is logical, e.g.
	// an unknown handle comes back as HTTP 400 with status FAILED.
	var env model.Envelope[T]
	if uerr := json.Unmarshal(body, &env); uerr != nil || env.Status == "" {
		if resp.StatusCode >= 400 {
			return zero, common.E(common.KindClientError, endpoint, fmt.Sprintf("HTTP %d", resp.StatusCode), uerr)
		}
		return zero, common.E(common.KindDecode, endpoint, "unexpected response shape", uerr)
	}
	if env.Status != model.StatusOK {
		return zero, common.E(common.KindAPILogical, endpoint, env.Comment, nil)
	}
	return env.Result, nil
}

func classifyTransport(ctx, reqCtx context.Context, endpoint string, err error) error {
	var ne net.Error
	switch {
	case ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded):
		return common.E(common.KindTimeout, endpoint, "request deadline exceeded", err)
	case errors.As(err, &ne) && ne.Timeout():
		return common.E(common.KindTimeout, endpoint, "transport timeout", err)
	case errors.Is(err, context.Canceled):
		return common.E(common.KindCanceled, endpoint, "request canceled", err)
	default:
		return common.E(common.KindUnknown, endpoint, "transport failure", err)
	}
}

// loadFallback tries a fresh snapshot after fetchErr and reports whether out
// was populated. Data older than the freshness window is never served.
func (c *Client) loadFallback(ctx context.Context, endpoint, key string, fetchErr error, out any) bool {
	if c.snapshots == nil || !fallbackEligible(common.KindOf(fetchErr)) {
		return false
	}
	at, err := c.snapshots.LoadIfFresh(ctx, key, out)
	switch {
	case err == nil:
		cacheFallbackTotal.WithLabelValues(endpoint, "fresh").Inc()
		c.log.Info("serving cached data after fetch failure",
			"endpoint", endpoint, "cached_at", at.Format(time.RFC3339), "error", fetchErr)
		return true
	case errors.Is(err, cache.ErrStale):
		cacheFallbackTotal.WithLabelValues(endpoint, "stale").Inc()
	default:
		cacheFallbackTotal.WithLabelValues(endpoint, "miss").Inc()
	}
	return false
}

func (c *Client) saveSnapshot(ctx context.Context, key string, v any) {
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.Save(ctx, key, v); err != nil {
		c.log.Error("saving snapshot failed", "key", key, "error", err)
	}
}
