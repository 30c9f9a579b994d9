package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// doRequestWithRetry sends req, retrying transport errors, 429 and 5xx answers.
// Retry-After is honoured when present, otherwise the delay doubles from
// baseBackoff. A Retry-After longer than maxRetryWait is not waited out: the
// response is returned at once. Once retries are exhausted the last response is returned as is
// so the caller can turn its status into an *APIError.
func (c *SpotifyClient) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	attempts := c.maxRetries + 1

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("spotify: request canceled: %w", err)
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("spotify: reset request body: %w", err)
			}
			req.Body = body
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("spotify: throttle: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry {
			return resp, nil
		}
		if attempt >= attempts || (c.maxRetryWait > 0 && retryAfter > c.maxRetryWait) {
			if err != nil {
				return nil, fmt.Errorf("spotify: request failed after %d attempts: %w", attempt, err)
			}
			return resp, nil
		}

		if err != nil {
			c.logger.Warn("retrying spotify request", "attempt", attempt, "max", attempts, "path", req.URL.Path, "err", err)
		} else {
			c.logger.Warn("retrying spotify request", "attempt", attempt, "max", attempts, "path", req.URL.Path, "status", resp.StatusCode)
			_ = resp.Body.Close()
		}

		backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
		if retryAfter > 0 {
			backoff = retryAfter
		}
		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
	}
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp.Header.Get("Retry-After")), true
	}
	return 0, false
}

// parseRetryAfter accepts both delay-seconds and HTTP-date forms
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("spotify: request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
