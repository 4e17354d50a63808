// Package githubapi provides the GitHub HTTP plumbing shared by activity
// fetching: rate-limit interpretation, a retrying transport, and REST client
// construction for per-user access tokens.
package githubapi

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitHeaders contains parsed GitHub rate-limit response headers.
type RateLimitHeaders struct {
	Remaining  int
	ResetUnix  int64
	RetryAfter time.Duration
	Limited    bool
}

// ParseRateLimitHeaders parses rate-limit and retry headers for a response.
// A 429, or a 403 carrying either Retry-After or an exhausted primary
// budget, marks the response as limited.
func ParseRateLimitHeaders(header http.Header, statusCode int) RateLimitHeaders {
	parsed := RateLimitHeaders{
		Remaining: parseInt(header.Get("X-RateLimit-Remaining"), -1),
		ResetUnix: parseInt64(header.Get("X-RateLimit-Reset")),
	}
	if seconds := parseInt(header.Get("Retry-After"), 0); seconds > 0 {
		parsed.RetryAfter = time.Duration(seconds) * time.Second
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		parsed.Limited = true
	case statusCode == http.StatusForbidden && parsed.RetryAfter > 0:
		parsed.Limited = true
	case statusCode == http.StatusForbidden && parsed.Remaining == 0:
		parsed.Limited = true
	}
	return parsed
}

// BackoffPolicy decides how long to pause after a limited response.
type BackoffPolicy struct {
	DefaultBackoff time.Duration
	MaxBackoff     time.Duration
	Now            func() time.Time
}

// WaitFor returns the pause before a retry of a limited call. Retry-After
// wins when present; otherwise the primary reset time bounds the wait.
func (p BackoffPolicy) WaitFor(headers RateLimitHeaders) time.Duration {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	wait := p.DefaultBackoff
	if headers.RetryAfter > wait {
		wait = headers.RetryAfter
	}
	if headers.ResetUnix > 0 {
		if untilReset := time.Unix(headers.ResetUnix, 0).Sub(now); untilReset > wait {
			wait = untilReset
		}
	}
	if p.MaxBackoff > 0 && wait > p.MaxBackoff {
		wait = p.MaxBackoff
	}
	return wait
}

func parseInt(raw string, fallback int) int {
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseInt64(raw string) int64 {
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
