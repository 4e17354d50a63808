package githubapi

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mojomaniac/skillswap/internal/telemetry"
)

// RetryConfig configures transport retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Transport retries transient GitHub failures and pauses once on a
// rate-limited response before handing the final response back unchanged.
// Error classification stays with the caller.
type Transport struct {
	base    http.RoundTripper
	retry   RetryConfig
	backoff BackoffPolicy

	// Sleep is injected for testability.
	Sleep func(duration time.Duration)
}

// NewTransport wraps base with retry and rate-limit pausing.
func NewTransport(base http.RoundTripper, retry RetryConfig, backoff BackoffPolicy) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	return &Transport{
		base:    base,
		retry:   retry,
		backoff: backoff,
		Sleep:   time.Sleep,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var span trace.Span
	if telemetry.ShouldTraceDependencies() {
		ctx, span = otel.Tracer("skillswap/internal/githubapi").Start(
			ctx,
			"githubapi.transport.roundtrip",
			trace.WithAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.path", req.URL.EscapedPath()),
				attribute.Int("github.max_attempts", t.retry.MaxAttempts),
			),
		)
		defer span.End()
	}

	// Requests with an unreplayable body get exactly one attempt.
	maxAttempts := t.retry.MaxAttempts
	if req.Body != nil && req.GetBody == nil {
		maxAttempts = 1
	}

	var resp *http.Response
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		nextReq := req.Clone(ctx)
		if attempt > 1 && req.GetBody != nil {
			if nextReq.Body, err = req.GetBody(); err != nil {
				return nil, err
			}
		}

		resp, err = t.base.RoundTrip(nextReq)
		if err != nil {
			if span != nil {
				span.RecordError(err)
			}
			if attempt == maxAttempts {
				break
			}
			t.Sleep(backoffForAttempt(t.retry, attempt))
			continue
		}

		headers := ParseRateLimitHeaders(resp.Header, resp.StatusCode)
		if span != nil {
			span.AddEvent("attempt_completed", trace.WithAttributes(
				attribute.Int("github.attempt", attempt),
				attribute.Int("http.status_code", resp.StatusCode),
				attribute.Int("github.rate_limit_remaining", headers.Remaining),
				attribute.Bool("github.rate_limited", headers.Limited),
			))
		}

		if headers.Limited {
			if attempt == maxAttempts {
				break
			}
			drainAndClose(resp)
			t.Sleep(t.backoff.WaitFor(headers))
			continue
		}

		if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
			if attempt == maxAttempts {
				break
			}
			drainAndClose(resp)
			t.Sleep(backoffForAttempt(t.retry, attempt))
			continue
		}

		break
	}

	if span != nil {
		switch {
		case err != nil:
			span.SetStatus(codes.Error, err.Error())
		case resp != nil && resp.StatusCode >= 400:
			span.SetStatus(codes.Error, resp.Status)
		default:
			span.SetStatus(codes.Ok, "request completed")
		}
	}
	return resp, err
}

func drainAndClose(resp *http.Response) {
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
}

func backoffForAttempt(retry RetryConfig, attempt int) time.Duration {
	backoff := retry.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if retry.MaxBackoff > 0 && backoff > retry.MaxBackoff {
		return retry.MaxBackoff
	}
	return backoff
}
