package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
	goopenai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// DefaultBackoff is how long a rate-limited provider is left alone when it
// does not send Retry-After.
const DefaultBackoff = 5 * time.Second

// RateLimiter is a token bucket shared by every request to one provider.
// A rate-limit answer pauses the whole bucket, so concurrent judgments stop
// together instead of each burning its own retries.
type RateLimiter struct {
	mu sync.Mutex

	rpm         int
	tokens      float64
	lastUpdate  time.Time
	pausedUntil time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMinute request starts.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 150
	}
	return &RateLimiter{
		rpm:        requestsPerMinute,
		tokens:     float64(requestsPerMinute),
		lastUpdate: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.refill(now)

		var wait time.Duration
		switch {
		case now.Before(r.pausedUntil):
			wait = r.pausedUntil.Sub(now)
		case r.tokens >= 1:
			r.tokens--
			r.mu.Unlock()
			return nil
		default:
			wait = time.Duration((1 - r.tokens) / r.perSecond() * float64(time.Second))
		}
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Backoff drains the bucket and holds every caller for at least d.
func (r *RateLimiter) Backoff(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if until := time.Now().Add(d); until.After(r.pausedUntil) {
		r.pausedUntil = until
	}
	r.tokens = 0
}

// Available returns the whole tokens that can be taken without waiting.
func (r *RateLimiter) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.refill(now)
	if now.Before(r.pausedUntil) {
		return 0
	}
	return int(r.tokens)
}

func (r *RateLimiter) perSecond() float64 {
	return float64(r.rpm) / 60
}

// refill must be called with r.mu held. Nothing accrues while paused.
func (r *RateLimiter) refill(now time.Time) {
	from := r.lastUpdate
	if r.pausedUntil.After(from) {
		from = r.pausedUntil
	}
	if now.After(from) {
		r.tokens += now.Sub(from).Seconds() * r.perSecond()
	}
	r.lastUpdate = now
	if r.tokens > float64(r.rpm) {
		r.tokens = float64(r.rpm)
	}
}

// RateLimitError is a provider's 429 after its own retries ran out.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration // zero when the provider did not say
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// rateLimited reports whether err is a rate-limit answer from any backend
// and how long the provider asked callers to wait.
func rateLimited(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	var oe *openai.Error
	if errors.As(err, &oe) && oe.StatusCode == http.StatusTooManyRequests {
		return retryAfter(oe.Response), true
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) && ae.StatusCode == http.StatusTooManyRequests {
		return retryAfter(ae.Response), true
	}
	var ce *goopenai.APIError
	if errors.As(err, &ce) && ce.HTTPStatusCode == http.StatusTooManyRequests {
		return 0, true
	}
	var re *goopenai.RequestError
	if errors.As(err, &re) && re.HTTPStatusCode == http.StatusTooManyRequests {
		return 0, true
	}
	var ge genai.APIError
	if errors.As(err, &ge) && ge.Code == http.StatusTooManyRequests {
		return 0, true
	}
	return 0, false
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// RateLimitedClient gates an LLMClient behind a RateLimiter and pauses it
// when the provider reports a rate limit.
type RateLimitedClient struct {
	inner   LLMClient
	limiter *RateLimiter
	logger  *slog.Logger
}

// WithRateLimit wraps client so that at most rpm requests start per minute.
// A non-positive rpm returns client unchanged.
func WithRateLimit(client LLMClient, rpm int, logger *slog.Logger) LLMClient {
	if rpm <= 0 {
		return client
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimitedClient{inner: client, limiter: NewRateLimiter(rpm), logger: logger}
}

// Name returns the wrapped client's name.
func (c *RateLimitedClient) Name() string {
	return c.inner.Name()
}

// Chat waits for a token and forwards the request.
func (c *RateLimitedClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.inner.Chat(ctx, req)
	if wait, ok := rateLimited(err); ok {
		if wait <= 0 {
			wait = DefaultBackoff
		}
		c.limiter.Backoff(wait)
		c.logger.Warn("rate limited, pausing provider", "provider", c.inner.Name(), "model", req.Model, "retry_after", wait)
	}
	return result, err
}

// Unwrap returns the wrapped client.
func (c *RateLimitedClient) Unwrap() LLMClient {
	return c.inner
}

// Limiter exposes the client's limiter.
func (c *RateLimitedClient) Limiter() *RateLimiter {
	return c.limiter
}

var _ LLMClient = (*RateLimitedClient)(nil)
