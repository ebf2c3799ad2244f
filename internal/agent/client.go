package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultMaxAttempts = 3

// CallOption adjusts a single Complete call.
type CallOption func(*callConfig)

type callConfig struct {
	temperature float64
	maxTokens   int
	onAttempt   func(attempt int)
}

// WithTemperature sets the sampling temperature for this call.
// Values are clamped to [0, 1].
func WithTemperature(t float64) CallOption {
	return func(c *callConfig) {
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
		c.temperature = t
	}
}

// WithMaxTokens bounds the generated output length for this call.
func WithMaxTokens(n int) CallOption {
	return func(c *callConfig) {
		c.maxTokens = n
	}
}

// WithAttemptNotify registers a hook invoked before each attempt,
// 1-indexed. Agents use it to surface the attempt number in their
// status record.
func WithAttemptNotify(fn func(attempt int)) CallOption {
	return func(c *callConfig) {
		c.onAttempt = fn
	}
}

// Client wraps a generation backend with bounded retry, exponential
// backoff and rate limiting. One Client is shared across the agents of
// a session; it carries no per-call state.
type Client struct {
	backend     Backend
	maxAttempts int
	backoffUnit time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetry sets the attempt bound.
func WithRetry(maxAttempts int) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
	}
}

// WithBackoffUnit sets the base backoff delay. The delay before
// attempt k (0-indexed) is unit << k. Tests shrink this to observe
// delays without waiting.
func WithBackoffUnit(unit time.Duration) Option {
	return func(c *Client) {
		c.backoffUnit = unit
	}
}

// WithSleeper replaces the backoff sleep, letting tests record delays
// instead of waiting them out.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithRateLimit caps request throughput across all agents sharing the
// client.
func WithRateLimit(requestsPerMinute, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a generation client around a backend.
func NewClient(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend:     backend,
		maxAttempts: defaultMaxAttempts,
		backoffUnit: time.Second,
		limiter:     rate.NewLimiter(rate.Limit(1), 1),
		logger:      slog.Default().With("component", "generation_client"),
	}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete issues one generation request with bounded retry. An empty
// backend response counts as a failure. The delay before attempt k
// (0-indexed, k >= 1) is backoffUnit << (k-1); there is no jitter.
// When all attempts fail the caller gets a GenerationError wrapping
// the last underlying error.
func (c *Client) Complete(ctx context.Context, messages []Message, opts ...CallOption) (string, error) {
	cfg := callConfig{temperature: 0.7}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.backoffUnit << (attempt - 1)
			c.logger.Debug("retry backoff",
				"attempt", attempt,
				"backoff", backoff)
			if err := c.sleep(ctx, backoff); err != nil {
				return "", err
			}
		}

		if cfg.onAttempt != nil {
			cfg.onAttempt(attempt + 1)
		}

		attemptStart := time.Now()
		text, err := c.backend.Chat(ctx, messages, cfg.temperature, cfg.maxTokens)
		if err == nil {
			text = strings.TrimSpace(text)
			if text == "" {
				err = ErrEmptyResponse
			}
		}
		if err == nil {
			c.logger.Info("generation request successful",
				"attempt", attempt+1,
				"duration_ms", time.Since(attemptStart).Milliseconds(),
				"response_length", len(text),
				"total_duration_ms", time.Since(start).Milliseconds())
			return text, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Warn("generation request failed",
			"attempt", attempt+1,
			"max_attempts", c.maxAttempts,
			"duration_ms", time.Since(attemptStart).Milliseconds(),
			"error", err)
	}

	c.logger.Error("generation request failed after max attempts",
		"max_attempts", c.maxAttempts,
		"total_duration_ms", time.Since(start).Milliseconds(),
		"last_error", lastErr)

	return "", &GenerationError{Attempts: c.maxAttempts, Err: lastErr}
}
