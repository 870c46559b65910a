// Package forecast fetches hourly forecast series from one upstream source with retries,
// exponential backoff and a secondary transport.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"

	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
	"github.com/surfreport/hub/internal/observability"
)

// Source describes one upstream dataset: how to address it and how to decode its answer.
type Source interface {
	Name() string
	URL(point models.Point, horizonDays int) (string, error)
	Decode(body []byte) (models.RawSeries, error)
}

// RetryPolicy configures attempts and backoff for each transport.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxJitter   time.Duration
}

// DefaultRetryPolicy returns 3 attempts, 1s doubling up to 10s, plus up to 1s jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		MaxJitter:   time.Second,
	}
}

// Backoff returns the delay before the attempt following attempt (1-based), without jitter.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}

	return delay
}

// Client fetches a single Source. The primary transport runs behind a circuit breaker; the
// secondary transport is only tried after the primary's full retry budget is spent.
type Client struct {
	source    Source
	primary   Transport
	secondary Transport
	breaker   *gobreaker.CircuitBreaker[[]byte]
	policy    RetryPolicy
	clock     clockwork.Clock
	jitter    func(max time.Duration) time.Duration
	logger    *slog.Logger
	metrics   observability.ForecastMetrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClock sets the clock used for backoff timers.
func WithClock(clock clockwork.Clock) ClientOption {
	return func(c *Client) { c.clock = clock }
}

// WithJitter overrides the jitter source. Tests pass a function returning 0.
func WithJitter(fn func(max time.Duration) time.Duration) ClientOption {
	return func(c *Client) { c.jitter = fn }
}

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets forecast metrics. Nil disables recording.
func WithMetrics(metrics observability.ForecastMetrics) ClientOption {
	return func(c *Client) { c.metrics = metrics }
}

// WithSecondary sets the fallback transport. Nil disables the fallback.
func WithSecondary(t Transport) ClientOption {
	return func(c *Client) { c.secondary = t }
}

// NewClient creates a client for source using primary as the pooled transport.
func NewClient(source Source, primary Transport, policy RetryPolicy, opts ...ClientOption) *Client {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	c := &Client{
		source:  source,
		primary: primary,
		policy:  policy,
		clock:   clockwork.NewRealClock(),
		jitter:  randomJitter,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.breaker = newBreaker("forecast-"+source.Name(), c.logger)

	return c
}

func newBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	const (
		maxRequests         = 1
		interval            = 60 * time.Second
		openTimeout         = 30 * time.Second
		consecutiveFailures = 5
	)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > consecutiveFailures
		},
		// A 4xx answer means the upstream is up; it must not trip the breaker.
		IsSuccessful: func(err error) bool {
			class, _ := Classify(err)

			return err == nil || class == huberrors.ClassHTTP4xx || class == huberrors.ClassCanceled
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("forecast circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

func randomJitter(maxJitter time.Duration) time.Duration {
	if maxJitter <= 0 {
		return 0
	}

	return time.Duration(rand.Int64N(int64(maxJitter) + 1))
}

// Source returns the source name.
func (c *Client) Source() string {
	return c.source.Name()
}

// Fetch retrieves the source's hourly series for point and horizonDays. It fails with a
// *huberrors.SourceUnavailableError only after every attempt on every transport failed, or
// immediately on an HTTP 4xx answer.
func (c *Client) Fetch(ctx context.Context, point models.Point, horizonDays int) (models.RawSeries, error) {
	rawURL, err := c.source.URL(point, horizonDays)
	if err != nil {
		return models.RawSeries{}, fmt.Errorf("build %s url: %w", c.source.Name(), err)
	}

	start := c.clock.Now()

	transports := []Transport{c.primary}
	if c.secondary != nil {
		transports = append(transports, c.secondary)
	}

	var (
		lastErr    error
		lastClass  huberrors.ErrorClass
		lastStatus int
	)

	for i, transport := range transports {
		series, err := c.fetchWith(ctx, transport, i == 0, rawURL)
		if err == nil {
			c.recordDuration(ctx, "success", start)

			return series, nil
		}

		lastErr = err
		lastClass, lastStatus = Classify(err)

		if lastClass == huberrors.ClassHTTP4xx || ctx.Err() != nil {
			break
		}

		if i+1 < len(transports) {
			c.logger.WarnContext(ctx, "forecast primary transport exhausted, trying secondary",
				"operation", "forecast.fetch",
				"source", c.source.Name(),
				"transport", transport.Name(),
				"next_transport", transports[i+1].Name(),
				"error_class", string(lastClass),
			)
		}
	}

	c.recordDuration(ctx, "failed", start)

	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(lastErr, ctxErr) {
		lastErr = fmt.Errorf("%w: %w", ctxErr, lastErr)
		lastClass, lastStatus = Classify(lastErr)
	}

	return models.RawSeries{}, huberrors.NewSourceUnavailableError(c.source.Name(), lastClass, lastStatus, lastErr)
}

// fetchWith runs the retry loop on one transport.
func (c *Client) fetchWith(ctx context.Context, transport Transport, useBreaker bool, rawURL string) (models.RawSeries, error) {
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		series, err := c.attempt(ctx, transport, useBreaker, rawURL)
		if err == nil {
			c.logger.DebugContext(ctx, "forecast attempt succeeded",
				"operation", "forecast.fetch",
				"source", c.source.Name(),
				"attempt", attempt,
				"max_attempts", c.policy.MaxAttempts,
				"transport", transport.Name(),
				"hours", series.Len(),
			)
			c.recordAttempt(ctx, transport, "success")

			return series, nil
		}

		lastErr = err
		class, status := Classify(err)

		c.logger.WarnContext(ctx, "forecast attempt failed",
			"operation", "forecast.fetch",
			"source", c.source.Name(),
			"attempt", attempt,
			"max_attempts", c.policy.MaxAttempts,
			"transport", transport.Name(),
			"error_class", string(class),
			"status", status,
			"error", err,
		)

		if !retryable(class) || ctx.Err() != nil {
			c.recordAttempt(ctx, transport, "failed")

			return models.RawSeries{}, err
		}

		if attempt == c.policy.MaxAttempts {
			c.recordAttempt(ctx, transport, "failed")

			break
		}

		c.recordAttempt(ctx, transport, "retry")

		if err := c.sleep(ctx, c.policy.Backoff(attempt)+c.jitter(c.policy.MaxJitter)); err != nil {
			return models.RawSeries{}, fmt.Errorf("%w: %w", err, lastErr)
		}
	}

	return models.RawSeries{}, lastErr
}

func (c *Client) attempt(ctx context.Context, transport Transport, useBreaker bool, rawURL string) (models.RawSeries, error) {
	var (
		body []byte
		err  error
	)

	if useBreaker {
		body, err = c.breaker.Execute(func() ([]byte, error) {
			return transport.Get(ctx, rawURL)
		})
	} else {
		body, err = transport.Get(ctx, rawURL)
	}

	if err != nil {
		return models.RawSeries{}, err
	}

	series, err := c.source.Decode(body)
	if err != nil {
		return models.RawSeries{}, &DecodeError{Err: err}
	}

	return series, nil
}

// sleep waits for d or until ctx is done.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

func (c *Client) recordAttempt(ctx context.Context, transport Transport, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordAttempt(ctx, c.source.Name(), transport.Name(), outcome)
	}
}

func (c *Client) recordDuration(ctx context.Context, outcome string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordFetchDuration(ctx, c.source.Name(), outcome, c.clock.Since(start))
	}
}
