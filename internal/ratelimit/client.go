// Package ratelimit performs single logical HTTP requests against a
// rate-limited API, absorbing throttling responses by waiting and
// re-issuing the request.
//
// Only throttling (403 Forbidden, 429 Too Many Requests) is retried.
// Waits named by the server (Retry-After, X-RateLimit-Reset) are honoured
// exactly and never advance the exponential backoff; responses without a
// hint back off from 60s, doubling, until the pending wait would reach one
// hour, at which point the throttling response is returned as a failure.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Defaults for the no-hint fallback.
const (
	DefaultInitialBackoff = 60 * time.Second
	DefaultBackoffCeiling = 3600 * time.Second

	maxErrorBody = 64 << 10
)

// Error variables for request failures.
var (
	ErrUncloneableRequest  = errors.New("request cannot be safely re-issued")
	ErrTransport           = errors.New("network request failed")
	ErrThrottlingExhausted = errors.New("rate limit backoff exhausted")
)

// StatusError is a terminal non-success response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	// Exhausted is set when a throttling response was given up on.
	Exhausted bool
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: http %d", e.Method, e.URL, e.StatusCode)
	if e.Exhausted {
		msg += " (rate limited, backoff exhausted)"
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// Unwrap exposes ErrThrottlingExhausted for exhausted throttling failures.
func (e *StatusError) Unwrap() error {
	if e.Exhausted {
		return ErrThrottlingExhausted
	}
	return nil
}

// Doer issues a single HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryState is the mutable state of one logical request.
type RetryState struct {
	Backoff  time.Duration
	Attempts int
	Ceiling  time.Duration
}

// Client wraps a Doer with the throttling state machine.
type Client struct {
	httpClient     Doer
	initialBackoff time.Duration
	ceiling        time.Duration
	sleeper        func(time.Duration)
	now            func() time.Time
	logf           func(format string, args ...any)
}

// Option configures a Client.
type Option func(*Client)

// WithSleeper overrides how waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithClock overrides the clock used to resolve absolute reset times.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger receives one line per throttled attempt.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(c *Client) {
		c.logf = logf
	}
}

// WithBackoff overrides the initial no-hint backoff and its ceiling.
func WithBackoff(initial, ceiling time.Duration) Option {
	return func(c *Client) {
		if initial > 0 {
			c.initialBackoff = initial
		}
		if ceiling > 0 {
			c.ceiling = ceiling
		}
	}
}

// NewClient creates a rate-limit aware client around httpClient.
func NewClient(httpClient Doer, opts ...Option) *Client {
	c := &Client{
		httpClient:     httpClient,
		initialBackoff: DefaultInitialBackoff,
		ceiling:        DefaultBackoffCeiling,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c
}

// Do performs req until it succeeds or fails terminally. On success the
// caller owns the response body. Every attempt is issued on a clone of req.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if !replayable(req) {
		return nil, fmt.Errorf("%w: %s %s has a body without GetBody", ErrUncloneableRequest, req.Method, req.URL)
	}

	state := RetryState{Backoff: c.initialBackoff, Ceiling: c.ceiling}
	for {
		state.Attempts++
		attempt, err := cloneRequest(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUncloneableRequest, err)
		}

		resp, err := c.httpClient.Do(attempt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransport, err)
		}

		if !isThrottled(resp.StatusCode) {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}
			return nil, statusError(req, resp, false)
		}

		signal, err := ParseSignal(resp.Header, c.now())
		if err != nil {
			discard(resp)
			return nil, err
		}

		wait, hinted := signal.Wait(c.now())
		if !hinted {
			if state.Backoff >= state.Ceiling {
				return nil, statusError(req, resp, true)
			}
			wait = state.Backoff
			state.Backoff *= 2
		}
		discard(resp)

		c.log("%s %s: http %d, attempt %d, signal %s, waiting %s", req.Method, req.URL, resp.StatusCode, state.Attempts, signal.Kind, wait)
		if err := c.sleep(req.Context(), wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) log(format string, args ...any) {
	if c.logf != nil {
		c.logf(format, args...)
	}
}

func isThrottled(status int) bool {
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}

func replayable(req *http.Request) bool {
	if req.Body == nil || req.Body == http.NoBody {
		return true
	}
	return req.GetBody != nil
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

func statusError(req *http.Request, resp *http.Response, exhausted bool) *StatusError {
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		Exhausted:  exhausted,
	}
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
