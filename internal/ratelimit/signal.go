package ratelimit

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header names inspected on throttled responses.
const (
	HeaderRetryAfter = "Retry-After"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
)

// SignalKind says which hint, if any, a throttled response carried.
type SignalKind int

const (
	// SignalUnknown means the response named no recovery time.
	SignalUnknown SignalKind = iota
	// SignalRetryAfter means the server asked for a relative wait.
	SignalRetryAfter
	// SignalResetAt means the quota resets at an absolute instant.
	SignalResetAt
)

// String returns the string representation of a SignalKind.
func (k SignalKind) String() string {
	switch k {
	case SignalRetryAfter:
		return "retry-after"
	case SignalResetAt:
		return "reset-at"
	default:
		return "unknown"
	}
}

// Signal is the rate-limit hint derived from one throttled response.
type Signal struct {
	Kind       SignalKind
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Wait returns how long to wait before the next attempt. Unknown signals
// return false; the caller falls back to exponential backoff.
func (s Signal) Wait(now time.Time) (time.Duration, bool) {
	switch s.Kind {
	case SignalRetryAfter:
		return s.RetryAfter, true
	case SignalResetAt:
		wait := s.ResetAt.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	default:
		return 0, false
	}
}

// HeaderParseError reports a rate-limit header whose value could not be parsed.
type HeaderParseError struct {
	Header string
	Value  string
	Err    error
}

func (e *HeaderParseError) Error() string {
	return fmt.Sprintf("parse %s header %q: %v", e.Header, e.Value, e.Err)
}

func (e *HeaderParseError) Unwrap() error {
	return e.Err
}

// ParseSignal inspects throttling headers in priority order: Retry-After,
// then X-RateLimit-Remaining "0" together with X-RateLimit-Reset.
func ParseSignal(h http.Header, now time.Time) (Signal, error) {
	if raw := strings.TrimSpace(h.Get(HeaderRetryAfter)); raw != "" {
		wait, err := parseRetryAfter(raw, now)
		if err != nil {
			return Signal{}, &HeaderParseError{Header: HeaderRetryAfter, Value: raw, Err: err}
		}
		return Signal{Kind: SignalRetryAfter, RetryAfter: wait}, nil
	}

	if strings.TrimSpace(h.Get(HeaderRemaining)) != "0" {
		return Signal{Kind: SignalUnknown}, nil
	}
	raw := strings.TrimSpace(h.Get(HeaderReset))
	if raw == "" {
		return Signal{Kind: SignalUnknown}, nil
	}
	epoch, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Signal{}, &HeaderParseError{Header: HeaderReset, Value: raw, Err: err}
	}
	return Signal{Kind: SignalResetAt, ResetAt: time.Unix(epoch, 0)}, nil
}

// maxRetryAfterSeconds is the largest delay a time.Duration can hold.
const maxRetryAfterSeconds = int64(math.MaxInt64 / time.Second)

func parseRetryAfter(value string, now time.Time) (time.Duration, error) {
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("negative delay %d", seconds)
		}
		if seconds > maxRetryAfterSeconds {
			return 0, fmt.Errorf("delay %d seconds out of range", seconds)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	when, err := http.ParseTime(value)
	if err != nil {
		return 0, fmt.Errorf("neither delay-seconds nor HTTP date")
	}
	wait := when.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, nil
}
