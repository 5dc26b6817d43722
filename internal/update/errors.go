package update

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	appErrors "github.com/fenhl/bitbar-version/internal/errors"
	"github.com/fenhl/bitbar-version/internal/ratelimit"
)

// ErrNoReleases is returned when a release feed has nothing published yet.
var ErrNoReleases = errors.New("no GitHub releases")

// SourceError records which lookup failed.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// classifySourceError attaches a structured code to a failed lookup.
func classifySourceError(source string, err error) error {
	wrapped := &SourceError{Source: source, Err: err}
	return appErrors.New(codeFor(err), wrapped.Error(), wrapped)
}

func codeFor(err error) appErrors.Code {
	if code := appErrors.CodeOf(err); code != appErrors.CodeUnknown {
		return code
	}

	var statusErr *ratelimit.StatusError
	var headerErr *ratelimit.HeaderParseError
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, ratelimit.ErrThrottlingExhausted):
		return appErrors.CodeThrottlingExhausted
	case errors.Is(err, ratelimit.ErrUncloneableRequest):
		return appErrors.CodeUncloneableRequest
	case errors.As(err, &headerErr):
		return appErrors.CodeParseFailed
	case errors.As(err, &statusErr):
		return appErrors.CodeHTTPStatus
	case errors.Is(err, ratelimit.ErrTransport),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return appErrors.CodeTransport
	case errors.Is(err, ErrNoReleases),
		errors.Is(err, ErrNoRunningVersion),
		errors.Is(err, ErrNoBuildCommit):
		return appErrors.CodeMissingData
	case errors.Is(err, ErrInvalidVersion),
		errors.Is(err, ErrNoLeadingV),
		errors.Is(err, ErrMalformedResponse),
		errors.Is(err, ErrMalformedBundle):
		return appErrors.CodeParseFailed
	case errors.As(err, &pathErr):
		return appErrors.CodeIO
	default:
		return appErrors.CodeUnknown
	}
}
