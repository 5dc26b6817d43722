package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fenhl/bitbar-version/internal/ratelimit"
)

// DefaultCaskAPIBase is the root of the Homebrew cask JSON API.
const DefaultCaskAPIBase = "https://formulae.brew.sh/api/cask"

// HTTPDoer issues a single HTTP request.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Cask is the subset of a Homebrew cask description used here.
type Cask struct {
	Token    string `json:"token"`
	Version  string `json:"version"`
	Homepage string `json:"homepage"`
}

// ParsedVersion parses the cask version, ignoring any ",build" suffix.
func (c Cask) ParsedVersion() (Version, error) {
	return ParseCaskVersion(c.Version)
}

// Homebrew reads cask metadata from formulae.brew.sh. The API is not rate
// limited, so requests are issued once.
type Homebrew struct {
	client  HTTPDoer
	baseURL string
}

// NewHomebrew creates a cask feed reader. baseURL may be empty.
func NewHomebrew(client HTTPDoer, baseURL string) *Homebrew {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultCaskAPIBase
	}
	return &Homebrew{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Cask fetches the description of the named cask.
func (h *Homebrew) Cask(ctx context.Context, name string) (Cask, error) {
	url := fmt.Sprintf("%s/%s.json", h.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Cask{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return Cask{}, fmt.Errorf("%w: %w", ratelimit.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return Cask{}, &ratelimit.StatusError{
			Method:     req.Method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var cask Cask
	if err := json.NewDecoder(resp.Body).Decode(&cask); err != nil {
		return Cask{}, fmt.Errorf("%w: decode %s: %v", ErrMalformedResponse, url, err)
	}
	if cask.Version == "" {
		return Cask{}, fmt.Errorf("%w: cask %s has no version", ErrMalformedResponse, name)
	}
	return cask, nil
}
