// Package transport builds the HTTP client shared by all network version sources:
// HTTPS only, TLS 1.2 or newer, HTTP/2 negotiated via golang.org/x/net/http2.
package transport

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

// ErrInsecureScheme is returned for any request that is not https.
var ErrInsecureScheme = errors.New("refusing non-https request")

// Options configures NewClient.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// Base overrides the round tripper; used by tests. HTTP/2 is only
	// configured on the default transport.
	Base http.RoundTripper
}

// NewClient creates an HTTP client with HTTP/2 support and HTTPS enforcement.
func NewClient(opts Options) (*http.Client, error) {
	base := opts.Base
	if base == nil {
		t1 := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          10,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		if _, err := http2.ConfigureTransports(t1); err != nil {
			return nil, fmt.Errorf("configure http2: %w", err)
		}
		base = t1
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &roundTripper{
			base:      base,
			userAgent: strings.TrimSpace(opts.UserAgent),
		},
	}, nil
}

type roundTripper struct {
	base      http.RoundTripper
	userAgent string
}

func (t *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL == nil || !strings.EqualFold(req.URL.Scheme, "https") {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, fmt.Errorf("%w: %s", ErrInsecureScheme, req.URL)
	}
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}
