package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(Options{UserAgent: "fenhl-bitbar-version/test", Timeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if c.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", c.Timeout)
	}
	rt, ok := c.Transport.(*roundTripper)
	if !ok {
		t.Fatalf("unexpected transport type %T", c.Transport)
	}
	if _, ok := rt.base.(*http.Transport); !ok {
		t.Fatalf("expected *http.Transport base, got %T", rt.base)
	}
}

func TestRejectsPlainHTTP(t *testing.T) {
	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.Get("http://example.com/")
	if !errors.Is(err, ErrInsecureScheme) {
		t.Fatalf("expected ErrInsecureScheme, got %v", err)
	}
}

func TestSetsUserAgentOverTLS(t *testing.T) {
	var gotUA string
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c, err := NewClient(Options{
		UserAgent: "fenhl-bitbar-version/1.0.0",
		Base:      server.Client().Transport,
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	resp, err := c.Get(server.URL)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	_ = resp.Body.Close()

	if gotUA != "fenhl-bitbar-version/1.0.0" {
		t.Fatalf("User-Agent = %q", gotUA)
	}
}

func TestKeepsCallerUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	c, err := NewClient(Options{UserAgent: "default", Base: server.Client().Transport})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("User-Agent", "custom")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	_ = resp.Body.Close()

	if gotUA != "custom" {
		t.Fatalf("User-Agent = %q, want custom", gotUA)
	}
}
