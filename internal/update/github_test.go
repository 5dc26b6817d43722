package update

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fenhl/bitbar-version/internal/ratelimit"
)

func newTestGitHub(t *testing.T, handler http.HandlerFunc, opts ...GitHubOption) (*GitHub, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := ratelimit.NewClient(server.Client(), ratelimit.WithSleeper(func(time.Duration) {}))
	return NewGitHub(client, append([]GitHubOption{WithAPIBase(server.URL)}, opts...)...), server
}

func TestLatestRelease(t *testing.T) {
	release := Release{
		TagName: "v2.0.0",
		Name:    "SwiftBar 2.0.0",
		Body:    "Release notes",
		HTMLURL: "https://github.com/swiftbar/SwiftBar/releases/tag/v2.0.0",
	}

	gh, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/swiftbar/SwiftBar/releases/latest" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Accept"); got != githubMediaType {
			t.Errorf("Accept = %q, want %q", got, githubMediaType)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(release)
	})

	got, err := gh.LatestRelease(context.Background(), Repo{Owner: "swiftbar", Name: "SwiftBar"})
	if err != nil {
		t.Fatalf("LatestRelease() error: %v", err)
	}
	if got == nil {
		t.Fatal("LatestRelease() returned nil release")
	}
	if got.Body != "Release notes" {
		t.Errorf("Body = %q, want %q", got.Body, "Release notes")
	}
	v, err := got.Version()
	if err != nil {
		t.Fatalf("Version() error: %v", err)
	}
	if v.String() != "2.0.0" {
		t.Errorf("Version() = %s, want 2.0.0", v)
	}
}

func TestLatestReleaseNoReleases(t *testing.T) {
	gh, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	got, err := gh.LatestRelease(context.Background(), Repo{Owner: "owner", Name: "repo"})
	if err != nil {
		t.Fatalf("LatestRelease() error: %v", err)
	}
	if got != nil {
		t.Errorf("LatestRelease() = %+v, want nil", got)
	}
}

func TestLatestReleaseServerError(t *testing.T) {
	gh, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := gh.LatestRelease(context.Background(), Repo{Owner: "owner", Name: "repo"})
	var statusErr *ratelimit.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("LatestRelease() error = %v, want StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusBadGateway)
	}
}

func TestLatestReleaseRetriesThrottling(t *testing.T) {
	calls := 0
	gh, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set(ratelimit.HeaderRetryAfter, "1")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode(Release{TagName: "v1.4.4"})
	})

	got, err := gh.LatestRelease(context.Background(), Repo{Owner: "swiftbar", Name: "SwiftBar"})
	if err != nil {
		t.Fatalf("LatestRelease() error: %v", err)
	}
	if got.TagName != "v1.4.4" {
		t.Errorf("TagName = %q, want v1.4.4", got.TagName)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestReleaseVersionRequiresLeadingV(t *testing.T) {
	_, err := (&Release{TagName: "1.4.2"}).Version()
	if !errors.Is(err, ErrNoLeadingV) {
		t.Fatalf("Version() error = %v, want ErrNoLeadingV", err)
	}
}

func TestHead(t *testing.T) {
	var server *httptest.Server
	gh, server := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/fenhl/bitbar-version":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"branches_url":   server.URL + "/repos/fenhl/bitbar-version/branches{/branch}",
				"default_branch": "main",
			})
		case "/repos/fenhl/bitbar-version/branches/main":
			_, _ = w.Write([]byte(`{"name":"main","commit":{"sha":"3f2a9c1d8e7b6a5f4e3d2c1b0a9f8e7d6c5b4a39"}}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	head, err := gh.Head(context.Background(), Repo{Owner: "fenhl", Name: "bitbar-version"})
	if err != nil {
		t.Fatalf("Head() error: %v", err)
	}
	if head.SHA != "3f2a9c1d8e7b6a5f4e3d2c1b0a9f8e7d6c5b4a39" {
		t.Errorf("SHA = %q", head.SHA)
	}
}

func TestHeadMissingBranchInfo(t *testing.T) {
	gh, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"bitbar-version"}`))
	})

	_, err := gh.Head(context.Background(), Repo{Owner: "fenhl", Name: "bitbar-version"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("Head() error = %v, want ErrMalformedResponse", err)
	}
}

func TestTokenOnlySentToAPIBase(t *testing.T) {
	auth := map[string]string{}
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth[r.URL.Path] = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"commit":{"sha":"abc1234def"}}`))
	}))
	defer other.Close()

	gh, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		auth[r.URL.Path] = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"branches_url":   other.URL + "/branches{/branch}",
			"default_branch": "main",
		})
	}, WithToken("s3cret"))

	if _, err := gh.Head(context.Background(), Repo{Owner: "o", Name: "n"}); err != nil {
		t.Fatalf("Head() error: %v", err)
	}
	if got := auth["/repos/o/n"]; got != "Bearer s3cret" {
		t.Errorf("API Authorization = %q, want bearer token", got)
	}
	if got := auth["/branches/main"]; got != "" {
		t.Errorf("foreign host Authorization = %q, want none", got)
	}
}

func TestDefaultAPIBase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo/releases/latest" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Release{TagName: "v0.3.0"})
	}))
	defer server.Close()

	httpClient := &http.Client{
		Transport: &rewriteTransport{
			base:      http.DefaultTransport,
			targetURL: server.URL,
		},
	}
	gh := NewGitHub(ratelimit.NewClient(httpClient))
	if !strings.HasPrefix(gh.baseURL, "https://api.github.com") {
		t.Fatalf("baseURL = %q", gh.baseURL)
	}

	got, err := gh.LatestRelease(context.Background(), Repo{Owner: "owner", Name: "repo"})
	if err != nil {
		t.Fatalf("LatestRelease() error: %v", err)
	}
	if got.TagName != "v0.3.0" {
		t.Errorf("TagName = %q, want v0.3.0", got.TagName)
	}
}

// rewriteTransport rewrites request URLs for testing.
type rewriteTransport struct {
	base      http.RoundTripper
	targetURL string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.targetURL[7:] // strip "http://"
	return t.base.RoundTrip(req)
}
