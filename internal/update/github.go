package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fenhl/bitbar-version/internal/ratelimit"
)

// GitHub API defaults.
const (
	DefaultAPIBase  = "https://api.github.com"
	githubMediaType = "application/vnd.github.v3+json"
)

// ErrMalformedResponse is returned when a feed answers with JSON that does
// not have the expected shape.
var ErrMalformedResponse = errors.New("malformed response")

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

// String returns "owner/name".
func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// Release is the subset of a GitHub release used here.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
	Prerelease  bool      `json:"prerelease"`
	Draft       bool      `json:"draft"`
}

// Version parses the release tag, which must carry a leading 'v'.
func (r *Release) Version() (Version, error) {
	return ParseReleaseTag(r.TagName)
}

// Commit is a commit reference returned by the branches API.
type Commit struct {
	SHA string `json:"sha"`
}

// Identity returns the commit hash as a CommitIdentity.
func (c Commit) Identity() CommitIdentity {
	return CommitIdentity(c.SHA)
}

type repoInfo struct {
	BranchesURL   string `json:"branches_url"`
	DefaultBranch string `json:"default_branch"`
}

type branchInfo struct {
	Commit Commit `json:"commit"`
}

// GitHub talks to the GitHub REST API through a rate-limit aware client.
type GitHub struct {
	client  *ratelimit.Client
	baseURL string
	token   string
}

// GitHubOption configures a GitHub client.
type GitHubOption func(*GitHub)

// WithAPIBase overrides the API root (used by tests).
func WithAPIBase(base string) GitHubOption {
	return func(g *GitHub) {
		if base != "" {
			g.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithToken authenticates requests to the API root with a bearer token.
func WithToken(token string) GitHubOption {
	return func(g *GitHub) {
		g.token = strings.TrimSpace(token)
	}
}

// NewGitHub creates a GitHub API client.
func NewGitHub(client *ratelimit.Client, opts ...GitHubOption) *GitHub {
	g := &GitHub{
		client:  client,
		baseURL: DefaultAPIBase,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		g.client = ratelimit.NewClient(nil)
	}
	return g
}

// LatestRelease fetches the latest published release of repo.
// A repository without releases yields (nil, nil).
func (g *GitHub) LatestRelease(ctx context.Context, repo Repo) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", g.baseURL, repo.Owner, repo.Name)

	var release Release
	if err := g.getJSON(ctx, url, &release); err != nil {
		var statusErr *ratelimit.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &release, nil
}

// Head returns the latest commit on the default branch of repo.
func (g *GitHub) Head(ctx context.Context, repo Repo) (Commit, error) {
	var info repoInfo
	if err := g.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s", g.baseURL, repo.Owner, repo.Name), &info); err != nil {
		return Commit{}, err
	}
	if info.BranchesURL == "" || info.DefaultBranch == "" {
		return Commit{}, fmt.Errorf("%w: repository %s has no branches_url or default_branch", ErrMalformedResponse, repo)
	}

	branchURL := strings.Replace(info.BranchesURL, "{/branch}", "/"+info.DefaultBranch, 1)
	var branch branchInfo
	if err := g.getJSON(ctx, branchURL, &branch); err != nil {
		return Commit{}, err
	}
	if branch.Commit.SHA == "" {
		return Commit{}, fmt.Errorf("%w: branch %s of %s has no commit", ErrMalformedResponse, info.DefaultBranch, repo)
	}
	return branch.Commit, nil
}

func (g *GitHub) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", githubMediaType)
	if g.token != "" && strings.HasPrefix(url, g.baseURL+"/") {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrMalformedResponse, url, err)
	}
	return nil
}
