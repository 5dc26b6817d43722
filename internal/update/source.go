package update

import (
	"context"
	"fmt"
)

// Source provides a single version reading.
type Source interface {
	Name() string
	Version(ctx context.Context) (Version, error)
}

// InstalledBundle reads the version of the host bundle on disk.
type InstalledBundle struct {
	Flavor HostFlavor
	// Path overrides the flavor's Info.plist location.
	Path string
}

// Name implements Source.
func (s InstalledBundle) Name() string { return "installed " + s.Flavor.String() }

// Version implements Source.
func (s InstalledBundle) Version(ctx context.Context) (Version, error) {
	if s.Path == "" {
		return InstalledVersion(s.Flavor)
	}
	return ReadBundleVersion(s.Path)
}

// RunningProcess reports the version of the host process running the plugin.
type RunningProcess struct {
	Flavor    HostFlavor
	Getenv    func(string) string
	Installed Source
}

// Name implements Source.
func (s RunningProcess) Name() string { return "running " + s.Flavor.String() }

// Version implements Source.
func (s RunningProcess) Version(ctx context.Context) (Version, error) {
	return RunningVersion(s.Flavor, s.Getenv, func() (Version, error) {
		if s.Installed == nil {
			return Version{}, fmt.Errorf("%w: no installed version source", ErrNoRunningVersion)
		}
		return s.Installed.Version(ctx)
	})
}

// PackageFeed reads the version published by a Homebrew cask.
type PackageFeed struct {
	Homebrew *Homebrew
	Cask     string
}

// Name implements Source.
func (s PackageFeed) Name() string { return "homebrew cask " + s.Cask }

// Version implements Source.
func (s PackageFeed) Version(ctx context.Context) (Version, error) {
	cask, err := s.Homebrew.Cask(ctx, s.Cask)
	if err != nil {
		return Version{}, err
	}
	return cask.ParsedVersion()
}

// ReleaseReading is the outcome of a release feed lookup.
type ReleaseReading struct {
	Version Version
	URL     string
	Notes   string
	// Frozen is set when the host no longer publishes releases.
	Frozen bool
}

// ReleaseFeed reads the latest host release from GitHub.
type ReleaseFeed struct {
	GitHub *GitHub
	Flavor HostFlavor
}

// Name implements Source.
func (s ReleaseFeed) Name() string {
	if repo, ok := s.Flavor.ReleaseRepo(); ok {
		return "GitHub releases of " + repo.String()
	}
	return s.Flavor.String() + " release"
}

// Fetch looks up the latest release. Discontinued hosts answer with their
// final release without network access.
func (s ReleaseFeed) Fetch(ctx context.Context) (ReleaseReading, error) {
	repo, ok := s.Flavor.ReleaseRepo()
	if !ok {
		return ReleaseReading{
			Version: s.Flavor.FrozenRelease(),
			URL:     s.Flavor.ReleasePageURL(),
			Frozen:  true,
		}, nil
	}

	release, err := s.GitHub.LatestRelease(ctx, repo)
	if err != nil {
		return ReleaseReading{}, err
	}
	if release == nil {
		return ReleaseReading{}, fmt.Errorf("%w for %s", ErrNoReleases, repo)
	}
	v, err := release.Version()
	if err != nil {
		return ReleaseReading{}, fmt.Errorf("latest release %q of %s: %w", release.TagName, repo, err)
	}
	url := release.HTMLURL
	if url == "" {
		url = s.Flavor.ReleasePageURL()
	}
	return ReleaseReading{Version: v, URL: url, Notes: release.Body}, nil
}

// Version implements Source.
func (s ReleaseFeed) Version(ctx context.Context) (Version, error) {
	reading, err := s.Fetch(ctx)
	return reading.Version, err
}

// PluginHead reads the latest commit of the plugin's own repository.
type PluginHead struct {
	GitHub *GitHub
	Repo   Repo
}

// Name returns a description for error messages.
func (p PluginHead) Name() string { return "plugin head of " + p.Repo.String() }

// Commit fetches the head commit of the default branch.
func (p PluginHead) Commit(ctx context.Context) (CommitIdentity, error) {
	head, err := p.GitHub.Head(ctx, p.Repo)
	if err != nil {
		return "", err
	}
	return head.Identity(), nil
}

// Readings is everything one run learned about the world.
type Readings struct {
	Flavor   HostFlavor
	CaskName string

	PluginCommit       CommitIdentity
	RemotePluginCommit CommitIdentity

	ReleaseFeed Version
	PackageFeed Version
	Installed   Version
	Running     Version

	ReleaseURL   string
	ReleaseNotes string
}

// Inputs converts readings plus the persisted threshold into Decide inputs.
func (r Readings) Inputs(suppressed *Version) Inputs {
	return Inputs{
		PluginCommit:       r.PluginCommit,
		RemotePluginCommit: r.RemotePluginCommit,
		Installed:          r.Installed,
		Running:            r.Running,
		PackageFeed:        r.PackageFeed,
		ReleaseFeed:        r.ReleaseFeed,
		Suppressed:         suppressed,
	}
}

// Collector runs every lookup of a check, one after another.
type Collector struct {
	Flavor       HostFlavor
	PluginCommit CommitIdentity

	Release   ReleaseFeed
	Package   PackageFeed
	Plugin    PluginHead
	Installed Source
	Running   Source

	// Logf, when set, receives one line per completed lookup.
	Logf func(format string, args ...any)
}

// CollectorConfig describes the collaborators of NewCollector.
type CollectorConfig struct {
	Flavor       HostFlavor
	PluginRepo   Repo
	PluginCommit CommitIdentity
	GitHub       *GitHub
	Homebrew     *Homebrew
	Getenv       func(string) string
}

// NewCollector wires the standard sources for a host flavor.
func NewCollector(cfg CollectorConfig) *Collector {
	installed := InstalledBundle{Flavor: cfg.Flavor}
	return &Collector{
		Flavor:       cfg.Flavor,
		PluginCommit: cfg.PluginCommit,
		Release:      ReleaseFeed{GitHub: cfg.GitHub, Flavor: cfg.Flavor},
		Package:      PackageFeed{Homebrew: cfg.Homebrew, Cask: cfg.Flavor.CaskName()},
		Plugin:       PluginHead{GitHub: cfg.GitHub, Repo: cfg.PluginRepo},
		Installed:    installed,
		Running:      RunningProcess{Flavor: cfg.Flavor, Getenv: cfg.Getenv, Installed: installed},
	}
}

// Collect performs the lookups in a fixed order: release feed, package
// feed, plugin head, installed bundle, running process. The first failure
// aborts the run; no partial readings are returned.
func (c *Collector) Collect(ctx context.Context) (Readings, error) {
	r := Readings{
		Flavor:       c.Flavor,
		CaskName:     c.Package.Cask,
		PluginCommit: c.PluginCommit,
	}

	release, err := c.Release.Fetch(ctx)
	if err != nil {
		return Readings{}, classifySourceError(c.Release.Name(), err)
	}
	r.ReleaseFeed = release.Version
	r.ReleaseURL = release.URL
	r.ReleaseNotes = release.Notes
	c.logf("%s: %s", c.Release.Name(), r.ReleaseFeed)

	if r.PackageFeed, err = c.Package.Version(ctx); err != nil {
		return Readings{}, classifySourceError(c.Package.Name(), err)
	}
	c.logf("%s: %s", c.Package.Name(), r.PackageFeed)

	if r.RemotePluginCommit, err = c.Plugin.Commit(ctx); err != nil {
		return Readings{}, classifySourceError(c.Plugin.Name(), err)
	}
	c.logf("%s: %s", c.Plugin.Name(), r.RemotePluginCommit)

	if r.Installed, err = c.Installed.Version(ctx); err != nil {
		return Readings{}, classifySourceError(c.Installed.Name(), err)
	}
	c.logf("%s: %s", c.Installed.Name(), r.Installed)

	if r.Running, err = c.Running.Version(ctx); err != nil {
		return Readings{}, classifySourceError(c.Running.Name(), err)
	}
	c.logf("%s: %s", c.Running.Name(), r.Running)

	return r, nil
}

func (c *Collector) logf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}
