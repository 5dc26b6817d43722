package update

// Inputs are the readings a decision is made from.
type Inputs struct {
	PluginCommit       CommitIdentity
	RemotePluginCommit CommitIdentity

	Installed   Version
	Running     Version
	PackageFeed Version
	ReleaseFeed Version

	// Suppressed is the persisted "hide until Homebrew is greater than"
	// threshold, nil when unset.
	Suppressed *Version
}

// Decision says what a run should show. It is built once by Decide.
type Decision struct {
	PluginOutOfDate bool

	AppUpdateAvailable bool
	// PackageFeedBehind and PackageUpgradeAvailable refine an available
	// app update; both are false otherwise.
	PackageFeedBehind       bool
	PackageUpgradeAvailable bool

	RestartRequired   bool
	SuppressionActive bool

	Installed   Version
	Running     Version
	PackageFeed Version
	ReleaseFeed Version
}

// Decide reconciles version readings into a Decision.
//
// The plugin is out of date when its commit differs from the remote head.
// An app update is available when the installed bundle is older than the
// release feed; otherwise a restart is required when the running process
// is older than the release feed. Suppression is active when the package
// feed has not moved past the persisted threshold, and only withholds the
// app prompts, never the plugin prompt.
func Decide(in Inputs) Decision {
	d := Decision{
		PluginOutOfDate: !in.PluginCommit.Same(in.RemotePluginCommit),
		Installed:       in.Installed,
		Running:         in.Running,
		PackageFeed:     in.PackageFeed,
		ReleaseFeed:     in.ReleaseFeed,
	}

	if in.Installed.LessThan(in.ReleaseFeed) {
		d.AppUpdateAvailable = true
		d.PackageFeedBehind = in.PackageFeed.LessThan(in.ReleaseFeed)
		d.PackageUpgradeAvailable = in.PackageFeed.GreaterThan(in.Installed)
	} else if in.Running.LessThan(in.ReleaseFeed) {
		d.RestartRequired = true
	}

	if in.Suppressed != nil {
		d.SuppressionActive = !in.PackageFeed.GreaterThan(*in.Suppressed)
	}
	return d
}

// ShowAppPrompts reports whether the host update or restart prompts
// survive suppression.
func (d Decision) ShowAppPrompts() bool {
	return (d.AppUpdateAvailable || d.RestartRequired) && !d.SuppressionActive
}

// HasAnythingToShow reports whether the run should display a menu at all.
func (d Decision) HasAnythingToShow() bool {
	return d.PluginOutOfDate || d.ShowAppPrompts()
}
