// Package update gathers version readings for the menu bar host and the
// plugin itself, and reconciles them into a Decision.
//
// This package handles:
//   - Strict semantic version parsing for release tags, cask versions and bundles
//   - Querying the GitHub API (through the ratelimit client) for the latest
//     host release and the plugin's own head commit
//   - Querying the Homebrew cask API
//   - Reading the installed and running host version for SwiftBar or BitBar
//   - Deciding whether anything should be shown
//
// The package is isolated from presentation. It returns structured data
// (Readings, Decision) that the menu package renders.
//
// Example usage:
//
//	collector := update.NewCollector(update.CollectorConfig{...})
//	readings, err := collector.Collect(ctx)
//	if err != nil {
//	    // render a diagnostic menu
//	}
//	decision := update.Decide(readings.Inputs(threshold))
//	if decision.HasAnythingToShow() {
//	    // render the menu
//	}
package update
