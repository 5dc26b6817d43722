package menu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	appErrors "github.com/fenhl/bitbar-version/internal/errors"
	"github.com/fenhl/bitbar-version/internal/ratelimit"
	"github.com/fenhl/bitbar-version/internal/update"
)

// DefaultInstallPackage is what the plugin self-update command installs.
const DefaultInstallPackage = "github.com/fenhl/bitbar-version/cmd/bitbar-version@latest"

// errorWrapWidth keeps diagnostic lines readable in a dropdown.
const errorWrapWidth = 80

// Options controls how decisions become menu items.
type Options struct {
	// Executable is the plugin binary, used for the hide command.
	Executable string
	// InstallPackage is passed to `go install` to update the plugin.
	InstallPackage string
}

func (o Options) installPackage() string {
	if o.InstallPackage != "" {
		return o.InstallPackage
	}
	return DefaultInstallPackage
}

func title(flavor update.HostFlavor) Item {
	item := Item{Text: "↑"}
	if flavor == update.FlavorSwiftBar {
		item = Item{SFImage: "arrow.down.app"}
	}
	return item
}

// Render turns a decision into a menu. When there is nothing to show the
// menu is empty and the plugin hides itself.
func Render(d update.Decision, r update.Readings, opts Options) Menu {
	if !d.HasAnythingToShow() {
		return Menu{}
	}

	m := Menu{Title: []Item{title(r.Flavor)}}
	if d.PluginOutOfDate {
		m.Items = append(m.Items,
			Text("New version of this plugin available"),
			Item{
				Text:     "Update Via go install",
				Command:  []string{"go", "install", opts.installPackage()},
				Terminal: true,
			},
		)
	}
	if !d.ShowAppPrompts() {
		return m
	}

	if d.AppUpdateAvailable {
		m.Items = append(m.Items,
			Text("%s %s available", r.Flavor, d.ReleaseFeed),
			Text("You have %s", d.Running),
		)
		if d.PackageFeedBehind {
			m.Items = append(m.Items, Text("Homebrew has %s", d.PackageFeed))
		}
		if d.PackageUpgradeAvailable {
			m.Items = append(m.Items, Item{
				Text:     fmt.Sprintf("Install using `brew upgrade --cask %s`", r.CaskName),
				Command:  []string{"brew", "upgrade", "--cask", r.CaskName},
				Terminal: true,
			})
		}
		if d.PackageFeedBehind {
			releaseURL := r.ReleaseURL
			if releaseURL == "" {
				releaseURL = r.Flavor.ReleasePageURL()
			}
			m.Items = append(m.Items,
				Item{
					Text:     "Send Pull Request to Homebrew",
					Command:  []string{"brew", "bump-cask-pr", "--version", d.ReleaseFeed.String(), r.CaskName},
					Terminal: true,
				},
				Item{Text: "Open GitHub Release", Href: releaseURL},
			)
			if opts.Executable != "" {
				m.Items = append(m.Items, Item{
					Text:    "Hide Until Homebrew Is Updated",
					Command: []string{opts.Executable, "hide-until-homebrew-gt", d.PackageFeed.String()},
					Refresh: true,
				})
			}
		}
		return m
	}

	m.Items = append(m.Items,
		Text("Restart to update to %s %s", r.Flavor, d.Installed),
		Text("Currently running: %s", d.Running),
	)
	return m
}

// RenderError builds a diagnostic menu for a failed run.
func RenderError(err error) Menu {
	m := Menu{Title: []Item{{Text: "?", Color: "red"}}}
	if err == nil {
		return m
	}

	var lines []string
	switch appErrors.CodeOf(err) {
	case appErrors.CodeThrottlingExhausted:
		lines = append(lines, "GitHub rate limit exceeded")
		lines = append(lines, "Add a githubToken to the plugin config to raise the limit")
	case appErrors.CodeHTTPStatus:
		lines = append(lines, "HTTP error")
	case appErrors.CodeTransport:
		lines = append(lines, "network error")
	case appErrors.CodeParseFailed:
		lines = append(lines, "error parsing version")
	case appErrors.CodeMissingData:
		lines = append(lines, "missing version data")
	case appErrors.CodeIO:
		lines = append(lines, "I/O error")
	case appErrors.CodeConfigurationError:
		lines = append(lines, "configuration error")
	case appErrors.CodeUncloneableRequest:
		lines = append(lines, "internal error: request cannot be retried")
	default:
		lines = append(lines, "error")
	}
	for _, line := range lines {
		m.Items = append(m.Items, Item{Text: line})
	}

	for _, line := range wrapLines(err.Error(), errorWrapWidth) {
		m.Items = append(m.Items, Item{Text: line})
	}

	var statusErr *ratelimit.StatusError
	if errors.As(err, &statusErr) && statusErr.URL != "" {
		m.Items = append(m.Items, Item{
			Text:  "URL: " + statusErr.URL,
			Href:  statusErr.URL,
			Color: "blue",
		})
	}
	return m
}

func wrapLines(text string, width int) []string {
	wrapped := wordwrap.String(strings.TrimSpace(text), width)
	var lines []string
	for _, line := range strings.Split(wrapped, "\n") {
		if line = strings.TrimRight(line, " "); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
