package update

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"howett.net/plist"
)

// Environment variables set by the menu bar host.
const (
	EnvSwiftBar        = "SWIFTBAR"
	EnvSwiftBarVersion = "SWIFTBAR_VERSION"
)

// Errors reading the host's own version.
var (
	ErrNoRunningVersion = errors.New("host did not report its running version")
	ErrMalformedBundle  = errors.New("malformed bundle descriptor")
)

// HostFlavor is the menu bar application running the plugin.
type HostFlavor int

const (
	// FlavorBitBar is the original BitBar app.
	FlavorBitBar HostFlavor = iota
	// FlavorSwiftBar is SwiftBar.
	FlavorSwiftBar
)

type flavorInfo struct {
	name        string
	cask        string
	infoPlist   string
	releaseRepo Repo
	// frozen is set for hosts that no longer publish releases.
	frozen      Version
	releasePage string
}

var flavors = map[HostFlavor]flavorInfo{
	FlavorSwiftBar: {
		name:        "SwiftBar",
		cask:        "swiftbar",
		infoPlist:   "/Applications/SwiftBar.app/Contents/Info.plist",
		releaseRepo: Repo{Owner: "swiftbar", Name: "SwiftBar"},
		releasePage: "https://github.com/swiftbar/SwiftBar/releases/latest",
	},
	FlavorBitBar: {
		name:        "BitBar",
		cask:        "bitbar",
		infoPlist:   "/Applications/BitBar.app/Contents/Info.plist",
		frozen:      NewVersion(1, 10, 1),
		releasePage: "https://github.com/matryer/BitBar/releases/latest",
	},
}

// DetectFlavor reports which host runs the plugin. SwiftBar sets SWIFTBAR=1
// in the plugin environment; anything else is treated as BitBar.
func DetectFlavor(getenv func(string) string) HostFlavor {
	if getenv == nil {
		getenv = os.Getenv
	}
	if strings.TrimSpace(getenv(EnvSwiftBar)) == "1" {
		return FlavorSwiftBar
	}
	return FlavorBitBar
}

func (f HostFlavor) info() flavorInfo {
	if info, ok := flavors[f]; ok {
		return info
	}
	return flavors[FlavorBitBar]
}

// String returns the display name of the host.
func (f HostFlavor) String() string {
	return f.info().name
}

// CaskName is the Homebrew cask that installs the host.
func (f HostFlavor) CaskName() string {
	return f.info().cask
}

// InfoPlistPath is the bundle descriptor of the installed host.
func (f HostFlavor) InfoPlistPath() string {
	return f.info().infoPlist
}

// ReleaseRepo returns the repository publishing host releases. Hosts that
// no longer publish releases report ok=false; see FrozenRelease.
func (f HostFlavor) ReleaseRepo() (repo Repo, ok bool) {
	info := f.info()
	return info.releaseRepo, info.frozen.IsZero()
}

// FrozenRelease is the final release of a discontinued host.
func (f HostFlavor) FrozenRelease() Version {
	return f.info().frozen
}

// ReleasePageURL links to the latest release on GitHub.
func (f HostFlavor) ReleasePageURL() string {
	return f.info().releasePage
}

type bundleInfo struct {
	ShortVersion string `plist:"CFBundleShortVersionString"`
}

// ReadBundleVersion reads CFBundleShortVersionString from an Info.plist in
// any of the plist encodings.
func ReadBundleVersion(path string) (Version, error) {
	//nolint:gosec // G304: path is a fixed application bundle location
	data, err := os.ReadFile(path)
	if err != nil {
		return Version{}, fmt.Errorf("read %s: %w", path, err)
	}
	var info bundleInfo
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return Version{}, fmt.Errorf("%w: %s: %v", ErrMalformedBundle, path, err)
	}
	if info.ShortVersion == "" {
		return Version{}, fmt.Errorf("%w: %s has no CFBundleShortVersionString", ErrMalformedBundle, path)
	}
	return ParseVersion(info.ShortVersion)
}

// InstalledVersion reads the version of the installed host bundle.
func InstalledVersion(f HostFlavor) (Version, error) {
	return ReadBundleVersion(f.InfoPlistPath())
}

// RunningVersion returns the version of the host process currently running
// the plugin. BitBar exposes none, so its installed version stands in.
func RunningVersion(f HostFlavor, getenv func(string) string, installed func() (Version, error)) (Version, error) {
	if f != FlavorSwiftBar {
		return installed()
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	raw := strings.TrimSpace(getenv(EnvSwiftBarVersion))
	if raw == "" {
		return Version{}, fmt.Errorf("%w: %s is not set", ErrNoRunningVersion, EnvSwiftBarVersion)
	}
	return ParseVersion(raw)
}
