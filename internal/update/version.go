package update

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Error variables for version parsing.
var (
	ErrInvalidVersion = errors.New("invalid version format")
	ErrNoLeadingV     = errors.New("release tag does not start with 'v'")
)

// Version is a strictly parsed semantic version. Ordering follows semver
// precedence: pre-releases sort below the release, build metadata is ignored.
type Version struct {
	sv semver.Version
}

// ParseVersion parses a semantic version string such as "1.2.3-beta.1+build.5".
// A leading 'v' is rejected; use ParseReleaseTag for tags.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("%w: empty version string", ErrInvalidVersion)
	}
	sv, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, s, err)
	}
	return Version{sv: *sv}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// NewVersion builds a release version from its numeric parts.
func NewVersion(major, minor, patch uint64) Version {
	return Version{sv: *semver.New(major, minor, patch, "", "")}
}

// ParseReleaseTag parses a GitHub release tag, which must be "v" followed by
// a semantic version. A tag without the prefix is an error, never coerced.
func ParseReleaseTag(tag string) (Version, error) {
	tag = strings.TrimSpace(tag)
	if !strings.HasPrefix(tag, "v") {
		return Version{}, fmt.Errorf("%w: %q", ErrNoLeadingV, tag)
	}
	return ParseVersion(tag[1:])
}

// ParseCaskVersion parses a Homebrew cask version. Casks may append a build
// identifier after a comma ("1.4.2,abcdef"); only the part before it counts.
func ParseCaskVersion(s string) (Version, error) {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	return ParseVersion(s)
}

// String returns the version without a 'v' prefix.
func (v Version) String() string {
	if v.IsZero() {
		return ""
	}
	return v.sv.String()
}

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool {
	return v.sv.Original() == "" && v.sv.Major() == 0 && v.sv.Minor() == 0 && v.sv.Patch() == 0 && v.sv.Prerelease() == ""
}

// Major returns the major component.
func (v Version) Major() uint64 { return v.sv.Major() }

// Minor returns the minor component.
func (v Version) Minor() uint64 { return v.sv.Minor() }

// Patch returns the patch component.
func (v Version) Patch() uint64 { return v.sv.Patch() }

// Prerelease returns the pre-release identifiers, if any.
func (v Version) Prerelease() string { return v.sv.Prerelease() }

// Metadata returns the build metadata, if any.
func (v Version) Metadata() string { return v.sv.Metadata() }

// Compare compares two versions.
// Returns:
//
//	-1 if v < other
//	 0 if v == other
//	 1 if v > other
func (v Version) Compare(other Version) int {
	return v.sv.Compare(&other.sv)
}

// LessThan returns true if v < other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

// GreaterThan returns true if v > other.
func (v Version) GreaterThan(other Version) bool {
	return v.Compare(other) > 0
}

// Equal returns true if v and other have the same precedence.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// MarshalText encodes the version as its string form.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses a strict semantic version.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
