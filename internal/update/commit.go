package update

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// minAbbrevLen is the shortest hash accepted as an abbreviation of another.
const minAbbrevLen = 7

// ErrNoBuildCommit is returned when the running binary carries no commit hash.
var ErrNoBuildCommit = errors.New("build has no commit identity")

// CommitIdentity is a source-control commit hash. It is compared only for
// equality, never ordered.
type CommitIdentity string

// String returns the hash as given.
func (c CommitIdentity) String() string {
	return string(c)
}

// Short returns the first seven characters of the hash.
func (c CommitIdentity) Short() string {
	if len(c) <= minAbbrevLen {
		return string(c)
	}
	return string(c[:minAbbrevLen])
}

// IsZero reports whether the identity is empty.
func (c CommitIdentity) IsZero() bool {
	return strings.TrimSpace(string(c)) == ""
}

// Same reports whether c and other name the same commit. This is looser
// than string equality on purpose: a binary built with `go install
// module@branch` only records the 12-character hash of its pseudo-version,
// so an abbreviated hash of at least seven characters matches a longer
// hash it prefixes. Hashes compare case-insensitively. An empty identity
// never matches.
func (c CommitIdentity) Same(other CommitIdentity) bool {
	a := strings.ToLower(strings.TrimSpace(string(c)))
	b := strings.ToLower(strings.TrimSpace(string(other)))
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	return len(a) >= minAbbrevLen && strings.HasPrefix(b, a)
}

// BuildCommit resolves the commit this binary was built from. An explicit
// value (set with -ldflags -X) wins, then the vcs.revision build setting,
// then the hash embedded in a pseudo-version of the main module, which is
// what `go install module@branch` records.
func BuildCommit(explicit string, info *debug.BuildInfo) (CommitIdentity, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" && explicit != "unknown" {
		return CommitIdentity(explicit), nil
	}
	if info == nil {
		return "", ErrNoBuildCommit
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			return CommitIdentity(setting.Value), nil
		}
	}
	if hash, ok := pseudoVersionHash(info.Main.Version); ok {
		return CommitIdentity(hash), nil
	}
	return "", fmt.Errorf("%w (module version %q)", ErrNoBuildCommit, info.Main.Version)
}

// CurrentBuildCommit is BuildCommit applied to the running binary.
func CurrentBuildCommit(explicit string) (CommitIdentity, error) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		info = nil
	}
	return BuildCommit(explicit, info)
}

// pseudoVersionHash extracts the 12-character revision from versions such
// as v0.0.0-20240102150405-abcdef123456.
func pseudoVersionHash(version string) (string, bool) {
	if version == "" || version == "(devel)" {
		return "", false
	}
	sv, err := semver.NewVersion(version)
	if err != nil {
		return "", false
	}
	pre := sv.Prerelease()
	i := strings.LastIndexByte(pre, '-')
	if i < 0 {
		return "", false
	}
	hash := pre[i+1:]
	if len(hash) != 12 || !isHex(hash) {
		return "", false
	}
	return hash, true
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
