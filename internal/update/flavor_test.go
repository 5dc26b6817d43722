package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const infoPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleIdentifier</key>
	<string>com.ameba.SwiftBar</string>
	<key>CFBundleShortVersionString</key>
	<string>%s</string>
	<key>CFBundleVersion</key>
	<string>520</string>
</dict>
</plist>
`

func writeInfoPlist(t *testing.T, shortVersion string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Info.plist")
	content := []byte(fmt.Sprintf(infoPlistTemplate, shortVersion))
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write plist: %v", err)
	}
	return path
}

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestDetectFlavor(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want HostFlavor
	}{
		{"swiftbar", map[string]string{"SWIFTBAR": "1"}, FlavorSwiftBar},
		{"bitbar", map[string]string{"BitBar": "1"}, FlavorBitBar},
		{"empty", nil, FlavorBitBar},
		{"swiftbar disabled", map[string]string{"SWIFTBAR": "0"}, FlavorBitBar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFlavor(envMap(tt.env)); got != tt.want {
				t.Errorf("DetectFlavor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlavorData(t *testing.T) {
	if FlavorSwiftBar.String() != "SwiftBar" || FlavorBitBar.String() != "BitBar" {
		t.Errorf("names = %q, %q", FlavorSwiftBar, FlavorBitBar)
	}
	if FlavorSwiftBar.CaskName() != "swiftbar" || FlavorBitBar.CaskName() != "bitbar" {
		t.Errorf("casks = %q, %q", FlavorSwiftBar.CaskName(), FlavorBitBar.CaskName())
	}
	if got := FlavorBitBar.InfoPlistPath(); got != "/Applications/BitBar.app/Contents/Info.plist" {
		t.Errorf("BitBar plist = %q", got)
	}

	repo, ok := FlavorSwiftBar.ReleaseRepo()
	if !ok || repo != (Repo{Owner: "swiftbar", Name: "SwiftBar"}) {
		t.Errorf("SwiftBar ReleaseRepo() = %v, %v", repo, ok)
	}
	if _, ok := FlavorBitBar.ReleaseRepo(); ok {
		t.Error("BitBar should not have a live release repo")
	}
	if got := FlavorBitBar.FrozenRelease().String(); got != "1.10.1" {
		t.Errorf("BitBar FrozenRelease() = %s, want 1.10.1", got)
	}
}

func TestReadBundleVersion(t *testing.T) {
	v, err := ReadBundleVersion(writeInfoPlist(t, "1.4.3"))
	if err != nil {
		t.Fatalf("ReadBundleVersion() error: %v", err)
	}
	if v.String() != "1.4.3" {
		t.Errorf("ReadBundleVersion() = %s, want 1.4.3", v)
	}
}

func TestReadBundleVersionErrors(t *testing.T) {
	if _, err := ReadBundleVersion(filepath.Join(t.TempDir(), "missing.plist")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}

	if _, err := ReadBundleVersion(writeInfoPlist(t, "1.4")); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("short version error = %v, want ErrInvalidVersion", err)
	}

	path := filepath.Join(t.TempDir(), "Info.plist")
	if err := os.WriteFile(path, []byte(`<?xml version="1.0"?><plist version="1.0"><dict></dict></plist>`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadBundleVersion(path); !errors.Is(err, ErrMalformedBundle) {
		t.Errorf("empty dict error = %v, want ErrMalformedBundle", err)
	}
}

func TestInstalledBundleUsesFlavorPlist(t *testing.T) {
	path := FlavorSwiftBar.InfoPlistPath()
	if _, err := os.Stat(path); err == nil {
		t.Skipf("%s exists on this machine", path)
	}

	_, err := InstalledBundle{Flavor: FlavorSwiftBar}.Version(context.Background())
	if !errors.Is(err, os.ErrNotExist) || !strings.Contains(err.Error(), path) {
		t.Errorf("InstalledBundle{}.Version() error = %v, want not-exist for %s", err, path)
	}

	v, err := InstalledBundle{Flavor: FlavorSwiftBar, Path: writeInfoPlist(t, "2.0.1")}.Version(context.Background())
	if err != nil || v.String() != "2.0.1" {
		t.Errorf("InstalledBundle{Path}.Version() = %s, %v", v, err)
	}
}

func TestRunningVersion(t *testing.T) {
	installed := func() (Version, error) { return MustParseVersion("1.10.1"), nil }

	v, err := RunningVersion(FlavorSwiftBar, envMap(map[string]string{"SWIFTBAR_VERSION": "2.0.0"}), installed)
	if err != nil || v.String() != "2.0.0" {
		t.Errorf("SwiftBar RunningVersion() = %s, %v", v, err)
	}

	v, err = RunningVersion(FlavorBitBar, envMap(nil), installed)
	if err != nil || v.String() != "1.10.1" {
		t.Errorf("BitBar RunningVersion() = %s, %v", v, err)
	}

	if _, err := RunningVersion(FlavorSwiftBar, envMap(nil), installed); !errors.Is(err, ErrNoRunningVersion) {
		t.Errorf("unset SWIFTBAR_VERSION error = %v, want ErrNoRunningVersion", err)
	}
}
