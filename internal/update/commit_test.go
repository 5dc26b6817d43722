package update

import (
	"errors"
	"runtime/debug"
	"testing"
)

func TestCommitIdentitySame(t *testing.T) {
	full := CommitIdentity("3f2a9c1d8e7b6a5f4e3d2c1b0a9f8e7d6c5b4a39")
	tests := []struct {
		name string
		a, b CommitIdentity
		want bool
	}{
		{"identical", full, full, true},
		{"case insensitive", full, CommitIdentity("3F2A9C1D8E7B6A5F4E3D2C1B0A9F8E7D6C5B4A39"), true},
		{"pseudo-version abbreviation", CommitIdentity("3f2a9c1d8e7b"), full, true},
		{"abbreviation either side", full, CommitIdentity("3f2a9c1"), true},
		{"too short to abbreviate", CommitIdentity("3f2a9c"), full, false},
		{"different commits", full, CommitIdentity("aaaa9c1d8e7b6a5f4e3d2c1b0a9f8e7d6c5b4a39"), false},
		{"empty never matches", CommitIdentity(""), CommitIdentity(""), false},
		{"empty vs hash", CommitIdentity(""), full, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Same(tt.b); got != tt.want {
				t.Errorf("Same(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCommitIdentityShort(t *testing.T) {
	if got := CommitIdentity("3f2a9c1d8e7b").Short(); got != "3f2a9c1" {
		t.Errorf("Short() = %q, want 3f2a9c1", got)
	}
	if got := CommitIdentity("abc").Short(); got != "abc" {
		t.Errorf("Short() = %q, want abc", got)
	}
}

func TestBuildCommit(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		info     *debug.BuildInfo
		want     CommitIdentity
		wantErr  bool
	}{
		{
			name:     "ldflags value wins",
			explicit: "feedface",
			info: &debug.BuildInfo{Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
			}},
			want: "feedface",
		},
		{
			name:     "unknown placeholder ignored",
			explicit: "unknown",
			info: &debug.BuildInfo{Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
			}},
			want: "0123456789abcdef",
		},
		{
			name: "pseudo-version hash",
			info: &debug.BuildInfo{Main: debug.Module{Version: "v0.0.0-20260102150405-abcdef123456"}},
			want: "abcdef123456",
		},
		{
			name: "pseudo-version after a tag",
			info: &debug.BuildInfo{Main: debug.Module{Version: "v1.2.4-0.20260102150405-abcdef123456"}},
			want: "abcdef123456",
		},
		{
			name:    "tagged release has no hash",
			info:    &debug.BuildInfo{Main: debug.Module{Version: "v1.2.3"}},
			wantErr: true,
		},
		{
			name:    "devel build",
			info:    &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			wantErr: true,
		},
		{
			name:    "no build info",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildCommit(tt.explicit, tt.info)
			if tt.wantErr {
				if !errors.Is(err, ErrNoBuildCommit) {
					t.Fatalf("BuildCommit() error = %v, want ErrNoBuildCommit", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCommit() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildCommit() = %q, want %q", got, tt.want)
			}
		})
	}
}
