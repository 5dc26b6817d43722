package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	userConfigRel = "bitbar/plugins/bitbar-version.json"
	dataRel       = "bitbar/plugin-cache"
)

// UserConfigPath returns $XDG_CONFIG_HOME/bitbar/plugins/bitbar-version.json.
func UserConfigPath() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, userConfigRel), nil
}

// DataDir returns the per-user directory holding persisted plugin state.
func DataDir() (string, error) {
	dir, err := xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dataRel), nil
}

func xdgDir(env, homeRel string) (string, error) {
	if dir := strings.TrimSpace(os.Getenv(env)); dir != "" && filepath.IsAbs(dir) {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, homeRel), nil
}
