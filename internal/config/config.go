package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

const (
	KeyGitHubToken = "githubToken"
	KeyHTTPTimeout = "http.timeout"
	KeyDebug       = "debug"
	KeyOutput      = "output.format"

	KeyStateBackend = "state.backend"
	KeyStatePath    = "state.path"

	KeyPluginOwner = "plugin.owner"
	KeyPluginRepo  = "plugin.repo"
)

const (
	// DefaultHTTPTimeout bounds a single HTTP attempt, not the retry loop.
	DefaultHTTPTimeout = 30 * time.Second

	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	envPrefix = "BITBAR_VERSION"
)

type initSettings struct {
	userConfigPath string
}

// Option configures Initialize behaviour. Useful for tests to override paths.
type Option func(*initSettings)

// WithUserConfig overrides the default user config path.
func WithUserConfig(path string) Option {
	return func(cfg *initSettings) {
		cfg.userConfigPath = path
	}
}

var (
	configOnce sync.Once
	configMu   sync.RWMutex
	configInst *viper.Viper
	initErr    error
)

// Initialize loads configuration using the precedence:
// defaults < user config < environment variables < overrides.
func Initialize(opts ...Option) error {
	configOnce.Do(func() {
		settings := initSettings{}
		for _, opt := range opts {
			opt(&settings)
		}
		initErr = configure(&settings)
	})
	return initErr
}

// ApplyOverrides injects values typically coming from CLI flags.
func ApplyOverrides(overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	if err := Initialize(); err != nil {
		return err
	}
	configMu.Lock()
	defer configMu.Unlock()
	if configInst == nil {
		return fmt.Errorf("configuration not initialized")
	}
	for k, v := range overrides {
		configInst.Set(k, v)
	}
	return nil
}

// GetString fetches a string configuration value, initializing on demand.
func GetString(key string) string {
	v, err := getViper()
	if err != nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool fetches a bool configuration value, initializing on demand.
func GetBool(key string) bool {
	v, err := getViper()
	if err != nil {
		return false
	}
	return v.GetBool(key)
}

// GetDuration fetches a duration configuration value, initializing on demand.
func GetDuration(key string) time.Duration {
	v, err := getViper()
	if err != nil {
		return 0
	}
	return v.GetDuration(key)
}

// Validate reports every invalid setting at once.
func Validate() error {
	v, err := getViper()
	if err != nil {
		return err
	}

	var result *multierror.Error
	switch backend := strings.ToLower(strings.TrimSpace(v.GetString(KeyStateBackend))); backend {
	case BackendJSON, BackendSQLite:
	default:
		result = multierror.Append(result, fmt.Errorf("%s: unsupported backend %q (want %s or %s)", KeyStateBackend, backend, BackendJSON, BackendSQLite))
	}
	if timeout := v.GetDuration(KeyHTTPTimeout); timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("%s: must be positive, got %s", KeyHTTPTimeout, timeout))
	}
	if strings.TrimSpace(v.GetString(KeyPluginOwner)) == "" {
		result = multierror.Append(result, fmt.Errorf("%s: must not be empty", KeyPluginOwner))
	}
	if strings.TrimSpace(v.GetString(KeyPluginRepo)) == "" {
		result = multierror.Append(result, fmt.Errorf("%s: must not be empty", KeyPluginRepo))
	}
	switch format := strings.ToLower(strings.TrimSpace(v.GetString(KeyOutput))); format {
	case "auto", "menu", "terminal":
	default:
		result = multierror.Append(result, fmt.Errorf("%s: unsupported format %q", KeyOutput, format))
	}
	return result.ErrorOrNil()
}

func configure(settings *initSettings) error {
	userConfigPath := strings.TrimSpace(settings.userConfigPath)
	if userConfigPath == "" {
		path, err := UserConfigPath()
		if err != nil {
			return err
		}
		userConfigPath = path
	}

	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyGitHubToken, envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return fmt.Errorf("bind token env: %w", err)
	}

	if err := mergeConfigFile(v, userConfigPath); err != nil {
		return fmt.Errorf("load user config: %w", err)
	}

	configMu.Lock()
	defer configMu.Unlock()
	configInst = v
	return nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	//nolint:gosec // G304: Config loader intentionally reads the user config file
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyGitHubToken, "")
	v.SetDefault(KeyHTTPTimeout, DefaultHTTPTimeout)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyOutput, "auto")
	v.SetDefault(KeyStateBackend, BackendJSON)
	v.SetDefault(KeyStatePath, "")
	v.SetDefault(KeyPluginOwner, "fenhl")
	v.SetDefault(KeyPluginRepo, "bitbar-version")
}

func getViper() (*viper.Viper, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	configMu.RLock()
	defer configMu.RUnlock()
	if configInst == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return configInst, nil
}

// reset clears package state for tests.
//
//nolint:unused // Used in config_test.go
func reset() {
	configMu.Lock()
	defer configMu.Unlock()
	configInst = nil
	initErr = nil
	configOnce = sync.Once{}
}

// ResetForTesting clears package state for tests in other packages.
// Returns a cleanup function that should be deferred.
func ResetForTesting(t interface{ TempDir() string }) func() {
	reset()
	tmp := t.TempDir()
	_ = Initialize(WithUserConfig(tmp + "/config.json"))
	return reset
}
