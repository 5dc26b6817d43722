package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/fenhl/bitbar-version/internal/config"
	"github.com/fenhl/bitbar-version/internal/debug"
	appErrors "github.com/fenhl/bitbar-version/internal/errors"
	"github.com/fenhl/bitbar-version/internal/ratelimit"
	"github.com/fenhl/bitbar-version/internal/suppress"
	"github.com/fenhl/bitbar-version/internal/transport"
	"github.com/fenhl/bitbar-version/internal/update"
)

// commandContext carries state shared by every subcommand. The unexported
// hooks default to the real environment and are replaced in tests.
type commandContext struct {
	debugFlag *bool

	getenv     func(string) string
	isTerminal func() bool
	executable func() (string, error)
	// roundTripper, infoPlist and the API bases redirect lookups in tests.
	roundTripper http.RoundTripper
	infoPlist    string
	apiBase      string
	caskBase     string

	configOnce sync.Once
	configErr  error
}

func newCommandContext(debugFlag *bool) *commandContext {
	return &commandContext{
		debugFlag:  debugFlag,
		getenv:     os.Getenv,
		isTerminal: stdoutIsTerminal,
		executable: os.Executable,
	}
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *commandContext) ensureConfig() error {
	c.configOnce.Do(func() {
		if err := config.Initialize(); err != nil {
			c.configErr = appErrors.New(appErrors.CodeConfigurationError, err.Error(), err)
			return
		}
		if c.debugFlag != nil && *c.debugFlag {
			if err := config.ApplyOverrides(map[string]any{config.KeyDebug: true}); err != nil {
				c.configErr = appErrors.New(appErrors.CodeConfigurationError, err.Error(), err)
				return
			}
		}
		if err := config.Validate(); err != nil {
			c.configErr = appErrors.New(appErrors.CodeConfigurationError, "invalid configuration: "+err.Error(), err)
		}
	})
	return c.configErr
}

// startLogging opens the debug log for one command and tags its lines with
// a fresh run ID. The returned function closes the log.
func (c *commandContext) startLogging(cmd *cobra.Command) func() {
	if err := debug.Init(config.GetBool(config.KeyDebug)); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: debug log unavailable: %v\n", err)
		return func() {}
	}
	debug.SetField("run", uuid.NewString())
	debug.SetField("command", cmd.Name())
	debug.Logf("bitbar-version %s starting", Version)
	return debug.Close
}

func (c *commandContext) flavor() update.HostFlavor {
	return update.DetectFlavor(c.getenv)
}

func (c *commandContext) newCollector() (*update.Collector, error) {
	httpClient, err := transport.NewClient(transport.Options{
		UserAgent: userAgent(),
		Timeout:   config.GetDuration(config.KeyHTTPTimeout),
		Base:      c.roundTripper,
	})
	if err != nil {
		return nil, appErrors.New(appErrors.CodeTransport, err.Error(), err)
	}

	limited := ratelimit.NewClient(httpClient, ratelimit.WithLogger(debug.Logf))
	ghOpts := []update.GitHubOption{update.WithToken(config.GetString(config.KeyGitHubToken))}
	if c.apiBase != "" {
		ghOpts = append(ghOpts, update.WithAPIBase(c.apiBase))
	}

	commit, err := update.CurrentBuildCommit(Build)
	if err != nil {
		return nil, appErrors.New(appErrors.CodeMissingData, "plugin commit: "+err.Error(), err)
	}

	flavor := c.flavor()
	collector := update.NewCollector(update.CollectorConfig{
		Flavor: flavor,
		PluginRepo: update.Repo{
			Owner: strings.TrimSpace(config.GetString(config.KeyPluginOwner)),
			Name:  strings.TrimSpace(config.GetString(config.KeyPluginRepo)),
		},
		PluginCommit: commit,
		GitHub:       update.NewGitHub(limited, ghOpts...),
		Homebrew:     update.NewHomebrew(httpClient, c.caskBase),
		Getenv:       c.getenv,
	})
	if c.infoPlist != "" {
		installed := update.InstalledBundle{Flavor: flavor, Path: c.infoPlist}
		collector.Installed = installed
		collector.Running = update.RunningProcess{Flavor: flavor, Getenv: c.getenv, Installed: installed}
	}
	collector.Logf = debug.Logf
	return collector, nil
}

func (c *commandContext) store() (suppress.Store, error) {
	return suppress.Open(config.GetString(config.KeyStateBackend), strings.TrimSpace(config.GetString(config.KeyStatePath)))
}

// checkResult is the outcome of one full check.
type checkResult struct {
	readings  update.Readings
	threshold *update.Version
	decision  update.Decision
}

func (c *commandContext) check(ctx context.Context) (checkResult, error) {
	collector, err := c.newCollector()
	if err != nil {
		return checkResult{}, err
	}
	readings, err := collector.Collect(ctx)
	if err != nil {
		return checkResult{}, err
	}

	store, err := c.store()
	if err != nil {
		return checkResult{}, err
	}
	threshold, err := store.Load(ctx)
	if err != nil {
		return checkResult{}, err
	}

	decision := update.Decide(readings.Inputs(threshold))
	debug.Logf("decision: plugin=%t app=%t restart=%t suppressed=%t",
		decision.PluginOutOfDate, decision.AppUpdateAvailable, decision.RestartRequired, decision.SuppressionActive)
	return checkResult{readings: readings, threshold: threshold, decision: decision}, nil
}

func userAgent() string {
	return "fenhl-bitbar-version/" + Version
}
