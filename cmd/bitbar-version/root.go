package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/fenhl/bitbar-version/internal/config"
	"github.com/fenhl/bitbar-version/internal/menu"
)

const (
	formatAuto     = "auto"
	formatMenu     = "menu"
	formatTerminal = "terminal"
)

// reportedError marks a failure that has already been shown to the user,
// so main only sets the exit status.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func newRootCommand() *cobra.Command {
	var debugFlag bool
	return newRootCommandWithContext(newCommandContext(&debugFlag), &debugFlag)
}

func newRootCommandWithContext(ctx *commandContext, debugFlag *bool) *cobra.Command {
	var formatFlag string
	var notesFlag bool

	rootCmd := &cobra.Command{
		Use:           "bitbar-version",
		Short:         "Menu bar plugin that reports BitBar and SwiftBar updates",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			return ctx.ensureConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			format := formatFlag
			if !cmd.Flags().Changed("format") {
				format = config.GetString(config.KeyOutput)
			}
			return runCheck(cmd, ctx, format, notesFlag)
		},
	}

	rootCmd.PersistentFlags().BoolVar(debugFlag, "debug", false, "Write a debug log to ~/.bitbar-version/debug.log")
	rootCmd.Flags().StringVar(&formatFlag, "format", formatAuto, "Output format (menu, terminal, auto)")
	rootCmd.Flags().BoolVar(&notesFlag, "notes", false, "Show release notes in terminal output")

	rootCmd.AddCommand(newHideCommand(ctx))
	rootCmd.AddCommand(newVersionsCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func runCheck(cmd *cobra.Command, ctx *commandContext, format string, notes bool) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == formatAuto {
		format = formatMenu
		if ctx.isTerminal() {
			format = formatTerminal
		}
	}
	if format != formatMenu && format != formatTerminal {
		return fmt.Errorf("unknown format %q (want menu, terminal or auto)", format)
	}

	closeLog := ctx.startLogging(cmd)
	defer closeLog()

	out := cmd.OutOrStdout()
	result, err := ctx.check(cmd.Context())
	if err != nil {
		return reportCheckError(out, ctx, format, err)
	}

	opts := menu.Options{}
	if exe, exeErr := ctx.executable(); exeErr == nil {
		opts.Executable = exe
	}
	m := menu.Render(result.decision, result.readings, opts)

	if format == formatMenu {
		_, err = io.WriteString(out, m.String())
		return err
	}
	term := newTerminal(out, ctx)
	if _, err := io.WriteString(out, term.Render(m)); err != nil {
		return err
	}
	if notes {
		_, err = io.WriteString(out, term.RenderNotes(fmt.Sprintf("%s %s release notes", result.readings.Flavor, result.readings.ReleaseFeed), result.readings.ReleaseNotes))
	}
	return err
}

// reportCheckError prints the diagnostic menu for a failed check. The host
// shows it in place of the normal menu.
func reportCheckError(out io.Writer, ctx *commandContext, format string, err error) error {
	m := menu.RenderError(err)
	text := m.String()
	if format == formatTerminal {
		text = newTerminal(out, ctx).RenderError(m)
	}
	if _, writeErr := io.WriteString(out, text); writeErr != nil {
		return errors.Join(err, writeErr)
	}
	return &reportedError{err: err}
}

func newTerminal(out io.Writer, ctx *commandContext) *menu.Terminal {
	profile := termenv.Ascii
	if ctx.isTerminal() {
		profile = termenv.EnvColorProfile()
	}
	return menu.NewTerminal(out, profile, 0)
}
