package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenhl/bitbar-version/internal/update"
)

func newVersionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "Show every version the check compares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			closeLog := ctx.startLogging(cmd)
			defer closeLog()

			result, err := ctx.check(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Source", "Version"},
				versionRows(result),
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func versionRows(result checkResult) [][]string {
	r := result.readings
	d := result.decision
	threshold := "-"
	if result.threshold != nil {
		threshold = result.threshold.String()
	}

	releaseLabel := "GitHub release"
	if _, ok := r.Flavor.ReleaseRepo(); !ok {
		releaseLabel = "Final release"
	}

	return [][]string{
		{"Plugin build", r.PluginCommit.Short()},
		{"Plugin head", r.RemotePluginCommit.Short()},
		{releaseLabel, r.ReleaseFeed.String()},
		{"Homebrew cask " + r.CaskName, r.PackageFeed.String()},
		{"Installed " + r.Flavor.String(), r.Installed.String()},
		{"Running " + r.Flavor.String(), r.Running.String()},
		{"Hidden until Homebrew >", threshold},
		{"Status", status(d)},
	}
}

func status(d update.Decision) string {
	switch {
	case d.PluginOutOfDate && d.ShowAppPrompts():
		return "plugin and app updates"
	case d.PluginOutOfDate:
		return "plugin update"
	case d.AppUpdateAvailable && d.ShowAppPrompts():
		return "app update"
	case d.RestartRequired && d.ShowAppPrompts():
		return "restart required"
	case d.SuppressionActive && (d.AppUpdateAvailable || d.RestartRequired):
		return "hidden"
	default:
		return "up to date"
	}
}
