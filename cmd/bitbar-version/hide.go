package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fenhl/bitbar-version/internal/debug"
	appErrors "github.com/fenhl/bitbar-version/internal/errors"
	"github.com/fenhl/bitbar-version/internal/suppress"
	"github.com/fenhl/bitbar-version/internal/update"
)

func newHideCommand(ctx *commandContext) *cobra.Command {
	var clearFlag bool

	cmd := &cobra.Command{
		Use:   "hide-until-homebrew-gt VERSION",
		Short: "Hide app update prompts until Homebrew publishes a version greater than VERSION",
		Args: func(cmd *cobra.Command, args []string) error {
			if clearFlag {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			closeLog := ctx.startLogging(cmd)
			defer closeLog()

			store, err := ctx.store()
			if err != nil {
				return err
			}
			if clearFlag {
				debug.Log("clearing suppression threshold")
				return suppress.Clear(cmd.Context(), store)
			}

			raw := strings.TrimSpace(args[0])
			threshold, err := update.ParseVersion(raw)
			if err != nil {
				return appErrors.New(appErrors.CodeParseFailed, fmt.Sprintf("invalid version %q: %v", raw, err), err)
			}
			debug.Logf("hiding app prompts until homebrew > %s", threshold)
			return suppress.SetThreshold(cmd.Context(), store, threshold)
		},
	}
	cmd.Flags().BoolVar(&clearFlag, "clear", false, "Remove the threshold and show app prompts again")
	return cmd
}

