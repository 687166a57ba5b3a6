package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

const appName = "linkhub-ops"

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Operator control plane for linkhub",
		Long:          "linkhub-ops serves the Discord interactions endpoint, runs the new-account feed and manages premium tickets.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.Version = version
	cmd.SetVersionTemplate(appName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newRegisterCommandsCmd(),
	)
	return cmd
}

func millis(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
