package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var logLevel string

	ctx := newCommandContext(&logLevel)

	rootCmd := &cobra.Command{
		Use:           "trybuild",
		Short:         "Submit try jobs and manage the buildmaster",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx.stderr = cmd.ErrOrStderr()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Client log level (debug, info, warn, error)")

	rootCmd.AddCommand(newTryCommand(ctx))
	rootCmd.AddCommand(newTryServerCommand(ctx))
	for _, cmd := range newDaemonCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newOptionsCommand(ctx))
	rootCmd.AddCommand(newMasterCommand(ctx))

	return rootCmd
}
