package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"trybuild/internal/daemonrun"
)

// newMasterCommand runs the master in the current process. "start" launches
// it detached.
func newMasterCommand(ctx *commandContext) *cobra.Command {
	var development bool

	cmd := &cobra.Command{
		Use:    "master [basedir]",
		Short:  "Run the buildmaster in the foreground",
		Hidden: true,
		Args:   cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			basedir, err := basedirArg(args)
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), basedir, daemonrun.Options{
				Foreground:  isatty.IsTerminal(os.Stdout.Fd()),
				Development: development,
			})
		},
	}
	cmd.Flags().BoolVar(&development, "development", false, "Include source locations in master logs")
	return cmd
}
