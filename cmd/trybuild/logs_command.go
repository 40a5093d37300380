package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trybuild/internal/config"
	"trybuild/internal/daemonctl"
	"trybuild/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "logs [basedir]",
		Short: "Print the end of master.log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			basedir, err := basedirArg(args)
			if err != nil {
				return err
			}
			if err := daemonctl.ValidateBasedir(basedir); err != nil {
				return err
			}
			cfg, err := config.Load(basedir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			chunk, err := logs.Last(cfg.LogPath(), lines)
			if err != nil {
				return err
			}
			for _, line := range chunk.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return logs.Follow(followCtx, cfg.LogPath(), chunk.Offset, 250*time.Millisecond, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}
