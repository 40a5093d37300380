package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"trybuild/internal/config"
	"trybuild/internal/logging"
	"trybuild/internal/spool"
)

// newTryServerCommand is the receiving end of the ssh transport. It reads one
// job from stdin and drops it into the spool.
func newTryServerCommand(ctx *commandContext) *cobra.Command {
	var jobdir string

	cmd := &cobra.Command{
		Use:   "tryserver",
		Short: "Deliver a try job read from stdin into a job spool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(jobdir) == "" {
				return errors.New("tryserver requires --jobdir")
			}
			root, err := config.ExpandPath(jobdir)
			if err != nil {
				return fmt.Errorf("jobdir: %w", err)
			}
			sp, err := spool.Open(root)
			if err != nil {
				return err
			}
			payload, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read job from stdin: %w", err)
			}
			if len(payload) == 0 {
				return errors.New("no job received on stdin")
			}
			entry, err := sp.Deliver(payload)
			if err != nil {
				return err
			}
			ctx.clientLogger().Info("try job delivered",
				logging.String("entry", entry.Name),
				logging.Int64("bytes", entry.Size))
			return nil
		},
	}
	cmd.Flags().StringVar(&jobdir, "jobdir", "", "Job spool directory")
	return cmd
}
