package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"trybuild/internal/config"
	"trybuild/internal/daemonctl"
	"trybuild/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "jobs [basedir]",
		Short: "List try jobs the buildmaster has ingested",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			basedir, err := basedirArg(args)
			if err != nil {
				return err
			}
			if err := daemonctl.ValidateBasedir(basedir); err != nil {
				return err
			}
			filter, err := parseStatusFilter(statusFlags)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			store, err := openLedger(basedir)
			if err != nil {
				return err
			}
			if store == nil {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			defer store.Close()

			jobs, err := store.List(cmd.Context(), filter...)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			fmt.Fprint(out, renderTable(
				[]string{"ID", "Received", "Status", "Ver", "Who", "Builders", "Detail"},
				jobRows(jobs),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Only show jobs with these statuses (received, rejected)")
	return cmd
}

func parseStatusFilter(values []string) ([]queue.Status, error) {
	var filter []queue.Status
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown job status %q", value)
		}
		filter = append(filter, status)
	}
	return filter, nil
}

func jobRows(jobs []*queue.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		who, builders, detail := "", "", job.ErrorMessage
		if job.Request != nil {
			who = job.Request.Who
			builders = strings.Join(job.Request.Builders, ", ")
			detail = job.Request.Comment
		}
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
			statusLabel(string(job.Status)),
			string(job.WireVersion),
			who,
			builders,
			detail,
		})
	}
	return rows
}

// openLedger opens the master's job ledger. It returns nil when the master
// has never run in basedir.
func openLedger(basedir string) (*queue.Store, error) {
	cfg, err := config.Load(basedir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.StatePath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat job ledger: %w", err)
	}
	return queue.Open(cfg.StatePath())
}
