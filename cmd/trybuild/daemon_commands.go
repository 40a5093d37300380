package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"trybuild/internal/daemonctl"
	"trybuild/internal/queue"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStartCommand(ctx),
		newStopCommand(ctx),
		newRestartCommand(ctx),
		newReconfigCommand(ctx),
		newStatusCommand(ctx),
	}
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "start [basedir]",
		Short: "Start the buildmaster in the background",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			basedir, err := basedirArg(args)
			if err != nil {
				return err
			}
			launcher, err := ctx.launcher()
			if err != nil {
				return err
			}
			result, err := launcher.Start(cmd.Context(), basedir)
			if err != nil {
				return err
			}
			say(cmd.OutOrStdout(), quiet, startMessage(result))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress messages")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	var (
		quiet   bool
		noWait  bool
		sigName string
	)
	cmd := &cobra.Command{
		Use:   "stop [basedir]",
		Short: "Signal the buildmaster and wait for it to exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			basedir, err := basedirArg(args)
			if err != nil {
				return err
			}
			sig, err := daemonctl.ParseSignal(sigName)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := ctx.controller().Stop(cmd.Context(), basedir, daemonctl.StopOptions{Signal: sig, Wait: !noWait})
			if errors.Is(err, daemonctl.ErrNotRunning) {
				say(out, quiet, "buildmaster not running")
				return nil
			}
			if err != nil {
				return err
			}
			say(out, quiet, stopMessage(result))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress messages")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return right after sending the signal")
	cmd.Flags().StringVar(&sigName, "signal", "TERM", "Signal to send (TERM, INT, KILL, ...)")
	return cmd
}

func newRestartCommand(ctx *commandContext) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "restart [basedir]",
		Short: "Stop the buildmaster if it is running, then start it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			basedir, err := basedirArg(args)
			if err != nil {
				return err
			}
			launcher, err := ctx.launcher()
			if err != nil {
				return err
			}
			result, err := launcher.Controller.Restart(cmd.Context(), basedir, launcher)
			out := cmd.OutOrStdout()
			if result.WasRunning {
				say(out, quiet, stopMessage(result.Stop))
			}
			if err != nil {
				return err
			}
			if !result.WasRunning {
				say(out, quiet, "buildmaster was not running")
			}
			say(out, quiet, startMessage(result.Start))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress messages")
	return cmd
}

func newReconfigCommand(ctx *commandContext) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "reconfig [basedir]",
		Short: "Ask the buildmaster to reload master.toml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			basedir, err := basedirArg(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			pid, err := ctx.controller().Reconfig(cmd.Context(), basedir)
			if errors.Is(err, daemonctl.ErrNotRunning) {
				say(out, quiet, "buildmaster not running")
				return nil
			}
			if err != nil {
				return err
			}
			say(out, quiet, fmt.Sprintf("sent SIGHUP to buildmaster (pid %d); see master.log for the result", pid))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress messages")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [basedir]",
		Short: "Show whether the buildmaster is running and what it has received",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			basedir, err := basedirArg(args)
			if err != nil {
				return err
			}
			status, err := ctx.controller().Status(basedir)
			if err != nil {
				return err
			}

			p := newStatusPrinter(cmd.OutOrStdout())
			p.heading("Buildmaster")
			p.item(sevInfo, "Basedir", basedir)
			switch {
			case status.Running:
				p.item(sevOK, "Master", fmt.Sprintf("running (pid %d)", status.PID))
			case status.PID > 0:
				p.item(sevWarn, "Master", fmt.Sprintf("not running (stale pid %d)", status.PID))
			default:
				p.item(sevWarn, "Master", "not running")
			}
			p.plain("")

			p.heading("Jobs")
			store, err := openLedger(basedir)
			if err != nil {
				p.item(sevError, "Ledger", err.Error())
				return nil
			}
			if store == nil {
				p.plain("No jobs recorded")
				return nil
			}
			defer store.Close()
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			for _, st := range queue.AllStatuses {
				sev := sevOK
				if st == queue.StatusRejected && stats[st] > 0 {
					sev = sevWarn
				}
				p.item(sev, statusLabel(string(st)), fmt.Sprintf("%d", stats[st]))
			}
			return nil
		},
	}
}

func startMessage(result daemonctl.StartResult) string {
	if result.State == daemonctl.StartStateAlreadyRunning {
		return fmt.Sprintf("buildmaster already running (pid %d)", result.PID)
	}
	return fmt.Sprintf("buildmaster started (pid %d)", result.PID)
}

func stopMessage(result daemonctl.StopResult) string {
	sig := "SIG" + daemonctl.SignalName(result.Signal)
	switch result.Outcome {
	case daemonctl.StopStopped:
		return fmt.Sprintf("buildmaster stopped (pid %d)", result.PID)
	case daemonctl.StopTimedOut:
		return fmt.Sprintf("buildmaster (pid %d) still running after %d checks; it may need longer to shut down", result.PID, result.Probes)
	default:
		return fmt.Sprintf("sent %s to buildmaster (pid %d)", sig, result.PID)
	}
}

func say(out io.Writer, quiet bool, msg string) {
	if quiet {
		return
	}
	fmt.Fprintln(out, msg)
}
