package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"
	"time"

	"trybuild/internal/logging"
)

const (
	settleDelay   = 100 * time.Millisecond
	probeInterval = time.Second
	probeAttempts = 10
)

// StopOutcome is the observed state after a stop request.
type StopOutcome string

const (
	// StopSignaled means the signal was sent and nobody waited.
	StopSignaled StopOutcome = "signaled"
	// StopStopped means the process is gone.
	StopStopped StopOutcome = "stopped"
	// StopTimedOut means every probe still found the process alive.
	StopTimedOut StopOutcome = "timed_out"
)

// StopOptions selects the signal and whether to wait for the exit.
type StopOptions struct {
	Signal syscall.Signal
	Wait   bool
}

// StopResult describes a completed stop request.
type StopResult struct {
	PID     int
	Signal  syscall.Signal
	Outcome StopOutcome
	Probes  int
}

// Starter launches a master for a basedir.
type Starter interface {
	Start(ctx context.Context, basedir string) (StartResult, error)
}

// RestartResult captures the stop and start halves of a restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// Status is the observed state of a basedir's master.
type Status struct {
	PID     int
	Running bool
}

// Controller signals and polls masters.
type Controller struct {
	clock  Clock
	kill   KillFunc
	logger *slog.Logger
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock used between probes.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithKill replaces signal delivery.
func WithKill(kill KillFunc) Option {
	return func(c *Controller) { c.kill = kill }
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// New builds a Controller backed by the real clock and kill(2).
func New(opts ...Option) *Controller {
	c := &Controller{clock: realClock{}, kill: defaultKill}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "daemonctl")
	return c
}

// Stop signals the master in basedir and optionally waits for it to exit.
func (c *Controller) Stop(ctx context.Context, basedir string, opts StopOptions) (StopResult, error) {
	if err := ValidateBasedir(basedir); err != nil {
		return StopResult{}, err
	}
	pid, err := ReadPID(basedir)
	if err != nil {
		return StopResult{}, err
	}
	sig := opts.Signal
	if sig == 0 {
		sig = syscall.SIGTERM
	}

	result := StopResult{PID: pid, Signal: sig, Outcome: StopSignaled}
	if err := c.kill(pid, sig); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			return result, fmt.Errorf("send SIG%s to %d: %w", SignalName(sig), pid, err)
		}
		c.logger.Info("master already gone",
			logging.Int("pid", pid),
			logging.String(logging.FieldBasedir, basedir))
		result.Outcome = StopStopped
		return result, nil
	}
	c.logger.Info("signal sent",
		logging.Int("pid", pid),
		logging.String("signal", SignalName(sig)),
		logging.String(logging.FieldBasedir, basedir))
	if !opts.Wait {
		return result, nil
	}

	if err := sleep(ctx, c.clock, settleDelay); err != nil {
		return result, err
	}
	for result.Probes < probeAttempts {
		result.Probes++
		alive, err := c.Alive(pid)
		if err != nil {
			return result, err
		}
		if !alive {
			result.Outcome = StopStopped
			return result, nil
		}
		if err := sleep(ctx, c.clock, probeInterval); err != nil {
			return result, err
		}
	}
	c.logger.Warn("master still running after stop",
		logging.Int("pid", pid),
		logging.Int("probes", result.Probes),
		logging.Event("stop_timed_out"))
	result.Outcome = StopTimedOut
	return result, nil
}

// Restart stops the master if it is running and starts it again. A master
// that does not exit within the stop wait is left alone and ErrStillRunning
// is returned.
func (c *Controller) Restart(ctx context.Context, basedir string, starter Starter) (RestartResult, error) {
	if err := ValidateBasedir(basedir); err != nil {
		return RestartResult{}, err
	}
	stop, err := c.Stop(ctx, basedir, StopOptions{Signal: syscall.SIGTERM, Wait: true})
	if err != nil && !errors.Is(err, ErrNotRunning) {
		return RestartResult{}, err
	}
	result := RestartResult{WasRunning: err == nil, Stop: stop}
	if stop.Outcome == StopTimedOut {
		return result, fmt.Errorf("%w: pid %d after %d checks; not starting a second master", ErrStillRunning, stop.PID, stop.Probes)
	}

	start, err := starter.Start(ctx, basedir)
	if err != nil {
		return result, err
	}
	result.Start = start
	return result, nil
}

// Reconfig asks the master to reload master.toml. It does not wait.
func (c *Controller) Reconfig(_ context.Context, basedir string) (int, error) {
	if err := ValidateBasedir(basedir); err != nil {
		return 0, err
	}
	pid, err := ReadPID(basedir)
	if err != nil {
		return 0, err
	}
	if err := c.kill(pid, syscall.SIGHUP); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return pid, fmt.Errorf("%w: stale pid %d", ErrNotRunning, pid)
		}
		return pid, fmt.Errorf("send SIGHUP to %d: %w", pid, err)
	}
	c.logger.Info("reconfig requested", logging.Int("pid", pid))
	return pid, nil
}

// Status reports the recorded pid and whether that process is alive.
func (c *Controller) Status(basedir string) (Status, error) {
	if err := ValidateBasedir(basedir); err != nil {
		return Status{}, err
	}
	pid, err := ReadPID(basedir)
	if errors.Is(err, ErrNotRunning) {
		return Status{}, nil
	}
	alive, err := c.Alive(pid)
	if err != nil {
		return Status{PID: pid}, err
	}
	return Status{PID: pid, Running: alive}, nil
}

// Alive probes pid with signal 0. A process owned by another user counts as
// alive.
func (c *Controller) Alive(pid int) (bool, error) {
	err := c.kill(pid, 0)
	switch {
	case err == nil, errors.Is(err, syscall.EPERM):
		return true, nil
	case errors.Is(err, syscall.ESRCH):
		return false, nil
	default:
		return false, fmt.Errorf("probe pid %d: %w", pid, err)
	}
}
