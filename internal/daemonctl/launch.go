package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"trybuild/internal/logging"
)

// StartState is the result of a start request.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures the started master.
type StartResult struct {
	State StartState
	PID   int
}

// SpawnFunc starts exe detached in dir. The returned channel yields the
// process's exit error if it ends.
type SpawnFunc func(exe string, args []string, dir string) (<-chan error, error)

const (
	defaultStartTimeout = 10 * time.Second
	startPollInterval   = 200 * time.Millisecond
)

// Launcher starts "<Executable> master <basedir>" and waits for the pid file.
type Launcher struct {
	Executable string
	Controller *Controller
	Timeout    time.Duration
	Spawn      SpawnFunc
}

// Start launches the master unless one is already alive.
func (l *Launcher) Start(ctx context.Context, basedir string) (StartResult, error) {
	if strings.TrimSpace(l.Executable) == "" {
		return StartResult{}, errors.New("resolve executable: executable path is empty")
	}
	if err := ValidateBasedir(basedir); err != nil {
		return StartResult{}, err
	}
	ctl := l.Controller
	if ctl == nil {
		ctl = New()
	}
	status, err := ctl.Status(basedir)
	if err != nil {
		return StartResult{}, err
	}
	if status.Running {
		return StartResult{State: StartStateAlreadyRunning, PID: status.PID}, nil
	}

	spawn := l.Spawn
	if spawn == nil {
		spawn = spawnDetached
	}
	exited, err := spawn(l.Executable, []string{"master", basedir}, basedir)
	if err != nil {
		return StartResult{}, fmt.Errorf("launch master: %w", err)
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = defaultStartTimeout
	}
	for waited := time.Duration(0); waited < timeout; waited += startPollInterval {
		select {
		case <-ctx.Done():
			return StartResult{}, ctx.Err()
		case err := <-exited:
			return StartResult{}, fmt.Errorf("master exited during startup (see %s): %v", basedir, err)
		case <-ctl.clock.After(startPollInterval):
		}
		if pid, err := ReadPID(basedir); err == nil {
			if alive, _ := ctl.Alive(pid); alive {
				ctl.logger.Info("master started",
					logging.Int("pid", pid),
					logging.String(logging.FieldBasedir, basedir))
				return StartResult{State: StartStateStarted, PID: pid}, nil
			}
		}
	}
	return StartResult{}, fmt.Errorf("master did not write its pid file within %s", timeout)
}

func spawnDetached(exe string, args []string, dir string) (<-chan error, error) {
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	defer devnull.Close()

	cmd := exec.Command(exe, args...)
	cmd.Dir = dir
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = detachedAttrs()
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()
	return exited, nil
}
