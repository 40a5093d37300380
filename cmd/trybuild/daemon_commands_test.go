package main

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"trybuild/internal/daemonctl"
	"trybuild/internal/jobfile"
	"trybuild/internal/queue"
	"trybuild/internal/testsupport"
)

// exitedPID returns the pid of a process that has already been reaped.
func exitedPID(t *testing.T) int {
	t.Helper()
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run true: %v", err)
	}
	return cmd.Process.Pid
}

func seedLedger(t *testing.T, basedir string) {
	t.Helper()
	store, err := queue.Open(filepath.Join(basedir, "state.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	req := &jobfile.Request{BuildSetID: "1-a", Who: "alice", Builders: []string{"linux", "macos"}}
	if _, _, err := store.Record(ctx, "100-aaaa", jobfile.Version3, req); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, _, err := store.Reject(ctx, "101-bbbb", "malformed job file: bad frame"); err != nil {
		t.Fatalf("reject: %v", err)
	}
}

func TestLifecycleCommandsRefuseInvalidBasedir(t *testing.T) {
	isolate(t)
	empty := t.TempDir()
	for _, name := range []string{"start", "stop", "restart", "reconfig", "status", "jobs"} {
		t.Run(name, func(t *testing.T) {
			_, _, err := runCLI(t, "", name, empty)
			if !errors.Is(err, daemonctl.ErrInvalidBasedir) {
				t.Fatalf("%s: expected ErrInvalidBasedir, got %v", name, err)
			}
		})
	}
}

func TestStopAndReconfigWhenNotRunning(t *testing.T) {
	isolate(t)
	base := testsupport.NewBasedir(t)

	out, _, err := runCLI(t, "", "stop", base)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "buildmaster not running")

	out, _, err = runCLI(t, "", "reconfig", base)
	if err != nil {
		t.Fatalf("reconfig: %v", err)
	}
	requireContains(t, out, "buildmaster not running")

	out, _, err = runCLI(t, "", "stop", "-q", base)
	if err != nil || out != "" {
		t.Fatalf("quiet stop: out=%q err=%v", out, err)
	}
}

func TestStopDefaultsToWorkingDirectory(t *testing.T) {
	isolate(t)
	base := testsupport.NewBasedir(t)
	t.Chdir(base)

	out, _, err := runCLI(t, "", "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "buildmaster not running")
}

func TestStopRejectsUnknownSignal(t *testing.T) {
	isolate(t)
	base := testsupport.NewBasedir(t)
	if _, _, err := runCLI(t, "", "stop", "--signal", "NOPE", base); err == nil {
		t.Fatal("expected error for unknown signal")
	}
}

func TestStopWaitsForProcessToExit(t *testing.T) {
	isolate(t)
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	proc := exec.Command("sleep", "30")
	if err := proc.Start(); err != nil {
		t.Fatalf("start sleep: %v", err)
	}
	reaped := make(chan struct{})
	go func() {
		_ = proc.Wait()
		close(reaped)
	}()
	t.Cleanup(func() {
		_ = proc.Process.Kill()
		<-reaped
	})

	base := testsupport.NewBasedir(t, testsupport.WithPID(proc.Process.Pid))
	out, _, err := runCLI(t, "", "stop", base)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "buildmaster stopped")

	select {
	case <-reaped:
	case <-time.After(5 * time.Second):
		t.Fatal("process still running after stop")
	}
}

func TestStopNoWaitOnlySignals(t *testing.T) {
	isolate(t)
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	proc := exec.Command("sleep", "30")
	if err := proc.Start(); err != nil {
		t.Fatalf("start sleep: %v", err)
	}
	t.Cleanup(func() {
		_ = proc.Process.Kill()
		_ = proc.Wait()
	})

	base := testsupport.NewBasedir(t, testsupport.WithPID(proc.Process.Pid))
	out, _, err := runCLI(t, "", "stop", "--no-wait", "--signal", "INT", base)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "sent SIGINT to buildmaster")
}

func TestStatusReportsStalePIDAndJobCounts(t *testing.T) {
	isolate(t)
	base := testsupport.NewBasedir(t, testsupport.WithPID(exitedPID(t)))
	seedLedger(t, base)

	out, _, err := runCLI(t, "", "status", base)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Buildmaster\n===========\n")
	requireContains(t, out, "not running (stale pid")
	requireContains(t, out, "Received:")
	requireContains(t, out, "[OK] 1")
	requireContains(t, out, "[WARN] 1")
}

func TestStatusWithoutLedger(t *testing.T) {
	isolate(t)
	base := testsupport.NewBasedir(t)

	out, _, err := runCLI(t, "", "status", base)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[WARN] not running")
	requireContains(t, out, "No jobs recorded")
}
