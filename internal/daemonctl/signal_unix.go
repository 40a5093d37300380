//go:build unix

package daemonctl

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func defaultKill(pid int, sig syscall.Signal) error { return unix.Kill(pid, sig) }

func lookupSignal(name string) syscall.Signal { return unix.SignalNum(name) }

func signalName(sig syscall.Signal) string { return unix.SignalName(sig) }
