//go:build !unix

package daemonctl

import (
	"errors"
	"syscall"
)

func defaultKill(int, syscall.Signal) error { return errors.ErrUnsupported }

func lookupSignal(name string) syscall.Signal {
	switch name {
	case "SIGTERM":
		return syscall.SIGTERM
	case "SIGKILL":
		return syscall.SIGKILL
	case "SIGHUP":
		return syscall.SIGHUP
	case "SIGINT":
		return syscall.SIGINT
	}
	return 0
}

func signalName(syscall.Signal) string { return "" }
