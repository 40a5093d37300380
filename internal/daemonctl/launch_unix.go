//go:build unix

package daemonctl

import "syscall"

func detachedAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
