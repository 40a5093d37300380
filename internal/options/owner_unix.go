//go:build unix

package options

import (
	"io/fs"
	"syscall"

	"golang.org/x/sys/unix"
)

func ownedByCurrentUser(info fs.FileInfo) bool {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return true
	}
	return int(stat.Uid) == unix.Getuid()
}
