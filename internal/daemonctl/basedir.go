package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"trybuild/internal/config"
)

var (
	// ErrInvalidBasedir reports a directory that is not a master installation.
	ErrInvalidBasedir = errors.New("not a buildmaster directory")
	// ErrNotRunning reports a missing or unreadable pid file.
	ErrNotRunning = errors.New("buildmaster not running")
	// ErrStillRunning reports a master that outlived the stop wait.
	ErrStillRunning = errors.New("buildmaster still running after stop")
)

// installationMarker must appear in master.toml.
const installationMarker = `application = "` + config.Application + `"`

// ValidateBasedir checks for master.toml and its installation marker.
func ValidateBasedir(basedir string) error {
	path := filepath.Join(basedir, config.FileName)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: no %s", ErrInvalidBasedir, basedir, config.FileName)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrInvalidBasedir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrInvalidBasedir, path, err)
	}
	if !strings.Contains(string(data), installationMarker) {
		return fmt.Errorf("%w: %s lacks %s", ErrInvalidBasedir, path, installationMarker)
	}
	return nil
}

// ReadPID returns the pid recorded in basedir's pid file.
func ReadPID(basedir string) (int, error) {
	path := filepath.Join(basedir, config.PIDFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: read pid file %q: %v", ErrNotRunning, path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: pid file %q holds %q", ErrNotRunning, path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}
