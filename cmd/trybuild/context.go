package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"trybuild/internal/daemonctl"
	"trybuild/internal/logging"
	"trybuild/internal/options"
)

type commandContext struct {
	logLevel *string
	stderr   io.Writer

	loggerOnce sync.Once
	logger     *slog.Logger

	optionsOnce sync.Once
	resolution  *options.Resolution
	optionsErr  error
}

func newCommandContext(logLevel *string) *commandContext {
	return &commandContext{logLevel: logLevel}
}

// clientLogger writes warnings and diagnostics to the command's stderr.
func (c *commandContext) clientLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		level := "warn"
		if c.logLevel != nil && strings.TrimSpace(*c.logLevel) != "" {
			level = *c.logLevel
		}
		out := c.stderr
		if out == nil {
			out = os.Stderr
		}
		logger, err := logging.New(logging.Options{Level: level, Format: "console", Writer: out})
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// ensureOptions resolves the options file once per invocation, searching from
// the working directory.
func (c *commandContext) ensureOptions() (*options.Resolution, error) {
	c.optionsOnce.Do(func() {
		cwd, err := os.Getwd()
		if err != nil {
			c.optionsErr = fmt.Errorf("resolve working directory: %w", err)
			return
		}
		home, err := options.DefaultHome()
		if err != nil {
			c.clientLogger().Warn("no per-user options directory", logging.Error(err))
			home = ""
		}
		res, err := options.NewResolver(nil, home, c.clientLogger()).Resolve(cwd)
		if err != nil {
			c.optionsErr = err
			return
		}
		c.resolution = res
	})
	return c.resolution, c.optionsErr
}

func (c *commandContext) controller() *daemonctl.Controller {
	return daemonctl.New(daemonctl.WithLogger(c.clientLogger()))
}

func (c *commandContext) launcher() (*daemonctl.Launcher, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	return &daemonctl.Launcher{Executable: exe, Controller: c.controller()}, nil
}

// basedirArg returns the absolute basedir named by args, or the working
// directory.
func basedirArg(args []string) (string, error) {
	dir := "."
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve basedir %q: %w", dir, err)
	}
	return abs, nil
}
