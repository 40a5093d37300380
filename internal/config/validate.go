package config

import (
	"fmt"

	"trybuild/internal/logging"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Application != Application {
		return fmt.Errorf("application = %q, want %q", c.Application, Application)
	}
	if c.Spool.PollInterval < 1 {
		return fmt.Errorf("spool.poll_interval must be at least 1 second, got %d", c.Spool.PollInterval)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
