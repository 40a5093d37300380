package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.Application = strings.TrimSpace(c.Application)
	if err := c.normalizeSpool(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeSpool() error {
	dir := strings.TrimSpace(c.Spool.JobDir)
	if dir == "" {
		dir = defaultJobDir
	}
	if !strings.HasPrefix(dir, "~") && !filepath.IsAbs(dir) {
		dir = filepath.Join(c.Basedir, dir)
	}
	expanded, err := ExpandPath(dir)
	if err != nil {
		return fmt.Errorf("spool.jobdir: %w", err)
	}
	c.Spool.JobDir = expanded
	if c.Spool.PollInterval == 0 {
		c.Spool.PollInterval = defaultPollInterval
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
