package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Spool configures the job directory the master consumes.
type Spool struct {
	JobDir       string `toml:"jobdir"`
	PollInterval int    `toml:"poll_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the parsed master.toml of one installation.
type Config struct {
	Application string  `toml:"application"`
	Spool       Spool   `toml:"spool"`
	Logging     Logging `toml:"logging"`

	// Basedir is the absolute installation directory the file was read from.
	Basedir string `toml:"-"`
}

// Load reads, normalizes and validates <basedir>/master.toml.
func Load(basedir string) (*Config, error) {
	base, err := ExpandPath(basedir)
	if err != nil {
		return nil, fmt.Errorf("basedir: %w", err)
	}

	path := filepath.Join(base, FileName)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg := Default()
	decoder := toml.NewDecoder(file).DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Basedir = base

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigPath returns the path of master.toml.
func (c *Config) ConfigPath() string { return filepath.Join(c.Basedir, FileName) }

// PIDPath returns the path of the master's pid file.
func (c *Config) PIDPath() string { return filepath.Join(c.Basedir, PIDFile) }

// LockPath returns the path of the single-instance lock.
func (c *Config) LockPath() string { return filepath.Join(c.Basedir, LockFile) }

// StatePath returns the path of the job ledger database.
func (c *Config) StatePath() string { return filepath.Join(c.Basedir, StateFile) }

// LogPath returns the path of the master's log file.
func (c *Config) LogPath() string { return filepath.Join(c.Basedir, LogFile) }

// PollInterval returns the spool sweep period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Spool.PollInterval) * time.Second
}

// ExpandPath expands a leading ~ and returns a clean absolute path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if pathValue[1] == '/' || pathValue[1] == '\\' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
