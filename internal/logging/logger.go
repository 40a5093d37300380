package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// OutputPaths lists "stdout", "stderr" or file paths. Files are opened
	// for append and their directories created.
	OutputPaths []string
	// Writer replaces OutputPaths when set.
	Writer io.Writer
	// LevelVar, when set, lets the caller change the level after construction.
	LevelVar    *slog.LevelVar
	Development bool
}

// New constructs a slog logger using the provided options. Files named in
// OutputPaths stay open for the life of the process; use Open to close them.
func New(opts Options) (*slog.Logger, error) {
	logger, _, err := Open(opts)
	return logger, err
}

// Open is New plus a closer for the log files it opened. The closer is never
// nil.
func Open(opts Options) (*slog.Logger, io.Closer, error) {
	level := ParseLevel(opts.Level)
	levelVar := opts.LevelVar
	if levelVar == nil {
		levelVar = new(slog.LevelVar)
	}
	levelVar.Set(level)

	out := opts.Writer
	var files fileSet
	if out == nil {
		var err error
		out, files, err = openWriters(opts.OutputPaths)
		if err != nil {
			return nil, nil, err
		}
	}

	addSource := opts.Development || level <= slog.LevelDebug

	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		return slog.New(newConsoleHandler(out, levelVar, addSource)), files, nil
	case "json":
		return slog.New(newJSONHandler(out, levelVar, addSource)), files, nil
	default:
		_ = files.Close()
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// fileSet closes the log files a logger writes to.
type fileSet []*os.File

func (fs fileSet) Close() error {
	var errs []error
	for _, f := range fs {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether name is a level ParseLevel recognises.
func ValidLevel(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func openWriters(paths []string) (io.Writer, fileSet, error) {
	seen := map[string]struct{}{}
	var writers []io.Writer
	var files fileSet
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}

		switch path {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if dir := filepath.Dir(path); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					_ = files.Close()
					return nil, nil, fmt.Errorf("ensure log directory %s: %w", dir, err)
				}
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				_ = files.Close()
				return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
			}
			writers = append(writers, file)
			files = append(files, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stdout, files, nil
	case 1:
		return writers[0], files, nil
	default:
		return io.MultiWriter(writers...), files, nil
	}
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}
