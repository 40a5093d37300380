package options

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"trybuild/internal/logging"
)

const (
	// DirName is the reserved directory searched at each level.
	DirName = ".trybuild"
	// FileName is the options file inside DirName.
	FileName = "options"
	// maxSearchDepth bounds the upward walk.
	maxSearchDepth = 20
)

// ErrSearchDepth reports an upward walk that never reached the root.
var ErrSearchDepth = errors.New("options search exceeded maximum directory depth")

// ParseError reports an options file that could not be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error while reading %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FS is the filesystem view the resolver needs.
type FS interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	// OwnedByCurrentUser reports whether info belongs to the invoking user.
	// Platforms without ownership semantics return true.
	OwnedByCurrentUser(info fs.FileInfo) bool
}

// OSFileSystem is the FS backed by the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

func (OSFileSystem) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (OSFileSystem) OwnedByCurrentUser(info fs.FileInfo) bool { return ownedByCurrentUser(info) }

// Resolution describes one options search.
type Resolution struct {
	Values   Values
	Searched []string
	Skipped  []string
	File     string
}

// Resolver searches for the options file.
type Resolver struct {
	fs     FS
	home   string
	logger *slog.Logger
}

// NewResolver builds a resolver that falls back to home after the upward
// walk. A nil fsys uses the real filesystem.
func NewResolver(fsys FS, home string, logger *slog.Logger) *Resolver {
	if fsys == nil {
		fsys = OSFileSystem{}
	}
	return &Resolver{
		fs:     fsys,
		home:   home,
		logger: logging.NewComponentLogger(logger, "options"),
	}
}

// DefaultHome returns the per-user fallback directory.
func DefaultHome() (string, error) {
	if runtime.GOOS == "windows" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve user config directory: %w", err)
		}
		return filepath.Join(dir, "trybuild"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// SearchPath lists candidate directories for start, nearest first, with
// home last.
func SearchPath(start, home string) ([]string, error) {
	here := filepath.Clean(start)
	var path []string
	for steps := 0; ; steps++ {
		if steps >= maxSearchDepth {
			return nil, fmt.Errorf("%w: started at %s", ErrSearchDepth, start)
		}
		path = append(path, filepath.Join(here, DirName))
		next := filepath.Dir(here)
		if next == here {
			break
		}
		here = next
	}
	if home != "" {
		path = append(path, home)
	}
	return path, nil
}

// Resolve searches from start and returns the values of the first options
// file found.
func (r *Resolver) Resolve(start string) (*Resolution, error) {
	searchPath, err := SearchPath(start, r.home)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Values: Values{}, Searched: searchPath}
	for _, dir := range searchPath {
		info, err := r.fs.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if !r.fs.OwnedByCurrentUser(info) {
			r.logger.Warn("skipping options directory not owned by current user",
				logging.String("dir", dir))
			res.Skipped = append(res.Skipped, dir)
			continue
		}
		file := filepath.Join(dir, FileName)
		if _, err := r.fs.Stat(file); err != nil {
			continue
		}
		values, err := r.parse(file)
		if err != nil {
			return nil, err
		}
		res.Values = values
		res.File = file
		break
	}
	return res, nil
}

func (r *Resolver) parse(path string) (Values, error) {
	data, err := r.fs.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	values := make(Values, len(raw))
	for key, value := range raw {
		if strings.HasPrefix(key, "__") {
			continue
		}
		if _, nested := value.(map[string]any); nested {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("key %q: tables are not allowed", key)}
		}
		values[key] = value
	}
	return values, nil
}
