package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrUnsupported reports a VC name with no extractor.
	ErrUnsupported = errors.New("unsupported version control system")
	// ErrTopdirRequired reports a VC that cannot locate the tree top itself.
	ErrTopdirRequired = errors.New("--topdir or --topfile is required")
)

// RunFunc runs name in dir and returns its standard output.
type RunFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// Options selects the VC system and any values the caller already knows.
type Options struct {
	VC           string
	Branch       string
	BaseRevision string
	Topdir       string
	Topfile      string
	// Start is where topfile and tree-top searches begin.
	Start string
}

// SourceStamp is what a working copy contributes to a try job.
type SourceStamp struct {
	Topdir       string
	Branch       string
	BaseRevision string
	PatchLevel   int
	Diff         string
}

type extractor interface {
	// needsTopdir reports whether the tree top must come from the caller.
	needsTopdir() bool
	topdir(ctx context.Context, run RunFunc, start string) (string, error)
	extract(ctx context.Context, run RunFunc, opts Options, stamp *SourceStamp) error
}

var extractors = map[string]extractor{
	"git": gitExtractor{},
	"hg":  hgExtractor{},
	"svn": svnExtractor{},
}

// Supported lists the VC names Extract accepts.
func Supported() []string {
	names := make([]string, 0, len(extractors))
	for name := range extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate reports whether vc names a supported system.
func Validate(vc string) error {
	if _, ok := extractors[strings.ToLower(strings.TrimSpace(vc))]; !ok {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupported, vc, strings.Join(Supported(), ", "))
	}
	return nil
}

// Extractor reads source stamps through a command runner.
type Extractor struct {
	run RunFunc
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRunner replaces command execution, for tests.
func WithRunner(run RunFunc) Option {
	return func(e *Extractor) {
		if run != nil {
			e.run = run
		}
	}
}

// New returns an Extractor that runs the real VC commands.
func New(opts ...Option) *Extractor {
	e := &Extractor{run: runCommand}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract locates the tree top and reads the branch, base revision and diff.
// Values set in opts are kept as given.
func (e *Extractor) Extract(ctx context.Context, opts Options) (*SourceStamp, error) {
	if err := Validate(opts.VC); err != nil {
		return nil, err
	}
	name := strings.ToLower(strings.TrimSpace(opts.VC))
	ex := extractors[name]

	start := opts.Start
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		start = wd
	}

	var topdir string
	switch {
	case strings.TrimSpace(opts.Topdir) != "":
		abs, err := filepath.Abs(opts.Topdir)
		if err != nil {
			return nil, fmt.Errorf("resolve topdir: %w", err)
		}
		topdir = abs
	case strings.TrimSpace(opts.Topfile) != "":
		found, err := FindTopdir(start, opts.Topfile)
		if err != nil {
			return nil, err
		}
		topdir = found
	case ex.needsTopdir():
		return nil, fmt.Errorf("%w for %s", ErrTopdirRequired, name)
	default:
		found, err := ex.topdir(ctx, e.run, start)
		if err != nil {
			return nil, err
		}
		topdir = found
	}

	stamp := &SourceStamp{
		Topdir:       topdir,
		Branch:       strings.TrimSpace(opts.Branch),
		BaseRevision: strings.TrimSpace(opts.BaseRevision),
	}
	if err := ex.extract(ctx, e.run, opts, stamp); err != nil {
		return nil, err
	}
	return stamp, nil
}

// FindTopdir walks up from start to the first directory holding topfile.
func FindTopdir(start, topfile string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, topfile)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("topfile %q not found in %s or any parent", topfile, start)
		}
		dir = parent
	}
}

func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func firstLine(out []byte) string {
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line)
}
