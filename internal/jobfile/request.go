package jobfile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoBuilders reports a request addressed to no builder.
	ErrNoBuilders = errors.New("at least one builder is required")
	// ErrPatchLevel reports a patch level that is not a non-negative integer.
	ErrPatchLevel = errors.New("patch level must be a non-negative integer")
	// ErrMalformed reports a job file that cannot be decoded.
	ErrMalformed = errors.New("malformed job file")
	// ErrNotUTF8 reports text that a version 5 (JSON) job file cannot carry
	// without altering it.
	ErrNotUTF8 = errors.New("version 5 job fields must be valid UTF-8")
)

// Request is a single build-trial submission.
//
// Optional string fields use the empty string for "absent".
type Request struct {
	BuildSetID   string
	Branch       string
	BaseRevision string
	PatchLevel   int
	Diff         string
	Repository   string
	Project      string
	Who          string
	Comment      string
	Builders     []string
	Properties   map[string]string
}

// Validate checks the caller-side preconditions for encoding.
func (r *Request) Validate() error {
	if r == nil {
		return errors.New("request is nil")
	}
	if len(r.Builders) == 0 {
		return ErrNoBuilders
	}
	if r.PatchLevel < 0 {
		return fmt.Errorf("%w: got %d", ErrPatchLevel, r.PatchLevel)
	}
	return nil
}

// ParsePatchLevel converts command-line input into a patch level.
func ParsePatchLevel(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	level, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrPatchLevel, value)
	}
	if level < 0 {
		return 0, fmt.Errorf("%w: %q", ErrPatchLevel, value)
	}
	return level, nil
}

// ParseProperties parses repeated "name=value,name2=value2" items into a map.
// Later items override earlier ones. Values may contain '=' but not ','.
func ParseProperties(items []string) (map[string]string, error) {
	props := make(map[string]string)
	for _, item := range items {
		for _, pair := range strings.Split(item, ",") {
			if strings.TrimSpace(pair) == "" {
				continue
			}
			name, value, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("invalid property %q: expected name=value", pair)
			}
			props[name] = value
		}
	}
	return props, nil
}

// NewBuildSetID returns a fresh build set identifier of the form
// "<unix seconds>-<uuid>".
func NewBuildSetID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString())
}
