package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trybuild/internal/config"
	"trybuild/internal/spool"
)

// ErrUnsupportedConnect reports a connect mode this client cannot use.
var ErrUnsupportedConnect = errors.New("unsupported connect mode")

// Submitter delivers one encoded job.
type Submitter interface {
	Submit(ctx context.Context, payload []byte) error
}

// Settings are the try command's transport options.
type Settings struct {
	Connect  string
	Host     string
	Username string
	JobDir   string
	Binary   string
}

// ForConnect builds the transport named by settings.Connect. An empty mode
// means local.
func ForConnect(settings Settings, opts ...Option) (Submitter, error) {
	switch mode := strings.ToLower(strings.TrimSpace(settings.Connect)); mode {
	case "", "local":
		if strings.TrimSpace(settings.JobDir) == "" {
			return nil, errors.New("local connect requires --jobdir")
		}
		return &Local{JobDir: settings.JobDir}, nil
	case "ssh":
		return NewSSH(settings, opts...)
	case "pb":
		return nil, fmt.Errorf("%w: %q needs a network listener on the master; use ssh or local", ErrUnsupportedConnect, mode)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedConnect, settings.Connect)
	}
}

// Local delivers into a spool on this machine.
type Local struct {
	JobDir string
}

// Submit writes payload into the spool at JobDir.
func (l *Local) Submit(_ context.Context, payload []byte) error {
	root, err := config.ExpandPath(l.JobDir)
	if err != nil {
		return fmt.Errorf("jobdir: %w", err)
	}
	sp, err := spool.Open(root)
	if err != nil {
		return err
	}
	if _, err := sp.Deliver(payload); err != nil {
		return err
	}
	return nil
}
