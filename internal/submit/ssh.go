package submit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Runner executes a command with stdin attached.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader) error
}

// Option configures an SSH transport.
type Option func(*SSH)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(runner Runner) Option {
	return func(s *SSH) {
		if runner != nil {
			s.runner = runner
		}
	}
}

const defaultBinary = "trybuild"

// SSH pipes jobs to "<Binary> tryserver --jobdir <JobDir>" on Host.
type SSH struct {
	Host     string
	Username string
	JobDir   string
	Binary   string

	runner Runner
}

// NewSSH validates settings and builds the transport.
func NewSSH(settings Settings, opts ...Option) (*SSH, error) {
	if strings.TrimSpace(settings.Host) == "" {
		return nil, errors.New("ssh connect requires --host")
	}
	if strings.TrimSpace(settings.JobDir) == "" {
		return nil, errors.New("ssh connect requires --jobdir")
	}
	s := &SSH{
		Host:     settings.Host,
		Username: settings.Username,
		JobDir:   settings.JobDir,
		Binary:   settings.Binary,
		runner:   commandRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Command returns the ssh invocation for this transport.
func (s *SSH) Command() (string, []string, error) {
	binary := strings.TrimSpace(s.Binary)
	if binary == "" {
		binary = defaultBinary
	}
	remote, err := shellwords.Parse(binary)
	if err != nil {
		return "", nil, fmt.Errorf("parse buildbotbin %q: %w", s.Binary, err)
	}
	remote = append(remote, "tryserver", "--jobdir", s.JobDir)

	quoted := make([]string, len(remote))
	for i, arg := range remote {
		quoted[i] = shellQuote(arg)
	}

	var args []string
	if user := strings.TrimSpace(s.Username); user != "" {
		args = append(args, "-l", user)
	}
	args = append(args, s.Host, strings.Join(quoted, " "))
	return "ssh", args, nil
}

// Submit runs the ssh command with payload on stdin.
func (s *SSH) Submit(ctx context.Context, payload []byte) error {
	name, args, err := s.Command()
	if err != nil {
		return err
	}
	if err := s.runner.Run(ctx, name, args, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("deliver via ssh to %s: %w", s.Host, err)
	}
	return nil
}

// shellQuote quotes arg for a POSIX shell on the remote side.
func shellQuote(arg string) string {
	if arg != "" && strings.IndexFunc(arg, unsafeShellRune) < 0 {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func unsafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./=:,+@%", r):
		return false
	}
	return true
}

type commandRunner struct{}

func (commandRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
