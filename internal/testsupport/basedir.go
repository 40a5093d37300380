package testsupport

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// MinimalMasterConfig is the smallest valid master.toml.
const MinimalMasterConfig = "application = \"buildmaster\"\n"

// BasedirOption customises a fake installation.
type BasedirOption func(*basedirBuilder)

type basedirBuilder struct {
	config  string
	pid     string
	withPID bool
	spool   bool
}

// WithMasterConfig replaces the master.toml contents.
func WithMasterConfig(body string) BasedirOption {
	return func(b *basedirBuilder) { b.config = body }
}

// WithPID records pid in master.pid.
func WithPID(pid int) BasedirOption {
	return func(b *basedirBuilder) {
		b.pid = strconv.Itoa(pid) + "\n"
		b.withPID = true
	}
}

// WithPIDFile writes raw contents to master.pid.
func WithPIDFile(contents string) BasedirOption {
	return func(b *basedirBuilder) {
		b.pid = contents
		b.withPID = true
	}
}

// WithSpool creates jobdir/tmp and jobdir/new inside the basedir.
func WithSpool() BasedirOption {
	return func(b *basedirBuilder) { b.spool = true }
}

// NewBasedir creates a fake master installation in a temp directory.
func NewBasedir(t testing.TB, opts ...BasedirOption) string {
	t.Helper()

	b := &basedirBuilder{config: MinimalMasterConfig}
	for _, opt := range opts {
		opt(b)
	}

	base := t.TempDir()
	if err := os.WriteFile(filepath.Join(base, "master.toml"), []byte(b.config), 0o644); err != nil {
		t.Fatalf("write master.toml: %v", err)
	}
	if b.withPID {
		if err := os.WriteFile(filepath.Join(base, "master.pid"), []byte(b.pid), 0o644); err != nil {
			t.Fatalf("write master.pid: %v", err)
		}
	}
	if b.spool {
		for _, dir := range []string{"tmp", "new"} {
			if err := os.MkdirAll(filepath.Join(base, "jobdir", dir), 0o755); err != nil {
				t.Fatalf("create spool dir: %v", err)
			}
		}
	}
	return base
}
