package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes size bytes of a repeating pattern to path, creating parent
// directories. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) []byte {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := bytes.Repeat([]byte("trybuild"), int(size)/8+1)[:size]
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return data
}

// NewSpool returns a temp spool root with its tmp and new directories.
func NewSpool(t testing.TB) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "jobdir")
	for _, dir := range []string{"tmp", "new"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("create spool dir %s: %v", dir, err)
		}
	}
	return root
}
