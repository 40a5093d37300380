package testsupport

import (
	"path/filepath"
	"testing"

	"trybuild/internal/queue"
)

// MustOpenStore opens a fresh ledger in a temp directory and registers cleanup.
func MustOpenStore(t testing.TB) *queue.Store {
	t.Helper()

	store, err := queue.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
