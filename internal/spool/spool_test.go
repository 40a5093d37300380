package spool_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"trybuild/internal/spool"
	"trybuild/internal/testsupport"
)

func fixedClock(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}

func TestOpenRequiresStagingAndVisibleDirs(t *testing.T) {
	root := t.TempDir()
	if _, err := spool.Open(root); !errors.Is(err, spool.ErrNotSpool) {
		t.Fatalf("expected ErrNotSpool for bare dir, got %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, spool.StagingDir), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := spool.Open(root); !errors.Is(err, spool.ErrNotSpool) {
		t.Fatalf("expected ErrNotSpool without new/, got %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, spool.VisibleDir), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := spool.Open(root); !errors.Is(err, spool.ErrNotSpool) {
		t.Fatalf("expected ErrNotSpool when new is a file, got %v", err)
	}
}

func TestEntryName(t *testing.T) {
	payload := []byte("2:2,")
	name := spool.EntryName(time.Unix(1700000000, 0), payload)
	want := "1700000000-" + spool.Digest(payload)
	if name != want {
		t.Fatalf("EntryName = %q, want %q", name, want)
	}
	if len(spool.Digest(payload)) != 64 {
		t.Fatalf("expected 64 hex digits, got %q", spool.Digest(payload))
	}
	if spool.Digest([]byte("a")) == spool.Digest([]byte("b")) {
		t.Fatal("distinct payloads share a digest")
	}
}

func TestDeliverPublishesCompleteFile(t *testing.T) {
	root := testsupport.NewSpool(t)
	s, err := spool.Open(root, spool.WithClock(fixedClock(1700000000)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	src := filepath.Join(t.TempDir(), "payload")
	testsupport.WriteFile(t, src, 1<<20+17)
	payload, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}

	entry, err := s.Deliver(payload)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if entry.Name != spool.EntryName(time.Unix(1700000000, 0), payload) {
		t.Fatalf("unexpected entry name %q", entry.Name)
	}
	if entry.Path != filepath.Join(root, spool.VisibleDir, entry.Name) {
		t.Fatalf("unexpected entry path %q", entry.Path)
	}

	got, err := os.ReadFile(entry.Path)
	if err != nil {
		t.Fatalf("read delivered job: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("delivered %d bytes, want %d", len(got), len(payload))
	}

	staged, err := os.ReadDir(filepath.Join(root, spool.StagingDir))
	if err != nil {
		t.Fatal(err)
	}
	if len(staged) != 0 {
		t.Fatalf("expected empty staging dir, found %d entries", len(staged))
	}
}

func TestDeliverSyncsVisibleDirAfterRename(t *testing.T) {
	root := testsupport.NewSpool(t)
	var synced []string
	sp, err := spool.Open(root, spool.WithClock(fixedClock(1700000000)), spool.WithDirSync(func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		if len(entries) != 1 {
			t.Errorf("sync ran before the entry was visible: %d entries in %s", len(entries), dir)
		}
		synced = append(synced, dir)
		return nil
	}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := sp.Deliver([]byte("payload")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	want := filepath.Join(root, spool.VisibleDir)
	if len(synced) != 1 || synced[0] != want {
		t.Fatalf("synced %v, want [%s]", synced, want)
	}
}

func TestDeliverReportsDirSyncFailure(t *testing.T) {
	root := testsupport.NewSpool(t)
	boom := errors.New("disk gone")
	sp, err := spool.Open(root, spool.WithDirSync(func(string) error { return boom }))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := sp.Deliver([]byte("payload")); !errors.Is(err, boom) {
		t.Fatalf("expected sync failure, got %v", err)
	}
}

func TestDeliverSamePayloadIsIdempotent(t *testing.T) {
	root := testsupport.NewSpool(t)
	s, err := spool.Open(root, spool.WithClock(fixedClock(42)))
	if err != nil {
		t.Fatal(err)
	}
	first, err := s.Deliver([]byte("job"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Deliver([]byte("job"))
	if err != nil {
		t.Fatalf("second Deliver: %v", err)
	}
	if first.Name != second.Name {
		t.Fatalf("expected identical names, got %q and %q", first.Name, second.Name)
	}
	pending, err := s.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending entry, got %d", len(pending))
	}
}

func TestDeliverFailureLeavesNothingVisible(t *testing.T) {
	root := testsupport.NewSpool(t)
	s, err := spool.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	// Removing new/ after Open makes the final rename fail.
	if err := os.Remove(filepath.Join(root, spool.VisibleDir)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Deliver([]byte("job")); err == nil {
		t.Fatal("expected publish error")
	}
	staged, err := os.ReadDir(filepath.Join(root, spool.StagingDir))
	if err != nil {
		t.Fatal(err)
	}
	if len(staged) != 0 {
		t.Fatalf("expected staging file to be cleaned up, found %d", len(staged))
	}
}

func TestConcurrentDeliveriesNeverExposePartialFiles(t *testing.T) {
	root := testsupport.NewSpool(t)
	s, err := spool.Open(root)
	if err != nil {
		t.Fatal(err)
	}

	const writers = 8
	payloads := make([][]byte, writers)
	for i := range payloads {
		payloads[i] = bytes.Repeat([]byte{byte('a' + i)}, 64*1024+i)
	}

	done := make(chan struct{})
	var observed sync.WaitGroup
	observed.Add(1)
	bad := make(chan string, 1)
	go func() {
		defer observed.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			entries, err := s.Pending()
			if err != nil {
				continue
			}
			for _, e := range entries {
				data, err := os.ReadFile(e.Path)
				if err != nil {
					continue
				}
				size := len(data)
				if size < 64*1024 || size >= 64*1024+writers {
					select {
					case bad <- e.Name:
					default:
					}
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for _, payload := range payloads {
		wg.Add(1)
		go func(p []byte) {
			defer wg.Done()
			if _, err := s.Deliver(p); err != nil {
				t.Errorf("Deliver: %v", err)
			}
		}(payload)
	}
	wg.Wait()
	close(done)
	observed.Wait()

	select {
	case name := <-bad:
		t.Fatalf("observed partial file %s", name)
	default:
	}

	entries, err := s.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != writers {
		t.Fatalf("expected %d entries, got %d", writers, len(entries))
	}
}

func TestPendingAndClaim(t *testing.T) {
	root := testsupport.NewSpool(t)
	now := int64(100)
	s, err := spool.Open(root, spool.WithClock(func() time.Time { now++; return time.Unix(now, 0) }))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureClaimDir(); err != nil {
		t.Fatalf("EnsureClaimDir: %v", err)
	}

	first, _ := s.Deliver([]byte("first"))
	second, _ := s.Deliver([]byte("second"))
	if err := os.Mkdir(filepath.Join(root, spool.VisibleDir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	pending, err := s.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 || pending[0].Name != first.Name || pending[1].Name != second.Name {
		t.Fatalf("unexpected pending order: %+v", pending)
	}
	if pending[0].Size != int64(len("first")) {
		t.Fatalf("unexpected size %d", pending[0].Size)
	}

	data, err := s.Read(pending[0])
	if err != nil || string(data) != "first" {
		t.Fatalf("Read = %q, %v", data, err)
	}

	claimed, err := s.Claim(pending[0])
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !strings.HasSuffix(claimed.Path, filepath.Join(spool.ClaimedDir, first.Name)) {
		t.Fatalf("unexpected claimed path %q", claimed.Path)
	}
	pending, err = s.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Name != second.Name {
		t.Fatalf("expected only second entry pending, got %+v", pending)
	}
}
