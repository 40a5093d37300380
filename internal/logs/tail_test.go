package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"trybuild/internal/logs"
)

func appendLog(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.log")
	appendLog(t, path, "a\nb\nc\n")

	chunk, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if !slices.Equal(chunk.Lines, []string{"b", "c"}) {
		t.Fatalf("unexpected lines: %#v", chunk.Lines)
	}
	if chunk.Offset != 6 {
		t.Fatalf("offset = %d, want 6", chunk.Offset)
	}
}

func TestLastLeavesPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.log")
	appendLog(t, path, "done\nhalf")

	chunk, err := logs.Last(path, 5)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if !slices.Equal(chunk.Lines, []string{"done"}) || chunk.Offset != 5 {
		t.Fatalf("unexpected chunk: %#v", chunk)
	}

	appendLog(t, path, " more\n")
	next, err := logs.Since(path, chunk.Offset)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if !slices.Equal(next.Lines, []string{"half more"}) {
		t.Fatalf("unexpected lines: %#v", next.Lines)
	}
}

func TestMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")
	chunk, err := logs.Last(path, 10)
	if err != nil || len(chunk.Lines) != 0 || chunk.Offset != 0 {
		t.Fatalf("unexpected result: %#v, %v", chunk, err)
	}
}

func TestSinceRestartsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.log")
	appendLog(t, path, "one\ntwo\nthree\n")
	chunk, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("last: %v", err)
	}

	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	next, err := logs.Since(path, chunk.Offset)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if !slices.Equal(next.Lines, []string{"fresh"}) {
		t.Fatalf("unexpected lines: %#v", next.Lines)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.log")
	appendLog(t, path, "start\n")
	chunk, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, chunk.Offset, 20*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	appendLog(t, path, "later\n")
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("follow did not emit the appended line")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(got, []string{"later"}) {
		t.Fatalf("unexpected lines: %#v", got)
	}
}
