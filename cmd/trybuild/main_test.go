package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points HOME and the working directory at fresh temp dirs so no
// real options file is picked up.
func isolate(t *testing.T) (home, work string) {
	t.Helper()
	home = t.TempDir()
	work = t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(work)
	return home, work
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func writeOptions(t *testing.T, dir, body string) {
	t.Helper()
	path := filepath.Join(dir, ".trybuild", "options")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir options dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write options: %v", err)
	}
}

func pendingEntries(t *testing.T, jobdir string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(jobdir, "new"))
	if err != nil {
		t.Fatalf("read spool: %v", err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, filepath.Join(jobdir, "new", e.Name()))
	}
	return paths
}

func TestRootShowsHelp(t *testing.T) {
	isolate(t)
	out, _, err := runCLI(t, "")
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	requireContains(t, out, "tryserver")
	if strings.Contains(out, "master [basedir]") {
		t.Fatalf("hidden master command listed in help: %q", out)
	}
}
