package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOptionsShowsResolution(t *testing.T) {
	_, work := isolate(t)
	writeOptions(t, work, "try_who = \"carol\"\ntry_builders = [\"a\", \"b\"]\n__internal = 1\n")

	out, _, err := runCLI(t, "", "options")
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	requireContains(t, out, "* "+filepath.Join(work, ".trybuild"))
	requireContains(t, out, "Using "+filepath.Join(work, ".trybuild", "options"))
	requireContains(t, out, `try_who = "carol"`)
	requireContains(t, out, `try_builders = ["a", "b"]`)
	if strings.Contains(out, "__internal") {
		t.Fatalf("reserved key shown: %q", out)
	}
}

func TestOptionsWithoutFile(t *testing.T) {
	isolate(t)
	out, _, err := runCLI(t, "", "options")
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	requireContains(t, out, "No options file found")
}

func TestOptionsInitWritesSample(t *testing.T) {
	home, _ := isolate(t)
	target := filepath.Join(home, ".trybuild", "options")

	out, _, err := runCLI(t, "", "options", "init")
	if err != nil {
		t.Fatalf("options init: %v", err)
	}
	requireContains(t, out, target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "try_connect") {
		t.Fatalf("sample missing try_connect: %q", data)
	}

	if _, _, err := runCLI(t, "", "options", "init"); err == nil {
		t.Fatal("expected error when the file exists")
	}
	if _, _, err := runCLI(t, "", "options", "init", "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	out, _, err = runCLI(t, "", "options")
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	requireContains(t, out, "try_jobdir")
}
