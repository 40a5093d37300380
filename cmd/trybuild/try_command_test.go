package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"trybuild/internal/jobfile"
	"trybuild/internal/options"
	"trybuild/internal/submit"
	"trybuild/internal/testsupport"
	"trybuild/internal/vcs"
)

func TestTryDryRunPrintsSummary(t *testing.T) {
	isolate(t)
	out, _, err := runCLI(t, "patch\n", "try", "--dryrun", "--diff", "-", "-b", "linux", "-b", "macos", "--who", "alice", "--branch", "main")
	if err != nil {
		t.Fatalf("try --dryrun: %v", err)
	}
	requireContains(t, out, "Version:     3")
	requireContains(t, out, "Builders:    linux, macos")
	requireContains(t, out, "Branch:      main")
	requireContains(t, out, "Diff:        stdin")
	requireContains(t, out, "Dry run: job not submitted")
}

func TestTryDryRunSelectsVersionFive(t *testing.T) {
	isolate(t)
	out, _, err := runCLI(t, "", "try", "-n", "--diff", "-", "-b", "linux", "--properties", "a=1,b=2")
	if err != nil {
		t.Fatalf("try: %v", err)
	}
	requireContains(t, out, "Version:     5")
	requireContains(t, out, "Property:    a=1")
	requireContains(t, out, "Property:    b=2")
}

func TestTryDeliversUsingOptionsFile(t *testing.T) {
	_, work := isolate(t)
	jobdir := testsupport.NewSpool(t)
	writeOptions(t, work, fmt.Sprintf(
		"try_connect = \"local\"\ntry_jobdir = %q\ntry_builders = [\"full\", \"quick\"]\ntry_who = \"bob\"\n", jobdir))

	diff := "--- a/x\n+++ b/x\n@@ -1 +1 @@\n-a\n+b\n"
	out, _, err := runCLI(t, diff, "try", "--diff", "-", "-p", "1", "--comment", "first try")
	if err != nil {
		t.Fatalf("try: %v", err)
	}
	requireContains(t, out, "submitted to 2 builder(s)")

	entries := pendingEntries(t, jobdir)
	if len(entries) != 1 {
		t.Fatalf("expected one spooled job, got %d", len(entries))
	}
	data, err := os.ReadFile(entries[0])
	if err != nil {
		t.Fatalf("read job: %v", err)
	}
	req, version, err := jobfile.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if version != jobfile.Version4 {
		t.Fatalf("version = %s, want 4", version)
	}
	if !slices.Equal(req.Builders, []string{"full", "quick"}) {
		t.Fatalf("builders = %v", req.Builders)
	}
	if req.Diff != diff || req.PatchLevel != 1 || req.Who != "bob" || req.Comment != "first try" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestTryExplicitFlagsOverrideOptionsFile(t *testing.T) {
	_, work := isolate(t)
	fromFile := testsupport.NewSpool(t)
	explicit := testsupport.NewSpool(t)
	writeOptions(t, work, fmt.Sprintf("try_jobdir = %q\ntry_builders = [\"full\"]\ntry_quiet = true\n", fromFile))

	out, _, err := runCLI(t, "", "try", "--diff", "-", "--jobdir", explicit, "-b", "quick")
	if err != nil {
		t.Fatalf("try: %v", err)
	}
	if out != "" {
		t.Fatalf("try_quiet should silence output, got %q", out)
	}
	if n := len(pendingEntries(t, fromFile)); n != 0 {
		t.Fatalf("options jobdir received %d jobs", n)
	}
	entries := pendingEntries(t, explicit)
	if len(entries) != 1 {
		t.Fatalf("explicit jobdir received %d jobs", len(entries))
	}
	data, _ := os.ReadFile(entries[0])
	req, _, err := jobfile.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !slices.Equal(req.Builders, []string{"quick"}) {
		t.Fatalf("builders = %v, want [quick]", req.Builders)
	}
}

func TestTryDirAliasSuppliesJobdir(t *testing.T) {
	_, work := isolate(t)
	jobdir := testsupport.NewSpool(t)
	writeOptions(t, work, fmt.Sprintf("try_dir = %q\n", jobdir))

	if _, _, err := runCLI(t, "", "try", "-q", "--diff", "-", "-b", "linux"); err != nil {
		t.Fatalf("try: %v", err)
	}
	if n := len(pendingEntries(t, jobdir)); n != 1 {
		t.Fatalf("expected one job via try_dir, got %d", n)
	}
}

func TestTryDirOverridesTryJobdir(t *testing.T) {
	_, work := isolate(t)
	viaJobdir := testsupport.NewSpool(t)
	viaDir := testsupport.NewSpool(t)
	writeOptions(t, work, fmt.Sprintf("try_jobdir = %q\ntry_dir = %q\n", viaJobdir, viaDir))

	if _, _, err := runCLI(t, "", "try", "-q", "--diff", "-", "-b", "linux"); err != nil {
		t.Fatalf("try: %v", err)
	}
	if n := len(pendingEntries(t, viaDir)); n != 1 {
		t.Fatalf("try_dir spool received %d jobs, want 1", n)
	}
	if n := len(pendingEntries(t, viaJobdir)); n != 0 {
		t.Fatalf("try_jobdir spool received %d jobs, want 0", n)
	}
}

// fakeVC puts a stub client on PATH and routes --vc commands through run.
func fakeVC(t *testing.T, name string, run vcs.RunFunc) {
	t.Helper()
	bin := t.TempDir()
	if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	prev := newExtractor
	newExtractor = func() *vcs.Extractor { return vcs.New(vcs.WithRunner(run)) }
	t.Cleanup(func() { newExtractor = prev })
}

func TestTryVCReadsWorkingCopy(t *testing.T) {
	_, work := isolate(t)
	jobdir := testsupport.NewSpool(t)
	writeOptions(t, work, fmt.Sprintf("try_vc = \"git\"\ntry_jobdir = %q\n", jobdir))
	diff := "diff --git a/x b/x\n-a\n+b\n"
	var dirs []string
	fakeVC(t, "git", func(_ context.Context, dir, _ string, args ...string) ([]byte, error) {
		dirs = append(dirs, dir)
		switch strings.Join(args, " ") {
		case "rev-parse --show-toplevel":
			return []byte(work + "\n"), nil
		case "rev-parse --abbrev-ref HEAD":
			return []byte("topic\n"), nil
		case "rev-parse --verify @{upstream}":
			return []byte("cafef00d\n"), nil
		case "diff --src-prefix=a/ --dst-prefix=b/ --no-textconv --no-ext-diff cafef00d":
			return []byte(diff), nil
		}
		return nil, fmt.Errorf("unexpected git %v", args)
	})

	out, _, err := runCLI(t, "", "try", "-n", "-b", "linux")
	if err != nil {
		t.Fatalf("try --dryrun: %v", err)
	}
	requireContains(t, out, "VC:          git")
	requireContains(t, out, "Topdir:      "+work)
	requireContains(t, out, "Branch:      topic")
	requireContains(t, out, "Base rev:    cafef00d")
	requireContains(t, out, "Patch level: 1")
	if len(dirs) == 0 {
		t.Fatal("expected git to be consulted")
	}

	if _, _, err := runCLI(t, "", "try", "-q", "-b", "linux", "-p", "2"); err != nil {
		t.Fatalf("try: %v", err)
	}
	entries := pendingEntries(t, jobdir)
	if len(entries) != 1 {
		t.Fatalf("expected one spooled job, got %d", len(entries))
	}
	data, err := os.ReadFile(entries[0])
	if err != nil {
		t.Fatalf("read job: %v", err)
	}
	req, _, err := jobfile.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Diff != diff || req.Branch != "topic" || req.BaseRevision != "cafef00d" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.PatchLevel != 2 {
		t.Fatalf("explicit -p should win over the VC patch level, got %d", req.PatchLevel)
	}
}

func TestTryDiffWinsOverVC(t *testing.T) {
	isolate(t)
	fakeVC(t, "git", func(context.Context, string, string, ...string) ([]byte, error) {
		return nil, errors.New("git should not run")
	})
	out, _, err := runCLI(t, "from stdin\n", "try", "-n", "--vc", "git", "--diff", "-", "-b", "linux")
	if err != nil {
		t.Fatalf("try: %v", err)
	}
	requireContains(t, out, "Diff:        stdin")
}

func TestTryErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		is   error
		want string
	}{
		{"no diff", []string{"try", "-n", "-b", "x"}, errNoDiff, "--vc"},
		{"no builders", []string{"try", "-n", "--diff", "-"}, jobfile.ErrNoBuilders, "try_builders"},
		{"bad patch level", []string{"try", "-n", "--diff", "-", "-b", "x", "--patchlevel=-1"}, jobfile.ErrPatchLevel, ""},
		{"pb connect", []string{"try", "--diff", "-", "-b", "x", "--connect", "pb"}, submit.ErrUnsupportedConnect, ""},
		{"local without jobdir", []string{"try", "--diff", "-", "-b", "x"}, nil, "--jobdir"},
		{"bad property", []string{"try", "-n", "--diff", "-", "-b", "x", "--properties", "novalue"}, nil, "name=value"},
		{"unsupported vc", []string{"try", "-n", "--vc", "darcs", "-b", "x"}, vcs.ErrUnsupported, "git, hg, svn"},
		{"missing diff file", []string{"try", "-n", "--diff", "no-such.patch", "-b", "x"}, nil, "read diff"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			_, _, err := runCLI(t, "", tc.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("error %v does not wrap %v", err, tc.is)
			}
			if tc.want != "" && !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q missing %q", err, tc.want)
			}
		})
	}
}

func TestTryOptionsParseErrorIsFatal(t *testing.T) {
	_, work := isolate(t)
	writeOptions(t, work, "try_builders = [\n")
	_, _, err := runCLI(t, "", "try", "-n", "--diff", "-", "-b", "x")
	var parseErr *options.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *options.ParseError, got %v", err)
	}
}

func TestTryServerDeliversStdin(t *testing.T) {
	isolate(t)
	jobdir := testsupport.NewSpool(t)
	payload, err := jobfile.Encode(&jobfile.Request{BuildSetID: "1-x", Builders: []string{"b"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, _, err := runCLI(t, string(payload), "tryserver", "--jobdir", jobdir); err != nil {
		t.Fatalf("tryserver: %v", err)
	}
	entries := pendingEntries(t, jobdir)
	if len(entries) != 1 {
		t.Fatalf("expected one job, got %d", len(entries))
	}
	got, _ := os.ReadFile(entries[0])
	if string(got) != string(payload) {
		t.Fatalf("spooled bytes differ: %q", got)
	}
}

func TestTryServerErrors(t *testing.T) {
	isolate(t)
	if _, _, err := runCLI(t, "x", "tryserver"); err == nil {
		t.Fatal("expected error without --jobdir")
	}
	if _, _, err := runCLI(t, "", "tryserver", "--jobdir", testsupport.NewSpool(t)); err == nil {
		t.Fatal("expected error for empty stdin")
	}
	if _, _, err := runCLI(t, "x", "tryserver", "--jobdir", t.TempDir()); err == nil {
		t.Fatal("expected error for a directory that is not a spool")
	}
}
