package main

import (
	"strings"
	"testing"

	"trybuild/internal/testsupport"
)

func TestJobsListsLedger(t *testing.T) {
	isolate(t)
	base := testsupport.NewBasedir(t)
	seedLedger(t, base)

	out, _, err := runCLI(t, "", "jobs", base)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "alice")
	requireContains(t, out, "linux, macos")
	requireContains(t, out, "Received")
	requireContains(t, out, "Rejected")
	requireContains(t, out, "bad frame")
}

func TestJobsStatusFilter(t *testing.T) {
	isolate(t)
	base := testsupport.NewBasedir(t)
	seedLedger(t, base)

	out, _, err := runCLI(t, "", "jobs", "--status", "REJECTED", base)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "bad frame")
	if strings.Contains(out, "alice") {
		t.Fatalf("filter leaked received job: %q", out)
	}

	if _, _, err := runCLI(t, "", "jobs", "--status", "pending", base); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestJobsEmptyBasedir(t *testing.T) {
	isolate(t)
	base := testsupport.NewBasedir(t)

	out, _, err := runCLI(t, "", "jobs", base)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "No jobs recorded")
}
