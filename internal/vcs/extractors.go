package vcs

import (
	"context"
	"fmt"
	"regexp"
)

type gitExtractor struct{}

func (gitExtractor) needsTopdir() bool { return false }

func (gitExtractor) topdir(ctx context.Context, run RunFunc, start string) (string, error) {
	out, err := run(ctx, start, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("find git tree top: %w", err)
	}
	return firstLine(out), nil
}

func (gitExtractor) extract(ctx context.Context, run RunFunc, _ Options, stamp *SourceStamp) error {
	dir := stamp.Topdir
	if stamp.Branch == "" {
		out, err := run(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
		if err != nil {
			return fmt.Errorf("read git branch: %w", err)
		}
		// "HEAD" means a detached checkout.
		if branch := firstLine(out); branch != "HEAD" {
			stamp.Branch = branch
		}
	}
	if stamp.BaseRevision == "" {
		out, err := run(ctx, dir, "git", "rev-parse", "--verify", "@{upstream}")
		if err != nil {
			out, err = run(ctx, dir, "git", "rev-parse", "--verify", "HEAD")
		}
		if err != nil {
			return fmt.Errorf("read git base revision: %w", err)
		}
		stamp.BaseRevision = firstLine(out)
	}
	diff, err := run(ctx, dir, "git", "diff", "--src-prefix=a/", "--dst-prefix=b/",
		"--no-textconv", "--no-ext-diff", stamp.BaseRevision)
	if err != nil {
		return fmt.Errorf("read git diff: %w", err)
	}
	stamp.Diff = string(diff)
	stamp.PatchLevel = 1
	return nil
}

type hgExtractor struct{}

func (hgExtractor) needsTopdir() bool { return false }

func (hgExtractor) topdir(ctx context.Context, run RunFunc, start string) (string, error) {
	out, err := run(ctx, start, "hg", "root")
	if err != nil {
		return "", fmt.Errorf("find hg tree top: %w", err)
	}
	return firstLine(out), nil
}

func (hgExtractor) extract(ctx context.Context, run RunFunc, _ Options, stamp *SourceStamp) error {
	dir := stamp.Topdir
	if stamp.Branch == "" {
		out, err := run(ctx, dir, "hg", "branch")
		if err != nil {
			return fmt.Errorf("read hg branch: %w", err)
		}
		stamp.Branch = firstLine(out)
	}
	if stamp.BaseRevision == "" {
		out, err := run(ctx, dir, "hg", "parents", "--template", "{node}\n")
		if err != nil {
			return fmt.Errorf("read hg base revision: %w", err)
		}
		stamp.BaseRevision = firstLine(out)
	}
	diff, err := run(ctx, dir, "hg", "diff", "-r", stamp.BaseRevision)
	if err != nil {
		return fmt.Errorf("read hg diff: %w", err)
	}
	stamp.Diff = string(diff)
	stamp.PatchLevel = 1
	return nil
}

type svnExtractor struct{}

var svnRevisionPattern = regexp.MustCompile(`(?m)^Status against revision:\s+(\d+)`)

func (svnExtractor) needsTopdir() bool { return true }

func (svnExtractor) topdir(context.Context, RunFunc, string) (string, error) {
	return "", ErrTopdirRequired
}

func (svnExtractor) extract(ctx context.Context, run RunFunc, _ Options, stamp *SourceStamp) error {
	dir := stamp.Topdir
	if stamp.BaseRevision == "" {
		out, err := run(ctx, dir, "svn", "status", "-u")
		if err != nil {
			return fmt.Errorf("read svn base revision: %w", err)
		}
		m := svnRevisionPattern.FindSubmatch(out)
		if m == nil {
			return fmt.Errorf("read svn base revision: no \"Status against revision\" line in svn status output")
		}
		stamp.BaseRevision = string(m[1])
	}
	diff, err := run(ctx, dir, "svn", "diff", "-r"+stamp.BaseRevision)
	if err != nil {
		return fmt.Errorf("read svn diff: %w", err)
	}
	stamp.Diff = string(diff)
	stamp.PatchLevel = 0
	return nil
}
