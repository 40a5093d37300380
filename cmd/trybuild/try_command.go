package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trybuild/internal/deps"
	"trybuild/internal/jobfile"
	"trybuild/internal/logging"
	"trybuild/internal/options"
	"trybuild/internal/submit"
	"trybuild/internal/vcs"
)

// errNoDiff reports a try run with nothing to send.
var errNoDiff = errors.New("no diff to send (use --diff FILE, --diff - for stdin, or --vc to read the working copy)")

// newExtractor builds the working-copy reader used by --vc.
var newExtractor = func() *vcs.Extractor { return vcs.New() }

// tryMappings lists options-file keys; a later key overrides an earlier one
// for the same flag. try_dir is the historical name for try_jobdir and, being
// last, takes precedence when both are set.
var tryMappings = []options.Mapping{
	{Key: "try_connect", Flag: "connect"},
	{Key: "try_vc", Flag: "vc"},
	{Key: "try_branch", Flag: "branch"},
	{Key: "try_repository", Flag: "repository"},
	{Key: "try_topdir", Flag: "topdir"},
	{Key: "try_topfile", Flag: "topfile"},
	{Key: "try_host", Flag: "host"},
	{Key: "try_username", Flag: "username"},
	{Key: "try_jobdir", Flag: "jobdir"},
	{Key: "try_buildbotbin", Flag: "buildbotbin"},
	{Key: "try_who", Flag: "who"},
	{Key: "try_comment", Flag: "comment"},
	{Key: "try_builders", Flag: "builder"},
	{Key: "try_quiet", Flag: "quiet"},
	{Key: "try_dir", Flag: "jobdir"},
}

type tryFlags struct {
	connect     string
	host        string
	jobdir      string
	username    string
	buildbotbin string
	who         string
	comment     string
	diff        string
	vc          string
	topdir      string
	topfile     string
	patchlevel  string
	baserev     string
	branch      string
	repository  string
	project     string
	builders    []string
	properties  []string
	dryRun      bool
	quiet       bool
}

func newTryCommand(ctx *commandContext) *cobra.Command {
	var f tryFlags

	cmd := &cobra.Command{
		Use:   "try",
		Short: "Submit a diff to the buildmaster as a try job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := ctx.ensureOptions()
			if err != nil {
				return err
			}
			if err := options.Apply(cmd.Flags(), res.Values, tryMappings); err != nil {
				return err
			}

			req, topdir, err := f.request(cmd.Context(), cmd.InOrStdin(), cmd.Flags().Changed("patchlevel"))
			if err != nil {
				return err
			}
			payload, err := jobfile.Encode(req)
			if errors.Is(err, jobfile.ErrNoBuilders) {
				return fmt.Errorf("%w (use --builder or set try_builders)", err)
			}
			if err != nil {
				return err
			}
			version := jobfile.SelectVersion(req)

			out := cmd.OutOrStdout()
			if f.dryRun {
				printJobSummary(out, req, f.source(topdir), version, len(payload))
				fmt.Fprintln(out, "Dry run: job not submitted")
				return nil
			}

			submitter, err := submit.ForConnect(submit.Settings{
				Connect:  f.connect,
				Host:     f.host,
				Username: f.username,
				JobDir:   f.jobdir,
				Binary:   f.buildbotbin,
			})
			if err != nil {
				return err
			}
			if err := deps.Missing(deps.CheckBinaries(deps.ForConnect(f.connect))); err != nil {
				return fmt.Errorf("connect %s: %w", f.connect, err)
			}
			ctx.clientLogger().Debug("submitting try job",
				logging.String("bsid", req.BuildSetID),
				logging.String("connect", f.connect),
				logging.String("version", string(version)),
				logging.Int("bytes", len(payload)))
			if err := submitter.Submit(cmd.Context(), payload); err != nil {
				return fmt.Errorf("submit try job: %w", err)
			}
			if !f.quiet {
				fmt.Fprintf(out, "Try job %s submitted to %d builder(s)\n", req.BuildSetID, len(req.Builders))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.connect, "connect", "c", "local", "How to reach the master (local, ssh)")
	flags.StringVar(&f.host, "host", "", "Master host for --connect=ssh")
	flags.StringVar(&f.jobdir, "jobdir", "", "Job spool directory on the master")
	flags.StringVarP(&f.username, "username", "u", "", "Login name for --connect=ssh")
	flags.StringVar(&f.buildbotbin, "buildbotbin", "trybuild", "Remote trybuild command for --connect=ssh")
	flags.StringVarP(&f.who, "who", "w", "", "Who is responsible for the job")
	flags.StringVarP(&f.comment, "comment", "C", "", "Comment attached to the job")
	flags.StringVar(&f.diff, "diff", "", "Diff file to test, or - for stdin")
	flags.StringVar(&f.vc, "vc", "", "Read the diff from this VC's working copy ("+strings.Join(vcs.Supported(), ", ")+")")
	flags.StringVar(&f.topdir, "topdir", "", "Top of the working copy for --vc")
	flags.StringVar(&f.topfile, "topfile", "", "File that marks the top of the working copy for --vc")
	flags.StringVarP(&f.patchlevel, "patchlevel", "p", "0", "Strip this many leading path components when applying the diff")
	flags.StringVar(&f.baserev, "baserev", "", "Revision the diff applies to")
	flags.StringVar(&f.branch, "branch", "", "Branch the diff applies to")
	flags.StringVar(&f.repository, "repository", "", "Repository the diff applies to")
	flags.StringVar(&f.project, "project", "", "Project name")
	flags.StringArrayVarP(&f.builders, "builder", "b", nil, "Builder to run (repeatable)")
	flags.StringArrayVar(&f.properties, "properties", nil, "Build properties as k1=v1,k2=v2 (repeatable)")
	flags.BoolVarP(&f.dryRun, "dryrun", "n", false, "Print the job instead of submitting it")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "Suppress the confirmation message")

	return cmd
}

// request builds the job from flags. --diff wins over --vc; with --vc the
// working copy supplies the diff, any branch or base revision left unset, and
// the patch level unless -p was given. The returned topdir is empty unless
// --vc was used.
func (f *tryFlags) request(ctx context.Context, stdin io.Reader, patchLevelSet bool) (*jobfile.Request, string, error) {
	patchLevel, err := jobfile.ParsePatchLevel(f.patchlevel)
	if err != nil {
		return nil, "", err
	}
	props, err := jobfile.ParseProperties(f.properties)
	if err != nil {
		return nil, "", err
	}

	branch := strings.TrimSpace(f.branch)
	baserev := strings.TrimSpace(f.baserev)
	var diff, topdir string
	switch {
	case f.diff != "":
		diff, err = readDiff(f.diff, stdin)
		if err != nil {
			return nil, "", err
		}
	case strings.TrimSpace(f.vc) != "":
		if err := vcs.Validate(f.vc); err != nil {
			return nil, "", err
		}
		if err := deps.Missing(deps.CheckBinaries(deps.ForVC(f.vc))); err != nil {
			return nil, "", fmt.Errorf("vc %s: %w", f.vc, err)
		}
		stamp, err := newExtractor().Extract(ctx, vcs.Options{
			VC:           f.vc,
			Branch:       branch,
			BaseRevision: baserev,
			Topdir:       f.topdir,
			Topfile:      f.topfile,
		})
		if err != nil {
			return nil, "", fmt.Errorf("read %s working copy: %w", f.vc, err)
		}
		branch, baserev, diff, topdir = stamp.Branch, stamp.BaseRevision, stamp.Diff, stamp.Topdir
		if !patchLevelSet {
			patchLevel = stamp.PatchLevel
		}
	default:
		return nil, "", errNoDiff
	}

	return &jobfile.Request{
		BuildSetID:   jobfile.NewBuildSetID(time.Now()),
		Branch:       branch,
		BaseRevision: baserev,
		PatchLevel:   patchLevel,
		Diff:         diff,
		Repository:   strings.TrimSpace(f.repository),
		Project:      strings.TrimSpace(f.project),
		Who:          strings.TrimSpace(f.who),
		Comment:      f.comment,
		Builders:     f.builders,
		Properties:   props,
	}, topdir, nil
}

// jobSource describes where the diff came from, for the dry-run summary.
type jobSource struct {
	vc     string
	topdir string
	diff   string
}

func (f *tryFlags) source(topdir string) jobSource {
	if f.diff != "" {
		return jobSource{diff: f.diff}
	}
	return jobSource{vc: strings.ToLower(strings.TrimSpace(f.vc)), topdir: topdir}
}

func readDiff(source string, stdin io.Reader) (string, error) {
	switch source {
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read diff from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return "", fmt.Errorf("read diff: %w", err)
		}
		return string(data), nil
	}
}

func printJobSummary(out io.Writer, req *jobfile.Request, src jobSource, version jobfile.Version, size int) {
	fmt.Fprintf(out, "Job:         %s\n", req.BuildSetID)
	fmt.Fprintf(out, "Version:     %s\n", version)
	if src.vc != "" {
		fmt.Fprintf(out, "VC:          %s\n", src.vc)
		fmt.Fprintf(out, "Topdir:      %s\n", src.topdir)
	} else {
		fmt.Fprintf(out, "Diff:        %s\n", diffSourceLabel(src.diff))
	}
	fmt.Fprintf(out, "Builders:    %s\n", strings.Join(req.Builders, ", "))
	fmt.Fprintf(out, "Branch:      %s\n", orNone(req.Branch))
	fmt.Fprintf(out, "Base rev:    %s\n", orNone(req.BaseRevision))
	fmt.Fprintf(out, "Patch level: %d\n", req.PatchLevel)
	fmt.Fprintf(out, "Who:         %s\n", orNone(req.Who))
	if req.Comment != "" {
		fmt.Fprintf(out, "Comment:     %s\n", req.Comment)
	}
	for _, key := range sortedKeys(req.Properties) {
		fmt.Fprintf(out, "Property:    %s=%s\n", key, req.Properties[key])
	}
	fmt.Fprintf(out, "Size:        %d bytes\n", size)
}

func diffSourceLabel(source string) string {
	if source == "-" {
		return "stdin"
	}
	return source
}
