package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"trybuild/internal/config"
	"trybuild/internal/options"
)

func newOptionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Show where trybuild looks for its options file and what it found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := ctx.ensureOptions()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Search path:")
			for _, dir := range res.Searched {
				marker := " "
				if res.File != "" && filepath.Dir(res.File) == dir {
					marker = "*"
				}
				fmt.Fprintf(out, "  %s %s\n", marker, dir)
			}
			for _, dir := range res.Skipped {
				fmt.Fprintf(out, "Skipped %s: not owned by the current user\n", dir)
			}
			if res.File == "" {
				fmt.Fprintln(out, "No options file found")
				return nil
			}
			fmt.Fprintf(out, "Using %s\n", res.File)
			for _, key := range res.Values.Keys() {
				fmt.Fprintf(out, "  %s = %s\n", key, formatOptionValue(res.Values, key))
			}
			return nil
		},
	}
	cmd.AddCommand(newOptionsInitCommand())
	return cmd
}

func newOptionsInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample options file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				home, err := options.DefaultHome()
				if err != nil {
					return err
				}
				target = filepath.Join(home, options.FileName)
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve options path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("options file already exists at %s (use --overwrite to replace it)", target)
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("check options path: %w", err)
				}
			}
			if err := options.WriteSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample options to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the options file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing options file")
	return cmd
}

func formatOptionValue(values options.Values, key string) string {
	if _, isList := values[key].([]any); isList {
		items, _ := values.Strings(key)
		quoted := make([]string, len(items))
		for i, item := range items {
			quoted[i] = fmt.Sprintf("%q", item)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	}
	if s, ok := values[key].(string); ok {
		return fmt.Sprintf("%q", s)
	}
	s, _ := values.String(key)
	return s
}
