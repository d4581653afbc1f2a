package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"modgraph/internal/baseline"
	"modgraph/internal/check"
	"modgraph/internal/paths"
)

var (
	baselineReason string
	baselinePrune  bool
	baselineFormat string
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage accepted findings",
	Long:  "Manage .modgraph/baseline.toml, the findings that do not fail a check",
}

var baselineSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Accept the current violations",
	Long: `Run a check and add every violation to the baseline. Entries already in the
baseline are kept; with --prune entries that no longer match a finding are
removed.

Examples:
  modgraph baseline save --reason="legacy cycles, tracked in #1234"
  modgraph baseline save --prune`,
	Args: cobra.NoArgs,
	RunE: runBaselineSave,
}

var baselineShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the accepted findings",
	Args:  cobra.NoArgs,
	RunE:  runBaselineShow,
}

func init() {
	baselineSaveCmd.Flags().StringVar(&baselineReason, "reason", "", "Why the findings are accepted")
	baselineSaveCmd.Flags().BoolVar(&baselinePrune, "prune", false, "Remove entries that no longer match a finding")
	baselineSaveCmd.Flags().BoolVar(&checkIncludeTests, "include-tests", false, "Include test scopes in the module graph")
	baselineShowCmd.Flags().StringVar(&baselineFormat, "format", "human", "Output format (json, yaml, human)")

	baselineCmd.AddCommand(baselineSaveCmd)
	baselineCmd.AddCommand(baselineShowCmd)
	rootCmd.AddCommand(baselineCmd)
}

func runBaselineSave(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	bl, err := baseline.Load(e.repoRoot)
	if err != nil {
		return err
	}
	res, err := check.Run(cmd.Context(), check.Options{
		RepoRoot:     e.repoRoot,
		Config:       e.cfg,
		Logger:       e.logger,
		IncludeTests: checkIncludeTests,
		Baseline:     bl,
	})
	if err != nil {
		return err
	}

	removed := 0
	if baselinePrune {
		removed = bl.Prune(res.Violations)
	}

	added := 0
	for _, f := range res.Violations {
		if bl.Add(f, baselineReason) {
			added++
		}
	}
	if err := bl.Save(e.repoRoot); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Baseline saved to %s: %d entries (%d new", paths.GetBaselinePath(e.repoRoot), len(bl.Entries), added)
	if baselinePrune {
		fmt.Fprintf(cmd.OutOrStdout(), ", %d removed", removed)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ")")
	return nil
}

func runBaselineShow(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	bl, err := baseline.Load(e.repoRoot)
	if err != nil {
		return err
	}
	if baselineFormat != "human" {
		return write(cmd, bl, baselineFormat)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Baseline (%d entries)\n", len(bl.Entries))
	for _, entry := range bl.Entries {
		fmt.Fprintf(out, "  %s  %s  %s %v\n", entry.Fingerprint, entry.Kind, entry.Module, entry.Members)
		if entry.Reason != "" {
			fmt.Fprintf(out, "    %s\n", entry.Reason)
		}
	}
	return nil
}
