package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"modgraph/internal/baseline"
	"modgraph/internal/check"
	"modgraph/internal/report"
	"modgraph/internal/storage"
)

var (
	checkFormat       string
	checkIncludeTests bool
	checkModules      []string
	checkBaseline     string
	checkNoHistory    bool
	checkNoPackages   bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check modules and packages for dependency cycles",
	Long: `Check the build for dependency cycles.

Module cycles are always violations. Package cycles inside a module are
suppressed when the module's classycle exclusion patterns leave fewer than two
of its packages; a cycle between packages that are not excluded fails even if
it only runs through excluded packages.

Findings accepted in .modgraph/baseline.toml do not fail the check.

Exit codes:
  0  no violations
  1  violations found
  2  invalid build scripts, configuration or usage

Examples:
  modgraph check
  modgraph check --format=sarif > modgraph.sarif
  modgraph check --module=:modelCore --include-tests`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "human", "Output format (json, yaml, human, sarif)")
	checkCmd.Flags().BoolVar(&checkIncludeTests, "include-tests", false, "Include test scopes in the module graph")
	checkCmd.Flags().StringArrayVar(&checkModules, "module", nil, "Only check packages of these modules")
	checkCmd.Flags().StringVar(&checkBaseline, "baseline", "", "Baseline file (default: .modgraph/baseline.toml)")
	checkCmd.Flags().BoolVar(&checkNoHistory, "no-history", false, "Do not record the run in the history database")
	checkCmd.Flags().BoolVar(&checkNoPackages, "no-packages", false, "Skip the package cycle check")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(checkFormat)
	if err != nil {
		return err
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := checkOnce(cmd.Context(), e, cmd.OutOrStdout(), format)
	if err != nil {
		return err
	}
	if res.Status == check.StatusFail {
		return errCheckFailed
	}
	return nil
}

func checkOptions(e *cliEnv) (check.Options, error) {
	opts := check.Options{
		RepoRoot:     e.repoRoot,
		Config:       e.cfg,
		Logger:       e.logger,
		IncludeTests: checkIncludeTests,
		Modules:      checkModules,
		SkipPackages: checkNoPackages,
	}
	if checkBaseline != "" {
		bl, err := baseline.LoadFile(checkBaseline)
		if err != nil {
			return opts, err
		}
		opts.Baseline = bl
	}
	return opts, nil
}

// recordRun stores the result in the history database. Storage failures are
// logged and never change the outcome of the check.
func recordRun(e *cliEnv, res *check.Result) {
	if !e.cfg.Storage.Enabled {
		return
	}
	db, err := storage.Open(e.repoRoot, e.logger)
	if err != nil {
		e.logger.Warn("Failed to open history database", "error", err)
		return
	}
	defer db.Close()

	runs := storage.NewRunRepository(db, e.cfg.Storage.CompressLv)
	id, err := runs.Record(res)
	if err != nil {
		e.logger.Warn("Failed to record check run", "error", err)
		return
	}
	if keep := e.cfg.Storage.KeepRuns; keep > 0 {
		if n, err := runs.Prune(keep); err != nil {
			e.logger.Warn("Failed to prune history", "error", err)
		} else if n > 0 {
			e.logger.Debug("Pruned old runs", "count", n)
		}
	}
	e.logger.Debug("Recorded check run", "id", id)
}

// checkOnce runs a check, records it and prints the result
func checkOnce(ctx context.Context, e *cliEnv, w io.Writer, format report.Format) (*check.Result, error) {
	opts, err := checkOptions(e)
	if err != nil {
		return nil, err
	}
	res, err := check.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	if !checkNoHistory {
		recordRun(e, res)
	}
	out, err := report.Render(res, format)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(w, out)
	return res, nil
}
