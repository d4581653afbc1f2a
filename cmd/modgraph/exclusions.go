package main

import (
	"strings"

	"github.com/spf13/cobra"

	"modgraph/internal/cycles"
	mgerrors "modgraph/internal/errors"
	"modgraph/internal/modules"
	"modgraph/internal/report"
)

var exclusionsFormat string

var exclusionsCmd = &cobra.Command{
	Use:   "exclusions <module>",
	Short: "Show what the exclusion patterns of a module match",
	Long: `Scan the sources of a module and show, for each classycle exclusion pattern,
the packages it excludes. Patterns that match nothing and patterns that only
select some classes of a package are reported.

Examples:
  modgraph exclusions :modelCore
  modgraph exclusions :modelCore --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runExclusions,
}

func init() {
	exclusionsCmd.Flags().StringVar(&exclusionsFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(exclusionsCmd)
}

func runExclusions(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	detected, err := modules.Load(ctx, e.repoRoot, e.cfg, e.logger)
	if err != nil {
		return err
	}
	m, ok := modules.Index(detected.Modules)[args[0]]
	if !ok {
		return mgerrors.Errorf(mgerrors.ModuleNotFound, "module %s not found", args[0])
	}

	scan, err := cycles.NewScanner(cycles.OptionsFromConfig(e.cfg), e.logger).ScanModule(ctx, e.repoRoot, m)
	if err != nil {
		return err
	}

	ex, perr := cycles.CompileExclusions(m.ExcludePatterns)
	view := &report.ExclusionsView{
		Module:     m.Name,
		Patterns:   ex.Patterns(),
		Packages:   len(scan.Packages),
		Evaluation: ex.Evaluate(scan.Packages),
	}
	if perr != nil {
		valid := make(map[string]bool)
		for _, p := range view.Patterns {
			valid[p] = true
		}
		for _, p := range m.ExcludePatterns {
			if !valid[strings.TrimSpace(p)] {
				view.Invalid = append(view.Invalid, p)
			}
		}
	}
	for _, p := range view.Evaluation.Unused {
		e.logger.Warn("Exclusion pattern matches no class", "module", m.Name, "pattern", p)
	}
	return write(cmd, view, exclusionsFormat)
}
