// Package check runs the full cycle check of a build: module discovery,
// declaration validation, module cycles and package cycles with exclusions.
package check

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"modgraph/internal/baseline"
	"modgraph/internal/config"
	"modgraph/internal/cycles"
	"modgraph/internal/depgraph"
	mgerrors "modgraph/internal/errors"
	"modgraph/internal/modules"
	"modgraph/internal/slogutil"
)

// Status is the overall outcome of a check
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Options configures a check run
type Options struct {
	RepoRoot string
	Config   *config.Config
	Logger   *slog.Logger

	// IncludeTests adds test scopes to the module graph on top of the config
	IncludeTests bool

	// Scopes overrides the scope classes of the module graph when set
	Scopes []modules.ScopeClass

	// Modules restricts the package check to these modules; empty means all
	Modules []string

	// SkipPackages disables the package cycle check
	SkipPackages bool

	// Baseline overrides the repository baseline; nil loads it from disk
	Baseline *baseline.Baseline
}

// Summary counts the outcome of a check
type Summary struct {
	Modules        int `json:"modules" yaml:"modules"`
	Edges          int `json:"edges" yaml:"edges"`
	Packages       int `json:"packages" yaml:"packages"`
	Files          int `json:"files" yaml:"files"`
	ModuleCycles   int `json:"moduleCycles" yaml:"moduleCycles"`
	PackageCycles  int `json:"packageCycles" yaml:"packageCycles"`
	Violations     int `json:"violations" yaml:"violations"`
	Suppressed     int `json:"suppressed" yaml:"suppressed"`
	Baselined      int `json:"baselined" yaml:"baselined"`
	UnusedPatterns int `json:"unusedPatterns" yaml:"unusedPatterns"`
	Errors         int `json:"errors" yaml:"errors"`
	Warnings       int `json:"warnings" yaml:"warnings"`
}

// PatternRef is an exclusion pattern of one module
type PatternRef struct {
	Module  string `json:"module" yaml:"module"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// ModuleResult is the package check of one module
type ModuleResult struct {
	Module     string   `json:"module" yaml:"module"`
	Packages   int      `json:"packages" yaml:"packages"`
	Files      int      `json:"files" yaml:"files"`
	Skipped    int      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Patterns   []string `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Excluded   []string `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Violations int      `json:"violations" yaml:"violations"`
	Suppressed int      `json:"suppressed" yaml:"suppressed"`
}

// Result is the outcome of a check run
type Result struct {
	RepoRoot   string    `json:"repoRoot" yaml:"repoRoot"`
	Status     Status    `json:"status" yaml:"status"`
	StartedAt  time.Time `json:"startedAt" yaml:"startedAt"`
	DurationMs int64     `json:"durationMs" yaml:"durationMs"`
	Parser     string    `json:"parser,omitempty" yaml:"parser,omitempty"`
	Summary    Summary   `json:"summary" yaml:"summary"`

	// Violations holds module cycles first, then package cycles
	Violations []cycles.Finding    `json:"violations" yaml:"violations"`
	Suppressed []cycles.Finding    `json:"suppressed" yaml:"suppressed"`
	Issues     []modules.Issue     `json:"issues" yaml:"issues"`
	Unused     []PatternRef        `json:"unusedPatterns,omitempty" yaml:"unusedPatterns,omitempty"`
	Partial    []PartialRef        `json:"partialMatches,omitempty" yaml:"partialMatches,omitempty"`
	Modules    []ModuleResult      `json:"modules" yaml:"modules"`
	Stale      []baseline.Entry    `json:"staleBaseline,omitempty" yaml:"staleBaseline,omitempty"`
	Dangling   []depgraph.Dangling `json:"dangling,omitempty" yaml:"dangling,omitempty"`
}

// PartialRef is a pattern that selects only part of a package
type PartialRef struct {
	Module              string `json:"module" yaml:"module"`
	cycles.PartialMatch `yaml:",inline"`
}

// Failing returns the violations that fail the run: those not in the baseline
func (r *Result) Failing() []cycles.Finding {
	var out []cycles.Finding
	for _, f := range r.Violations {
		if !f.Baselined {
			out = append(out, f)
		}
	}
	return out
}

// Run executes a check. Build script parse failures abort the run with a
// BUILD_SCRIPT_INVALID error; cycles never produce an error, only a failing
// status.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	logger = logger.With("component", "check")

	res := &Result{
		RepoRoot:  opts.RepoRoot,
		StartedAt: time.Now().UTC(),
	}

	detected, err := modules.Load(ctx, opts.RepoRoot, cfg, logger)
	if err != nil {
		return nil, err
	}
	mods := detected.Modules
	res.Summary.Modules = len(mods)
	logger.Info("Loaded modules", "count", len(mods), "declared", detected.Declared)

	res.Issues = modules.Validate(mods)

	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = modules.DefaultScopeClasses(cfg.Check.IncludeTests || opts.IncludeTests)
	}
	g, err := depgraph.Build(mods, depgraph.Options{Scopes: scopes})
	if err != nil {
		return nil, mgerrors.Wrap(mgerrors.InternalError, err, "failed to build module graph")
	}
	res.Summary.Edges = len(g.Edges())
	res.Dangling = g.Dangling

	moduleCycles, err := g.Cycles()
	if err != nil {
		return nil, mgerrors.Wrap(mgerrors.InternalError, err, "failed to find module cycles")
	}
	for _, c := range moduleCycles {
		res.Violations = append(res.Violations, cycles.ModuleFinding(c, g))
	}
	res.Summary.ModuleCycles = len(moduleCycles)

	if cfg.Check.PackageCycles && !opts.SkipPackages {
		if err := checkPackages(ctx, opts, cfg, logger, mods, res); err != nil {
			return nil, err
		}
	}

	bl := opts.Baseline
	if bl == nil {
		if bl, err = baseline.Load(opts.RepoRoot); err != nil {
			return nil, err
		}
	}
	res.Summary.Baselined = bl.Mark(res.Violations)
	res.Stale = bl.Stale(res.Violations)

	res.finish(cfg)
	res.DurationMs = time.Since(res.StartedAt).Milliseconds()
	logger.Info("Check finished",
		"status", res.Status,
		"violations", res.Summary.Violations,
		"suppressed", res.Summary.Suppressed,
		"baselined", res.Summary.Baselined,
	)
	return res, nil
}

func checkPackages(ctx context.Context, opts Options, cfg *config.Config, logger *slog.Logger, mods []*modules.Module, res *Result) error {
	selected := mods
	if len(opts.Modules) > 0 {
		index := modules.Index(mods)
		selected = nil
		for _, name := range opts.Modules {
			m, ok := index[name]
			if !ok {
				return mgerrors.Errorf(mgerrors.ModuleNotFound, "module %s not found", name)
			}
			selected = append(selected, m)
		}
	}

	scanner := cycles.NewScanner(cycles.OptionsFromConfig(cfg), logger)
	scans, err := scanner.ScanAll(ctx, opts.RepoRoot, selected)
	if err != nil {
		return err
	}

	for i, scan := range scans {
		m := selected[i]
		res.Parser = scan.Parser

		ex, perr := cycles.CompileExclusions(m.ExcludePatterns)
		if perr != nil {
			// Already reported as a validation issue
			logger.Debug("Ignoring invalid exclusion patterns", "module", m.Name, "error", perr)
		}

		report, err := cycles.Check(scan, ex)
		if err != nil {
			return mgerrors.Wrap(mgerrors.InternalError, err, fmt.Sprintf("failed to check packages of %s", m.Name))
		}

		res.Violations = append(res.Violations, report.Violations...)
		res.Suppressed = append(res.Suppressed, report.Suppressed...)
		for _, p := range report.Exclusions.Unused {
			res.Unused = append(res.Unused, PatternRef{Module: m.Name, Pattern: p})
		}
		for _, p := range report.Exclusions.Partial {
			res.Partial = append(res.Partial, PartialRef{Module: m.Name, PartialMatch: p})
		}

		res.Summary.Packages += report.Packages
		res.Summary.Files += scan.Files
		res.Summary.PackageCycles += len(report.Violations) + len(report.Suppressed)
		res.Modules = append(res.Modules, ModuleResult{
			Module:     m.Name,
			Packages:   report.Packages,
			Files:      scan.Files,
			Skipped:    scan.Skipped,
			Patterns:   ex.Patterns(),
			Excluded:   report.Exclusions.ExcludedPackages(),
			Violations: len(report.Violations),
			Suppressed: len(report.Suppressed),
		})
	}
	return nil
}

// finish computes the summary and status
func (r *Result) finish(cfg *config.Config) {
	cycles.SortFindings(r.Violations)
	cycles.SortFindings(r.Suppressed)

	r.Summary.Violations = len(r.Violations)
	r.Summary.Suppressed = len(r.Suppressed)
	r.Summary.UnusedPatterns = len(r.Unused)

	for _, is := range r.Issues {
		if is.Severity == modules.SeverityError {
			r.Summary.Errors++
		} else {
			r.Summary.Warnings++
		}
	}

	blocking := r.Issues
	if !cfg.Check.FailOnInvalidRefs {
		blocking = nil
		for _, is := range r.Issues {
			if is.Kind != modules.IssueUnknownProject {
				blocking = append(blocking, is)
			}
		}
	}
	failed := len(r.Failing()) > 0 || modules.HasErrors(blocking)
	if cfg.Check.FailOnUnusedPatterns && len(r.Unused) > 0 {
		failed = true
	}

	r.Status = StatusPass
	if failed {
		r.Status = StatusFail
	}
}
