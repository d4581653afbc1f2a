package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"modgraph/internal/config"
	"modgraph/internal/depgraph"
	mgerrors "modgraph/internal/errors"
	"modgraph/internal/modules"
	"modgraph/internal/report"
	"modgraph/internal/slogutil"
)

// Exit codes
const (
	exitOK         = 0
	exitViolations = 1
	exitError      = 2
)

// errCheckFailed signals a completed check that found violations
var errCheckFailed = stderrors.New("check failed")

// exitCode maps a command error to the process exit code
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case stderrors.Is(err, errCheckFailed):
		return exitViolations
	default:
		return exitError
	}
}

// printError writes err and its suggested fixes. A failed check has already
// printed its report.
func printError(w io.Writer, err error) {
	if stderrors.Is(err, errCheckFailed) {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)

	var me *mgerrors.ModgraphError
	if stderrors.As(err, &me) && len(me.SuggestedFixes) > 0 {
		fmt.Fprintln(w, "Suggested fixes:")
		for _, fix := range me.SuggestedFixes {
			fmt.Fprintf(w, "  - %s\n", fix.Description)
			if fix.Command != "" {
				fmt.Fprintf(w, "    $ %s\n", fix.Command)
			}
		}
	}
}

// cliEnv is what every command needs: repository, config and logger
type cliEnv struct {
	repoRoot string
	cfg      *config.Config
	logger   *slog.Logger
	closer   io.Closer
}

func (e *cliEnv) Close() {
	_ = e.closer.Close()
}

// setup resolves the repository root, loads and validates the config and
// builds the logger
func setup(cmd *cobra.Command) (*cliEnv, error) {
	root := repoFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, mgerrors.Wrap(mgerrors.InternalError, err, "failed to get current directory")
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, mgerrors.Wrap(mgerrors.InternalError, err, "failed to resolve repository root")
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, mgerrors.Wrap(mgerrors.ConfigInvalid, err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, mgerrors.Wrap(mgerrors.ConfigInvalid, err, "invalid configuration")
	}

	logger, closer := slogutil.NewCLILogger(root, cfg, slogutil.Options{
		Verbosity: verbosity,
		Quiet:     quietFlag,
		Stderr:    cmd.ErrOrStderr(),
	})
	return &cliEnv{repoRoot: root, cfg: cfg, logger: logger, closer: closer}, nil
}

// resolveScopes picks the scope classes of the module graph from --scopes,
// --include-tests and the config
func resolveScopes(cfg *config.Config, scopes string, includeTests bool) ([]modules.ScopeClass, error) {
	if scopes != "" {
		classes, ok := modules.ParseScopeClasses(scopes)
		if !ok || len(classes) == 0 {
			return nil, fmt.Errorf("invalid --scopes %q (use main, test-fixtures, test, custom or all)", scopes)
		}
		return classes, nil
	}
	return modules.DefaultScopeClasses(cfg.Check.IncludeTests || includeTests), nil
}

// loadGraph discovers the modules and builds the module graph
func loadGraph(ctx context.Context, e *cliEnv, scopes []modules.ScopeClass) (*depgraph.Graph, error) {
	detected, err := modules.Load(ctx, e.repoRoot, e.cfg, e.logger)
	if err != nil {
		return nil, err
	}
	g, err := depgraph.Build(detected.Modules, depgraph.Options{Scopes: scopes})
	if err != nil {
		return nil, mgerrors.Wrap(mgerrors.InternalError, err, "failed to build module graph")
	}
	return g, nil
}

// moduleError converts unknown module names into a MODULE_NOT_FOUND error
func moduleError(err error) error {
	var nf *depgraph.NotFoundError
	if stderrors.As(err, &nf) {
		return mgerrors.Errorf(mgerrors.ModuleNotFound, "module %s not found", nf.Name)
	}
	return err
}

// write renders v in the requested format to the command's output
func write(cmd *cobra.Command, v interface{}, format string) error {
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	out, err := report.Render(v, f)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
