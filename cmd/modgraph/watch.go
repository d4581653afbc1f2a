package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"modgraph/internal/report"
	"modgraph/internal/watcher"
)

var watchFormat string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the check when build scripts or sources change",
	Long: `Run a check, then watch the repository and run it again whenever a build
script, MODULES.toml or a Java or Kotlin source changes. Changes are debounced
(watch.debounceMs); runs never overlap, and changes made during a run
trigger one more run after it. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFormat, "format", "human", "Output format (json, yaml, human)")
	watchCmd.Flags().BoolVar(&checkIncludeTests, "include-tests", false, "Include test scopes in the module graph")
	watchCmd.Flags().BoolVar(&checkNoHistory, "no-history", false, "Do not record runs in the history database")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(watchFormat)
	if err != nil {
		return err
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	// A failing first run is reported but does not stop watching
	if _, err := checkOnce(ctx, e, out, format); err != nil {
		printError(cmd.ErrOrStderr(), err)
	}

	w, err := watcher.New(e.repoRoot, watcher.ConfigFrom(e.cfg.Watch), e.logger, func(ctx context.Context, events []watcher.Event) {
		changed := make([]string, len(events))
		for i, ev := range events {
			changed[i] = ev.Path
		}
		fmt.Fprintf(out, "\nChanged: %s\n", strings.Join(changed, ", "))
		if _, err := checkOnce(ctx, e, out, format); err != nil {
			printError(cmd.ErrOrStderr(), err)
		}
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
