package main

import (
	"time"

	"github.com/spf13/cobra"

	"modgraph/internal/report"
	"modgraph/internal/storage"
)

var (
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded check runs",
	Long: `List the check runs recorded in .modgraph/modgraph.db, newest first.

Examples:
  modgraph history --limit=5
  modgraph history show 3f2a9c1e`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the result of a recorded run",
	Long: `Show the full result of a recorded run and when each of its violations
was first recorded. Any unique prefix of the run id is accepted.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyFormat, "format", "human", "Output format (json, yaml, human)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list")

	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func openRuns(e *cliEnv) (*storage.DB, *storage.RunRepository, error) {
	db, err := storage.Open(e.repoRoot, e.logger)
	if err != nil {
		return nil, nil, err
	}
	return db, storage.NewRunRepository(db, e.cfg.Storage.CompressLv), nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	db, runs, err := openRuns(e)
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := runs.List(historyLimit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*storage.Run{}
	}
	return write(cmd, &report.HistoryView{Runs: list}, historyFormat)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	db, runs, err := openRuns(e)
	if err != nil {
		return err
	}
	defer db.Close()

	run, res, err := runs.Get(args[0])
	if err != nil {
		return err
	}
	view := &report.RunView{Run: run, Result: res, FirstSeen: make(map[string]time.Time)}
	for _, f := range res.Violations {
		fp := f.Fingerprint()
		seen, err := runs.FirstSeen(fp)
		if err != nil {
			return err
		}
		if !seen.IsZero() {
			view.FirstSeen[fp] = seen
		}
	}
	return write(cmd, view, historyFormat)
}
