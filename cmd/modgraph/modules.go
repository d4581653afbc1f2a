package main

import (
	"github.com/spf13/cobra"

	"modgraph/internal/report"
)

var (
	modulesFormat string
	modulesScopes string
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the modules of the build",
	Long: `List every module with its plugins, dependency counts per scope, exclusion
patterns and application entry point.

Examples:
  modgraph modules
  modgraph modules --format=json`,
	Args: cobra.NoArgs,
	RunE: runModules,
}

func init() {
	modulesCmd.Flags().StringVar(&modulesFormat, "format", "human", "Output format (json, yaml, human)")
	modulesCmd.Flags().StringVar(&modulesScopes, "scopes", "all", "Scope classes counted as module edges")
	rootCmd.AddCommand(modulesCmd)
}

func runModules(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	scopes, err := resolveScopes(e.cfg, modulesScopes, false)
	if err != nil {
		return err
	}
	g, err := loadGraph(cmd.Context(), e, scopes)
	if err != nil {
		return err
	}
	return write(cmd, report.NewModulesView(g), modulesFormat)
}
