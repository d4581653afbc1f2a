package main

import (
	"github.com/spf13/cobra"

	"modgraph/internal/version"
)

var (
	// repoFlag is the repository root; defaults to the working directory
	repoFlag  string
	verbosity int
	quietFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "modgraph",
	Short: "modgraph - module dependency graph and cycle checker",
	Long: `modgraph reads the Kotlin DSL build scripts of a multi-module build, builds the
module dependency graph from the declared dependencies and checks modules and
packages for dependency cycles. Package cycles can be excluded per module with
classycle exclusion patterns; exclusions never hide a cycle between packages
they do not match.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("modgraph version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&repoFlag, "repo", "C", "", "Repository root (default: current directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all log output")
}
