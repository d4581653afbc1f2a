package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"modgraph/internal/cycles"
	"modgraph/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		fmt.Fprintf(cmd.OutOrStdout(), "Source parser: %s\n", cycles.ParserName)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
