package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"modgraph/internal/config"
	mgerrors "modgraph/internal/errors"
	"modgraph/internal/modules"
	"modgraph/internal/paths"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize modgraph configuration",
	Long: `Creates .modgraph/config.json with the default configuration and an example
MODULES.toml in the repository root.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root := repoFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return mgerrors.Wrap(mgerrors.InternalError, err, "failed to get current directory")
		}
		root = wd
	}
	out := cmd.OutOrStdout()

	configPath := paths.GetConfigPath(root)
	if _, err := os.Stat(configPath); err == nil && !initForce {
		// Already initialized is success
		fmt.Fprintln(out, "modgraph already initialized.")
		fmt.Fprintf(out, "Configuration at: %s\n", configPath)
		fmt.Fprintln(out, "\nRun 'modgraph init --force' to reinitialize.")
		return nil
	}

	if err := config.DefaultConfig().Save(root); err != nil {
		return mgerrors.Wrap(mgerrors.InternalError, err, "failed to write config file")
	}
	fmt.Fprintf(out, "Configuration written to: %s\n", configPath)

	declPath := filepath.Join(root, modules.ModulesDeclarationFile)
	if _, err := os.Stat(declPath); os.IsNotExist(err) {
		if err := os.WriteFile(declPath, []byte(modules.ExampleDeclarations), 0644); err != nil {
			return mgerrors.Wrap(mgerrors.InternalError, err, "failed to write "+modules.ModulesDeclarationFile)
		}
		fmt.Fprintf(out, "Example declarations written to: %s\n", declPath)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'modgraph modules' to see the discovered modules")
	fmt.Fprintln(out, "  2. Run 'modgraph check' to look for dependency cycles")
	return nil
}
