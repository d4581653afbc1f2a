package main

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"modgraph/internal/depgraph"
	mgerrors "modgraph/internal/errors"
	"modgraph/internal/report"
)

var (
	depsFormat       string
	depsScopes       string
	depsIncludeTests bool
	depsReverse      bool
	depsTransitive   bool
)

var depsCmd = &cobra.Command{
	Use:   "deps <module>",
	Short: "Show the dependencies of a module",
	Long: `Show what a module depends on, or with --reverse what depends on it.

Examples:
  modgraph deps :modelCore
  modgraph deps :modelCore --reverse --transitive
  modgraph deps :modelCore --scopes=main`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

var pathCmd = &cobra.Command{
	Use:   "path <from> <to>",
	Short: "Show a shortest dependency path between two modules",
	Args:  cobra.ExactArgs(2),
	RunE:  runPath,
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print the modules in build order",
	Long: `Print the modules with every dependency before its dependents. Modules that
do not depend on each other are ordered by name. Fails when the module graph
has a cycle.`,
	Args: cobra.NoArgs,
	RunE: runOrder,
}

func init() {
	for _, c := range []*cobra.Command{depsCmd, pathCmd, orderCmd} {
		c.Flags().StringVar(&depsFormat, "format", "human", "Output format (json, yaml, human)")
		c.Flags().StringVar(&depsScopes, "scopes", "", "Scope classes that form edges: main, test-fixtures, test, custom, all")
		c.Flags().BoolVar(&depsIncludeTests, "include-tests", false, "Include test scopes")
	}
	depsCmd.Flags().BoolVar(&depsReverse, "reverse", false, "Show dependents instead of dependencies")
	depsCmd.Flags().BoolVar(&depsTransitive, "transitive", false, "Follow dependencies transitively")

	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(orderCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	scopes, err := resolveScopes(e.cfg, depsScopes, depsIncludeTests)
	if err != nil {
		return err
	}
	g, err := loadGraph(cmd.Context(), e, scopes)
	if err != nil {
		return err
	}

	view := &report.DepsView{
		Module:     args[0],
		Reverse:    depsReverse,
		Transitive: depsTransitive,
		Scopes:     scopes,
	}
	switch {
	case depsTransitive:
		view.Modules, err = g.Transitive(args[0], depsReverse)
	case depsReverse:
		view.Edges, err = g.Dependents(args[0])
	default:
		view.Edges, err = g.Dependencies(args[0])
	}
	if err != nil {
		return moduleError(err)
	}
	return write(cmd, view, depsFormat)
}

// PathResponse is the answer of the path command
type PathResponse struct {
	From string   `json:"from" yaml:"from"`
	To   string   `json:"to" yaml:"to"`
	Path []string `json:"path" yaml:"path"`
}

func runPath(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	scopes, err := resolveScopes(e.cfg, depsScopes, depsIncludeTests)
	if err != nil {
		return err
	}
	g, err := loadGraph(cmd.Context(), e, scopes)
	if err != nil {
		return err
	}

	p, err := g.Path(args[0], args[1])
	if err != nil {
		return moduleError(err)
	}
	if depsFormat == "human" {
		if p == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s does not depend on %s\n", args[0], args[1])
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(p, " -> "))
		return nil
	}
	return write(cmd, &PathResponse{From: args[0], To: args[1], Path: p}, depsFormat)
}

// OrderResponse is the answer of the order command
type OrderResponse struct {
	Order []string `json:"order" yaml:"order"`
}

func runOrder(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	scopes, err := resolveScopes(e.cfg, depsScopes, depsIncludeTests)
	if err != nil {
		return err
	}
	g, err := loadGraph(cmd.Context(), e, scopes)
	if err != nil {
		return err
	}

	order, err := g.BuildOrder()
	if err != nil {
		var ce *depgraph.CycleError
		if stderrors.As(err, &ce) {
			return mgerrors.Wrap(mgerrors.ModuleCycle, err, "no build order exists")
		}
		return err
	}
	if depsFormat == "human" {
		for i, name := range order {
			fmt.Fprintf(cmd.OutOrStdout(), "%3d. %s\n", i+1, name)
		}
		return nil
	}
	return write(cmd, &OrderResponse{Order: order}, depsFormat)
}
