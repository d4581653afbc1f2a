// Package depgraph builds the module dependency graph of a build and answers
// questions about it: direct and transitive dependencies, paths, build order
// and cycles.
package depgraph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"

	"modgraph/internal/modules"
)

// EdgeInfo describes why one module depends on another
type EdgeInfo struct {
	// Scopes that declare the dependency, sorted and unique
	Scopes []modules.Scope `json:"scopes" yaml:"scopes"`

	// Lines of the declarations in the source module's build script
	Lines []int `json:"lines,omitempty" yaml:"lines,omitempty"`

	// TestFixtures is set when any declaration targets the test-fixtures variant
	TestFixtures bool `json:"testFixtures,omitempty" yaml:"testFixtures,omitempty"`
}

// TestOnly reports whether every declaring scope is a test scope
func (e EdgeInfo) TestOnly() bool {
	for _, s := range e.Scopes {
		if !s.IsTest() {
			return false
		}
	}
	return len(e.Scopes) > 0
}

// Edge is a module dependency
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
	EdgeInfo
}

// Dangling is a project reference to a module that does not exist
type Dangling struct {
	From   string        `json:"from" yaml:"from"`
	Target string        `json:"target" yaml:"target"`
	Scope  modules.Scope `json:"scope" yaml:"scope"`
	Line   int           `json:"line,omitempty" yaml:"line,omitempty"`
}

// Options controls which declarations become edges
type Options struct {
	// Scopes selects the scope classes that contribute edges.
	// Empty means modules.DefaultScopeClasses(false).
	Scopes []modules.ScopeClass
}

// Graph is a directed module graph. An edge A -> B means A depends on B.
type Graph struct {
	g       graph.Graph[string, string]
	adj     map[string]map[string]graph.Edge[string]
	pred    map[string]map[string]graph.Edge[string]
	modules map[string]*modules.Module
	names   []string

	// Dangling lists references to unknown modules; they produce no edge
	Dangling []Dangling

	// External counts library and coordinate declarations per module
	External map[string]int
}

// Build constructs the module graph. Test-fixtures self references are
// ignored; plain project self references become self loops.
func Build(mods []*modules.Module, opts Options) (*Graph, error) {
	classes := opts.Scopes
	if len(classes) == 0 {
		classes = modules.DefaultScopeClasses(false)
	}

	g := &Graph{
		g:        graph.New(graph.StringHash, graph.Directed()),
		modules:  make(map[string]*modules.Module, len(mods)),
		External: make(map[string]int),
	}

	for _, m := range mods {
		if _, dup := g.modules[m.Name]; dup {
			continue
		}
		if err := g.g.AddVertex(m.Name); err != nil {
			return nil, fmt.Errorf("failed to add module %s: %w", m.Name, err)
		}
		g.modules[m.Name] = m
		g.names = append(g.names, m.Name)
	}
	sort.Strings(g.names)

	for _, name := range g.names {
		m := g.modules[name]
		for _, d := range m.Dependencies {
			if d.Kind == modules.TargetLibrary || d.Kind == modules.TargetExternal {
				g.External[name]++
			}
		}
		for _, d := range m.ProjectDependencies(classes...) {
			if _, ok := g.modules[d.Target]; !ok {
				g.Dangling = append(g.Dangling, Dangling{From: name, Target: d.Target, Scope: d.Scope, Line: d.Line})
				continue
			}
			if d.Target == name && d.Kind == modules.TargetTestFixtures {
				continue
			}
			if err := g.addEdge(name, d); err != nil {
				return nil, err
			}
		}
	}

	var err error
	if g.adj, err = g.g.AdjacencyMap(); err != nil {
		return nil, err
	}
	if g.pred, err = g.g.PredecessorMap(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) addEdge(from string, d modules.Dependency) error {
	e, err := g.g.Edge(from, d.Target)
	if errors.Is(err, graph.ErrEdgeNotFound) {
		info := &EdgeInfo{}
		info.merge(d)
		return g.g.AddEdge(from, d.Target, graph.EdgeData(info))
	}
	if err != nil {
		return fmt.Errorf("failed to read edge %s -> %s: %w", from, d.Target, err)
	}
	e.Properties.Data.(*EdgeInfo).merge(d)
	return nil
}

func (e *EdgeInfo) merge(d modules.Dependency) {
	found := false
	for _, s := range e.Scopes {
		if s == d.Scope {
			found = true
			break
		}
	}
	if !found {
		e.Scopes = append(e.Scopes, d.Scope)
		sort.Slice(e.Scopes, func(i, j int) bool { return e.Scopes[i] < e.Scopes[j] })
	}
	if d.Line > 0 {
		e.Lines = append(e.Lines, d.Line)
		sort.Ints(e.Lines)
	}
	if d.Kind == modules.TargetTestFixtures {
		e.TestFixtures = true
	}
}

// Names returns the module names in sorted order
func (g *Graph) Names() []string {
	return append([]string(nil), g.names...)
}

// Module returns the module with the given name
func (g *Graph) Module(name string) (*modules.Module, bool) {
	m, ok := g.modules[name]
	return m, ok
}

// Has reports whether the module exists
func (g *Graph) Has(name string) bool {
	_, ok := g.modules[name]
	return ok
}

// Edge returns the edge from -> to
func (g *Graph) Edge(from, to string) (Edge, bool) {
	e, err := g.g.Edge(from, to)
	if err != nil {
		return Edge{}, false
	}
	return Edge{From: from, To: to, EdgeInfo: *e.Properties.Data.(*EdgeInfo)}, true
}

// Edges returns all edges sorted by source and target
func (g *Graph) Edges() []Edge {
	adj := g.adj
	var out []Edge
	for _, from := range g.names {
		for _, to := range sortedKeys(adj[from]) {
			out = append(out, Edge{From: from, To: to, EdgeInfo: *adj[from][to].Properties.Data.(*EdgeInfo)})
		}
	}
	return out
}

// Dependencies returns the direct dependencies of a module, sorted
func (g *Graph) Dependencies(name string) ([]Edge, error) {
	if !g.Has(name) {
		return nil, &NotFoundError{Name: name}
	}
	adj := g.adj
	var out []Edge
	for _, to := range sortedKeys(adj[name]) {
		out = append(out, Edge{From: name, To: to, EdgeInfo: *adj[name][to].Properties.Data.(*EdgeInfo)})
	}
	return out, nil
}

// Dependents returns the modules that depend directly on name, sorted
func (g *Graph) Dependents(name string) ([]Edge, error) {
	if !g.Has(name) {
		return nil, &NotFoundError{Name: name}
	}
	pred := g.pred
	var out []Edge
	for _, from := range sortedKeys(pred[name]) {
		out = append(out, Edge{From: from, To: name, EdgeInfo: *pred[name][from].Properties.Data.(*EdgeInfo)})
	}
	return out, nil
}

// Transitive returns every module reachable from name, sorted. With reverse
// it returns every module that reaches name.
func (g *Graph) Transitive(name string, reverse bool) ([]string, error) {
	if !g.Has(name) {
		return nil, &NotFoundError{Name: name}
	}

	target := g.g
	if reverse {
		rev, err := g.reversed()
		if err != nil {
			return nil, err
		}
		target = rev
	}

	var out []string
	err := graph.BFS(target, name, func(v string) bool {
		if v != name {
			out = append(out, v)
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Path returns a shortest dependency path from -> to, or nil if to is not
// reachable.
func (g *Graph) Path(from, to string) ([]string, error) {
	for _, n := range []string{from, to} {
		if !g.Has(n) {
			return nil, &NotFoundError{Name: n}
		}
	}
	p, err := graph.ShortestPath(g.g, from, to)
	if errors.Is(err, graph.ErrTargetNotReachable) {
		return nil, nil
	}
	return p, err
}

// BuildOrder returns the modules with dependencies before dependents. Ties
// are broken by name. A cyclic graph yields a *CycleError.
func (g *Graph) BuildOrder() ([]string, error) {
	rev, err := g.reversed()
	if err != nil {
		return nil, err
	}
	order, err := graph.StableTopologicalSort(rev, func(a, b string) bool { return a < b })
	if err != nil {
		cycles, cerr := g.Cycles()
		if cerr != nil {
			return nil, cerr
		}
		if len(cycles) > 0 {
			return nil, &CycleError{Cycles: cycles}
		}
		return nil, err
	}
	return order, nil
}

// Cycles returns the module cycles: strongly connected components with more
// than one module, and self loops.
func (g *Graph) Cycles() ([]Cycle, error) {
	return FindCycles(g.g)
}

// reversed returns a copy of the graph with every edge flipped
func (g *Graph) reversed() (graph.Graph[string, string], error) {
	rev := graph.New(graph.StringHash, graph.Directed())
	for _, n := range g.names {
		if err := rev.AddVertex(n); err != nil {
			return nil, err
		}
	}
	for from, tos := range g.adj {
		for to, e := range tos {
			if err := rev.AddEdge(to, from, graph.EdgeData(e.Properties.Data)); err != nil {
				return nil, err
			}
		}
	}
	return rev, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NotFoundError is returned for unknown module names
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module %s not found", e.Name)
}

// CycleError indicates that the graph contains cycles, preventing a build order.
type CycleError struct {
	Cycles []Cycle
}

func (e *CycleError) Error() string {
	if len(e.Cycles) == 0 {
		return "dependency cycle detected"
	}
	msg := fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycles[0].Path, " -> "))
	if n := len(e.Cycles) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}
