package cycles

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"

	"modgraph/internal/depgraph"
)

// FindingKind distinguishes module and package cycles
type FindingKind string

const (
	KindModuleCycle  FindingKind = "module-cycle"
	KindPackageCycle FindingKind = "package-cycle"
)

// Finding is one cycle reported by a check
type Finding struct {
	Kind FindingKind `json:"kind" yaml:"kind"`

	// Module owning a package cycle; empty for module cycles
	Module string `json:"module,omitempty" yaml:"module,omitempty"`

	Members []string `json:"members" yaml:"members"`
	Path    []string `json:"path" yaml:"path"`

	// ExcludedMembers are members removed from the check by a pattern
	ExcludedMembers []string `json:"excludedMembers,omitempty" yaml:"excludedMembers,omitempty"`

	// Patterns that exclude ExcludedMembers, in declaration order
	Patterns []string `json:"patterns,omitempty" yaml:"patterns,omitempty"`

	// ViaExcluded marks a violation whose remaining members are connected
	// only through excluded packages
	ViaExcluded bool `json:"viaExcluded,omitempty" yaml:"viaExcluded,omitempty"`

	Suppressed bool `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
	Baselined  bool `json:"baselined,omitempty" yaml:"baselined,omitempty"`

	// Evidence holds the declaration or import behind each step of Path
	Evidence []EdgeRef `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// Fingerprint identifies the finding across runs. It depends on the kind,
// module and member set, not on the example path.
func (f Finding) Fingerprint() string {
	canonical := fmt.Sprintf("%s|%s|%s", f.Kind, f.Module, strings.Join(f.Members, ","))
	hash := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(hash[:])[:16]
}

// Title is a one-line description of the finding
func (f Finding) Title() string {
	switch f.Kind {
	case KindModuleCycle:
		return fmt.Sprintf("module cycle: %s", strings.Join(f.Path, " -> "))
	default:
		title := fmt.Sprintf("package cycle in %s: %s", f.Module, strings.Join(f.Path, " -> "))
		if f.ViaExcluded {
			title += " (via excluded packages)"
		}
		return title
	}
}

// Report is the package cycle check of one module
type Report struct {
	Module     string      `json:"module" yaml:"module"`
	Packages   int         `json:"packages" yaml:"packages"`
	Violations []Finding   `json:"violations" yaml:"violations"`
	Suppressed []Finding   `json:"suppressed" yaml:"suppressed"`
	Exclusions *Evaluation `json:"exclusions" yaml:"exclusions"`
}

// PackageGraph returns the package graph of a scan. Every declared package
// is a vertex.
func PackageGraph(scan *ModuleScan) (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed())
	for _, p := range scan.PackageNames() {
		if err := g.AddVertex(p); err != nil {
			return nil, err
		}
	}
	for _, e := range scan.EdgeList() {
		if err := g.AddEdge(e.From, e.To); err != nil {
			return nil, fmt.Errorf("failed to add package edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// Check finds the package cycles of a scanned module and applies its
// exclusions. A cycle with two or more packages left after exclusion is a
// violation, even when those packages only reach each other through excluded
// ones; any other cycle is suppressed.
func Check(scan *ModuleScan, ex *Exclusions) (*Report, error) {
	g, err := PackageGraph(scan)
	if err != nil {
		return nil, err
	}
	found, err := depgraph.FindCycles(g)
	if err != nil {
		return nil, err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	ev := ex.Evaluate(scan.Packages)
	report := &Report{
		Module:     scan.Module,
		Packages:   len(scan.Packages),
		Exclusions: ev,
	}

	for _, c := range found {
		f := Finding{
			Kind:    KindPackageCycle,
			Module:  scan.Module,
			Members: c.Members,
			Path:    c.Path,
		}

		var kept []string
		for _, m := range c.Members {
			if ev.IsExcluded(m) {
				f.ExcludedMembers = append(f.ExcludedMembers, m)
			} else {
				kept = append(kept, m)
			}
		}
		f.Patterns = patternsFor(ex, ev, f.ExcludedMembers)

		if len(kept) < 2 {
			f.Suppressed = true
			f.Evidence = evidence(scan, f.Path)
			report.Suppressed = append(report.Suppressed, f)
			continue
		}

		if len(f.ExcludedMembers) > 0 {
			if connected(adj, kept) {
				f.Path = depgraph.ExamplePath(adj, kept)
			} else {
				f.ViaExcluded = true
				f.Path = viaPath(adj, c.Members, kept[0], kept[1])
			}
		}
		f.Evidence = evidence(scan, f.Path)
		report.Violations = append(report.Violations, f)
	}

	SortFindings(report.Violations)
	SortFindings(report.Suppressed)
	return report, nil
}

// connected reports whether members form one strongly connected component of
// the subgraph induced by them
func connected(adj map[string]map[string]graph.Edge[string], members []string) bool {
	reach := func(start string, forward bool) int {
		seen := map[string]bool{start: true}
		queue := []string{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, m := range members {
				if seen[m] {
					continue
				}
				var ok bool
				if forward {
					_, ok = adj[cur][m]
				} else {
					_, ok = adj[m][cur]
				}
				if ok {
					seen[m] = true
					queue = append(queue, m)
				}
			}
		}
		return len(seen)
	}
	return reach(members[0], true) == len(members) && reach(members[0], false) == len(members)
}

// viaPath is a cycle from a to b and back inside the component, so that it
// shows two packages left after exclusion reaching each other
func viaPath(adj map[string]map[string]graph.Edge[string], members []string, a, b string) []string {
	there := depgraph.Route(adj, members, a, b)
	back := depgraph.Route(adj, members, b, a)
	if there == nil || back == nil {
		return depgraph.ExamplePath(adj, members)
	}
	return append(there, back[1:]...)
}

func patternsFor(ex *Exclusions, ev *Evaluation, excluded []string) []string {
	used := make(map[string]bool)
	for _, m := range excluded {
		used[ev.Excluded[m]] = true
	}
	var out []string
	for _, p := range ex.Patterns() {
		if used[p] {
			out = append(out, p)
		}
	}
	return out
}

func evidence(scan *ModuleScan, path []string) []EdgeRef {
	var out []EdgeRef
	for i := 0; i+1 < len(path); i++ {
		if ref, ok := scan.Edges[path[i]][path[i+1]]; ok {
			out = append(out, ref)
		}
	}
	return out
}

// SortFindings orders findings by kind, module, size (largest first) and
// members
func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if len(a.Members) != len(b.Members) {
			return len(a.Members) > len(b.Members)
		}
		return strings.Join(a.Members, ",") < strings.Join(b.Members, ",")
	})
}

// ModuleFinding converts a module cycle into a finding. Module cycles are
// never excluded.
func ModuleFinding(c depgraph.Cycle, g *depgraph.Graph) Finding {
	f := Finding{
		Kind:    KindModuleCycle,
		Members: c.Members,
		Path:    c.Path,
	}
	for i := 0; i+1 < len(c.Path); i++ {
		e, ok := g.Edge(c.Path[i], c.Path[i+1])
		if !ok {
			continue
		}
		ref := EdgeRef{From: e.From, To: e.To}
		if m, ok := g.Module(e.From); ok {
			ref.File = m.BuildFile
		}
		if len(e.Lines) > 0 {
			ref.Line = e.Lines[0]
		}
		f.Evidence = append(f.Evidence, ref)
	}
	return f
}
