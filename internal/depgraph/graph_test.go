package depgraph

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"modgraph/internal/modules"
)

func dep(scope modules.Scope, target string, line int) modules.Dependency {
	return modules.Dependency{Scope: scope, Kind: modules.TargetProject, Target: target, Line: line}
}

func fixtures(scope modules.Scope, target string) modules.Dependency {
	return modules.Dependency{Scope: scope, Kind: modules.TargetTestFixtures, Target: target}
}

// modelCoreBuild mirrors a slice of a real multi-module build
func modelCoreBuild() []*modules.Module {
	return []*modules.Module{
		{Name: ":modelCore", Dependencies: []modules.Dependency{
			dep(modules.ScopeAPI, ":coreApi", 24),
			dep(modules.ScopeImplementation, ":baseServices", 26),
			dep(modules.ScopeImplementation, ":logging", 27),
			{Scope: modules.ScopeImplementation, Kind: modules.TargetLibrary, Target: "guava", Line: 35},
			{Scope: modules.ScopeImplementation, Kind: modules.TargetExternal, Target: "org.jetbrains.kotlin:kotlin-stdlib:1.4", Line: 32},
			fixtures(modules.ScopeTestFixturesAPI, ":core"),
			dep(modules.ScopeTestImplementation, ":native", 46),
			fixtures(modules.ScopeTestImplementation, ":coreApi"),
			dep(modules.ScopeIntegTestRuntimeOnly, ":apiMetadata", 53),
		}},
		{Name: ":coreApi", Dependencies: []modules.Dependency{dep(modules.ScopeAPI, ":baseServices", 3)}},
		{Name: ":baseServices"},
		{Name: ":logging", Dependencies: []modules.Dependency{dep(modules.ScopeImplementation, ":baseServices", 2)}},
		{Name: ":core", Dependencies: []modules.Dependency{dep(modules.ScopeImplementation, ":coreApi", 2)}},
		{Name: ":native"},
		{Name: ":apiMetadata"},
	}
}

func mustBuild(t *testing.T, mods []*modules.Module, opts Options) *Graph {
	t.Helper()
	g, err := Build(mods, opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return g
}

func targets(edges []Edge, from bool) []string {
	var out []string
	for _, e := range edges {
		if from {
			out = append(out, e.From)
		} else {
			out = append(out, e.To)
		}
	}
	return out
}

func TestBuild_ScopeFilter(t *testing.T) {
	tests := []struct {
		name   string
		scopes []modules.ScopeClass
		want   []string
	}{
		{"default", nil, []string{":baseServices", ":core", ":coreApi", ":logging"}},
		{"main only", []modules.ScopeClass{modules.ClassMain}, []string{":baseServices", ":coreApi", ":logging"}},
		{"all", modules.AllScopeClasses(), []string{":apiMetadata", ":baseServices", ":core", ":coreApi", ":logging", ":native"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustBuild(t, modelCoreBuild(), Options{Scopes: tt.scopes})
			edges, err := g.Dependencies(":modelCore")
			if err != nil {
				t.Fatalf("Dependencies failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, targets(edges, false)); diff != "" {
				t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuild_EdgeInfo(t *testing.T) {
	g := mustBuild(t, modelCoreBuild(), Options{Scopes: modules.AllScopeClasses()})

	e, ok := g.Edge(":modelCore", ":coreApi")
	if !ok {
		t.Fatal("expected edge :modelCore -> :coreApi")
	}
	want := EdgeInfo{
		Scopes:       []modules.Scope{modules.ScopeAPI, modules.ScopeTestImplementation},
		Lines:        []int{24},
		TestFixtures: true,
	}
	if diff := cmp.Diff(want, e.EdgeInfo); diff != "" {
		t.Errorf("EdgeInfo mismatch (-want +got):\n%s", diff)
	}

	if g.External[":modelCore"] != 2 {
		t.Errorf("External[:modelCore] = %d, want 2", g.External[":modelCore"])
	}
	if _, ok := g.Edge(":coreApi", ":modelCore"); ok {
		t.Error("unexpected reverse edge")
	}
}

func TestEdgeInfo_TestOnly(t *testing.T) {
	g := mustBuild(t, modelCoreBuild(), Options{Scopes: modules.AllScopeClasses()})

	tests := []struct {
		to   string
		want bool
	}{
		{":native", true},
		{":coreApi", false},
		{":logging", false},
	}
	for _, tt := range tests {
		e, ok := g.Edge(":modelCore", tt.to)
		if !ok {
			t.Fatalf("missing edge :modelCore -> %s", tt.to)
		}
		if got := e.TestOnly(); got != tt.want {
			t.Errorf(":modelCore -> %s TestOnly() = %v, want %v (scopes %v)", tt.to, got, tt.want, e.Scopes)
		}
	}
}

func TestBuild_DanglingAndSelfReferences(t *testing.T) {
	mods := []*modules.Module{
		{Name: ":a", Dependencies: []modules.Dependency{
			dep(modules.ScopeImplementation, ":missing", 3),
			fixtures(modules.ScopeTestFixturesImplementation, ":a"),
		}},
	}
	g := mustBuild(t, mods, Options{})

	want := []Dangling{{From: ":a", Target: ":missing", Scope: modules.ScopeImplementation, Line: 3}}
	if diff := cmp.Diff(want, g.Dangling); diff != "" {
		t.Errorf("Dangling mismatch (-want +got):\n%s", diff)
	}
	if len(g.Edges()) != 0 {
		t.Errorf("Edges() = %v, want none", g.Edges())
	}
	cycles, err := g.Cycles()
	if err != nil {
		t.Fatal(err)
	}
	if len(cycles) != 0 {
		t.Errorf("test-fixtures self reference should not be a cycle: %v", cycles)
	}
}

func TestGraph_Dependents(t *testing.T) {
	g := mustBuild(t, modelCoreBuild(), Options{})

	edges, err := g.Dependents(":baseServices")
	if err != nil {
		t.Fatalf("Dependents failed: %v", err)
	}
	if diff := cmp.Diff([]string{":coreApi", ":logging", ":modelCore"}, targets(edges, true)); diff != "" {
		t.Errorf("dependents mismatch (-want +got):\n%s", diff)
	}

	if _, err := g.Dependents(":nope"); err == nil {
		t.Error("expected error for unknown module")
	} else {
		var nf *NotFoundError
		if !errors.As(err, &nf) || nf.Name != ":nope" {
			t.Errorf("err = %v, want NotFoundError", err)
		}
	}
}

func TestGraph_Transitive(t *testing.T) {
	g := mustBuild(t, modelCoreBuild(), Options{})

	got, err := g.Transitive(":core", false)
	if err != nil {
		t.Fatalf("Transitive failed: %v", err)
	}
	if diff := cmp.Diff([]string{":baseServices", ":coreApi"}, got); diff != "" {
		t.Errorf("transitive mismatch (-want +got):\n%s", diff)
	}

	got, err = g.Transitive(":coreApi", true)
	if err != nil {
		t.Fatalf("Transitive(reverse) failed: %v", err)
	}
	if diff := cmp.Diff([]string{":core", ":modelCore"}, got); diff != "" {
		t.Errorf("reverse transitive mismatch (-want +got):\n%s", diff)
	}
}

func TestGraph_Path(t *testing.T) {
	g := mustBuild(t, modelCoreBuild(), Options{})

	path, err := g.Path(":core", ":baseServices")
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if diff := cmp.Diff([]string{":core", ":coreApi", ":baseServices"}, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}

	path, err = g.Path(":baseServices", ":core")
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if path != nil {
		t.Errorf("expected no path, got %v", path)
	}

	if _, err := g.Path(":core", ":missing"); err == nil {
		t.Error("expected error for unknown module")
	}
}

func TestGraph_BuildOrder(t *testing.T) {
	g := mustBuild(t, modelCoreBuild(), Options{})

	order, err := g.BuildOrder()
	if err != nil {
		t.Fatalf("BuildOrder failed: %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	if len(order) != len(g.Names()) {
		t.Fatalf("order has %d modules, want %d", len(order), len(g.Names()))
	}
	for _, e := range g.Edges() {
		if pos[e.To] > pos[e.From] {
			t.Errorf("%s must come before %s in %v", e.To, e.From, order)
		}
	}

	// Roots come first in name order
	want := []string{":apiMetadata", ":baseServices", ":native"}
	if diff := cmp.Diff(want, order[:3]); diff != "" {
		t.Errorf("first modules mismatch (-want +got):\n%s", diff)
	}
}

func TestGraph_BuildOrderCycle(t *testing.T) {
	mods := []*modules.Module{
		{Name: ":a", Dependencies: []modules.Dependency{dep(modules.ScopeAPI, ":b", 1)}},
		{Name: ":b", Dependencies: []modules.Dependency{dep(modules.ScopeImplementation, ":c", 1)}},
		{Name: ":c", Dependencies: []modules.Dependency{dep(modules.ScopeImplementation, ":a", 1)}},
		{Name: ":d", Dependencies: []modules.Dependency{dep(modules.ScopeImplementation, ":a", 1)}},
	}
	g := mustBuild(t, mods, Options{})

	_, err := g.BuildOrder()
	var cerr *CycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *CycleError", err)
	}
	if len(cerr.Cycles) != 1 {
		t.Fatalf("got %d cycles, want 1", len(cerr.Cycles))
	}
	if diff := cmp.Diff([]string{":a", ":b", ":c", ":a"}, cerr.Cycles[0].Path); diff != "" {
		t.Errorf("cycle path mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(err.Error(), ":a -> :b -> :c -> :a") {
		t.Errorf("error message %q should show the cycle", err)
	}
}

func TestGraph_TestScopesCreateCycleOnlyWhenIncluded(t *testing.T) {
	mods := []*modules.Module{
		{Name: ":core", Dependencies: []modules.Dependency{dep(modules.ScopeTestImplementation, ":testing", 5)}},
		{Name: ":testing", Dependencies: []modules.Dependency{dep(modules.ScopeImplementation, ":core", 2)}},
	}

	g := mustBuild(t, mods, Options{})
	cycles, err := g.Cycles()
	if err != nil {
		t.Fatal(err)
	}
	if len(cycles) != 0 {
		t.Errorf("default scopes should not see a cycle: %v", cycles)
	}

	g = mustBuild(t, mods, Options{Scopes: modules.DefaultScopeClasses(true)})
	cycles, err = g.Cycles()
	if err != nil {
		t.Fatal(err)
	}
	if len(cycles) != 1 || cycles[0].Key() != ":core,:testing" {
		t.Errorf("cycles = %v, want :core <-> :testing", cycles)
	}
}
