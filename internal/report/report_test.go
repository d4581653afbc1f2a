package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"modgraph/internal/check"
	"modgraph/internal/cycles"
	"modgraph/internal/depgraph"
	"modgraph/internal/modules"
)

func sampleResult() *check.Result {
	return &check.Result{
		RepoRoot:   "/repo",
		Status:     check.StatusFail,
		DurationMs: 12,
		Parser:     "regex",
		Summary: check.Summary{
			Modules:       2,
			Edges:         2,
			Packages:      3,
			Files:         4,
			ModuleCycles:  1,
			PackageCycles: 1,
			Violations:    1,
			Suppressed:    1,
		},
		Violations: []cycles.Finding{
			{
				Kind:    cycles.KindModuleCycle,
				Members: []string{":a", ":b"},
				Path:    []string{":a", ":b", ":a"},
				Evidence: []cycles.EdgeRef{
					{From: ":a", To: ":b", File: "a/build.gradle.kts", Line: 4},
					{From: ":b", To: ":a", File: "b/build.gradle.kts", Line: 6},
				},
			},
		},
		Suppressed: []cycles.Finding{
			{
				Kind:            cycles.KindPackageCycle,
				Module:          ":a",
				Members:         []string{"org.a", "org.a.internal"},
				Path:            []string{"org.a", "org.a.internal", "org.a"},
				ExcludedMembers: []string{"org.a.internal"},
				Patterns:        []string{"org/a/internal/**"},
				Suppressed:      true,
			},
		},
		Issues: []modules.Issue{
			{
				Kind:     modules.IssueUnknownProject,
				Severity: modules.SeverityError,
				Module:   ":b",
				File:     "b/build.gradle.kts",
				Line:     9,
				Message:  `project(":missing") is not a module of the build`,
			},
		},
		Unused: []check.PatternRef{{Module: ":b", Pattern: "org/b/gone/**"}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"human", FormatHuman, false},
		{"sarif", FormatSARIF, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender_UnsupportedFormat(t *testing.T) {
	_, err := Render(map[string]string{"key": "value"}, "xml")
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func TestRender_SARIFRequiresCheckResult(t *testing.T) {
	if _, err := Render(&ModulesView{}, FormatSARIF); err == nil {
		t.Error("expected error rendering a module list as SARIF")
	}
}

func TestRender_JSON(t *testing.T) {
	out, err := Render(sampleResult(), FormatJSON)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var decoded check.Result
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if diff := cmp.Diff(sampleResult().Summary, decoded.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, `"kind": "module-cycle"`) {
		t.Error("JSON output missing finding kind")
	}
}

func TestRender_YAML(t *testing.T) {
	out, err := Render(sampleResult(), FormatYAML)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := yaml.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if decoded["status"] != "fail" {
		t.Errorf("status = %v, want fail", decoded["status"])
	}
	if !strings.Contains(out, "- org/a/internal/**") {
		t.Errorf("YAML output missing pattern list:\n%s", out)
	}
}

func TestRender_HumanCheck(t *testing.T) {
	out, err := Render(sampleResult(), FormatHuman)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	for _, want := range []string{
		"modgraph check: ✗ FAIL",
		"Modules: 2, edges: 2, packages: 3, files: 4 (parser: regex)",
		"✗ module cycle: :a -> :b -> :a",
		":a -> :b  a/build.gradle.kts:4",
		"package cycle in :a: org.a -> org.a.internal -> org.a",
		"Excluded by: org/a/internal/**",
		`error: b/build.gradle.kts:9: project(":missing") is not a module of the build`,
		"! :b org/b/gone/**",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("human output missing %q\n%s", want, out)
		}
	}
}

func TestRender_HumanExclusions(t *testing.T) {
	view := &ExclusionsView{
		Module:   ":core",
		Patterns: []string{"org/core/internal/**", "org/core/gone/*"},
		Invalid:  []string{"org/[core"},
		Packages: 3,
		Evaluation: &cycles.Evaluation{
			Matches: map[string][]string{"org/core/internal/**": {"org.core.internal", "org.core.internal.impl"}},
			Unused:  []string{"org/core/gone/*"},
			Partial: []cycles.PartialMatch{{Pattern: "org/core/Api*", Package: "org.core", Matched: 1, Total: 2}},
		},
	}
	out, err := Render(view, FormatHuman)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{
		"✓ org/core/internal/**: 2 packages",
		"    org.core.internal.impl",
		"! org/core/gone/*: matches nothing",
		"selects 1 of 2 classes of org.core",
		`✗ "org/[core": invalid pattern`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("human output missing %q\n%s", want, out)
		}
	}
}

func TestRender_HumanModulesAndDeps(t *testing.T) {
	mods := []*modules.Module{
		{Name: ":app", Dir: "subprojects/app", Dependencies: []modules.Dependency{
			{Scope: modules.ScopeImplementation, Kind: modules.TargetProject, Target: ":core", Line: 2},
			{Scope: modules.ScopeTestImplementation, Kind: modules.TargetProject, Target: ":testing", Line: 3},
		}},
		{Name: ":core", Dir: "subprojects/core", Plugins: []string{modules.ClassyclePlugin}, ExcludePatterns: []string{"org/core/internal/**"}},
		{Name: ":testing", Dir: "subprojects/testing", ExcludePatterns: []string{"org/testing/**"}},
	}
	g, err := depgraph.Build(mods, depgraph.Options{Scopes: modules.AllScopeClasses()})
	if err != nil {
		t.Fatal(err)
	}

	view := NewModulesView(g)
	classycle := map[string]bool{}
	for _, m := range view.Modules {
		classycle[m.Name] = m.Classycle
	}
	if diff := cmp.Diff(map[string]bool{":app": false, ":core": true, ":testing": false}, classycle); diff != "" {
		t.Errorf("classycle flags mismatch (-want +got):\n%s", diff)
	}
	out, err := Render(view, FormatHuman)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(out, "is not applied"); got != 1 {
		t.Errorf("expected one missing-plugin hint (for :testing), got %d:\n%s", got, out)
	}

	edges, err := g.Dependencies(":app")
	if err != nil {
		t.Fatal(err)
	}
	out, err = Render(&DepsView{Module: ":app", Edges: edges}, FormatHuman)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{":core (implementation)\n", ":testing (testImplementation) [test only]\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("deps output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSARIF(t *testing.T) {
	res := sampleResult()
	res.Violations[0].Baselined = true

	out, err := renderSARIF(res)
	if err != nil {
		t.Fatalf("renderSARIF failed: %v", err)
	}

	var sarif SARIFReport
	if err := json.Unmarshal([]byte(out), &sarif); err != nil {
		t.Fatalf("Failed to parse SARIF output: %v", err)
	}
	if sarif.Version != "2.1.0" {
		t.Errorf("SARIF version = %q, want 2.1.0", sarif.Version)
	}
	if !strings.Contains(sarif.Schema, "sarif-schema-2.1.0") {
		t.Errorf("SARIF schema should reference 2.1.0, got %q", sarif.Schema)
	}
	if len(sarif.Runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(sarif.Runs))
	}

	run := sarif.Runs[0]
	if run.Tool.Driver.Name != "modgraph" {
		t.Errorf("driver name = %q, want modgraph", run.Tool.Driver.Name)
	}

	type summary struct {
		RuleID, Level, BaselineState, Suppression string
	}
	var got []summary
	for _, r := range run.Results {
		s := summary{RuleID: r.RuleID, Level: r.Level, BaselineState: r.BaselineState}
		if len(r.Suppressions) > 0 {
			s.Suppression = r.Suppressions[0].Kind
		}
		if r.RuleIndex < 0 || r.RuleIndex >= len(run.Tool.Driver.Rules) || run.Tool.Driver.Rules[r.RuleIndex].ID != r.RuleID {
			t.Errorf("result %s has wrong rule index %d", r.RuleID, r.RuleIndex)
		}
		got = append(got, s)
	}
	want := []summary{
		{RuleID: ruleModuleCycle, Level: "error", BaselineState: "unchanged", Suppression: "external"},
		{RuleID: rulePackageCycle, Level: "note", Suppression: "inSource"},
		{RuleID: ruleDeclaration, Level: "error"},
		{RuleID: ruleUnused, Level: "note"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}

	first := run.Results[0]
	if fp := first.Fingerprints[fingerprintKey]; fp != res.Violations[0].Fingerprint() {
		t.Errorf("fingerprint = %q, want %q", fp, res.Violations[0].Fingerprint())
	}
	loc := first.Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != "a/build.gradle.kts" || loc.Region.StartLine != 4 {
		t.Errorf("location = %s:%d, want a/build.gradle.kts:4", loc.ArtifactLocation.URI, loc.Region.StartLine)
	}
}
