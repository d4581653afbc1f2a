// Package report renders modgraph results as JSON, YAML, human-readable text
// or SARIF.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"modgraph/internal/check"
	"modgraph/internal/cycles"
	"modgraph/internal/depgraph"
	"modgraph/internal/modules"
	"modgraph/internal/storage"
)

// Format represents the output format type
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatHuman Format = "human"
	FormatSARIF Format = "sarif"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatHuman, FormatSARIF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Render formats a value according to the specified format. SARIF is only
// available for check results.
func Render(v interface{}, format Format) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(v)
	case FormatYAML:
		return formatYAML(v)
	case FormatHuman:
		return formatHuman(v)
	case FormatSARIF:
		res, ok := v.(*check.Result)
		if !ok {
			return "", fmt.Errorf("sarif output is only supported for check results")
		}
		return renderSARIF(res)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return buf.String(), nil
}

func formatHuman(v interface{}) (string, error) {
	switch r := v.(type) {
	case *check.Result:
		return formatCheckHuman(r), nil
	case *ModulesView:
		return formatModulesHuman(r), nil
	case *DepsView:
		return formatDepsHuman(r), nil
	case *ExclusionsView:
		return formatExclusionsHuman(r), nil
	case *HistoryView:
		return formatHistoryHuman(r), nil
	case *RunView:
		return formatRunHuman(r), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(v)
	}
}

// ModuleSummary is one line of the module listing
type ModuleSummary struct {
	Name            string                `json:"name" yaml:"name"`
	Dir             string                `json:"dir" yaml:"dir"`
	BuildFile       string                `json:"buildFile,omitempty" yaml:"buildFile,omitempty"`
	Plugins         []string              `json:"plugins,omitempty" yaml:"plugins,omitempty"`
	Scopes          map[modules.Scope]int `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	External        int                   `json:"external" yaml:"external"`
	ExcludePatterns []string              `json:"excludePatterns,omitempty" yaml:"excludePatterns,omitempty"`
	Application     *modules.Application  `json:"application,omitempty" yaml:"application,omitempty"`
	Classycle       bool                  `json:"classycle" yaml:"classycle"`
	Declared        bool                  `json:"declared,omitempty" yaml:"declared,omitempty"`
}

// ModulesView lists the modules of a build
type ModulesView struct {
	Modules []ModuleSummary `json:"modules" yaml:"modules"`
}

// NewModulesView summarizes modules; external counts come from the graph
func NewModulesView(g *depgraph.Graph) *ModulesView {
	view := &ModulesView{Modules: []ModuleSummary{}}
	for _, name := range g.Names() {
		m, _ := g.Module(name)
		view.Modules = append(view.Modules, ModuleSummary{
			Name:            m.Name,
			Dir:             m.Dir,
			BuildFile:       m.BuildFile,
			Plugins:         m.Plugins,
			Scopes:          m.ScopeCounts(),
			External:        g.External[m.Name],
			ExcludePatterns: m.ExcludePatterns,
			Application:     m.Application,
			Classycle:       m.HasPlugin(modules.ClassyclePlugin),
			Declared:        m.Declared,
		})
	}
	return view
}

// DepsView is the answer of a deps query
type DepsView struct {
	Module     string               `json:"module" yaml:"module"`
	Reverse    bool                 `json:"reverse,omitempty" yaml:"reverse,omitempty"`
	Transitive bool                 `json:"transitive,omitempty" yaml:"transitive,omitempty"`
	Edges      []depgraph.Edge      `json:"edges,omitempty" yaml:"edges,omitempty"`
	Modules    []string             `json:"modules,omitempty" yaml:"modules,omitempty"`
	Scopes     []modules.ScopeClass `json:"scopeClasses" yaml:"scopeClasses"`
}

// ExclusionsView shows what each exclusion pattern of a module selects
type ExclusionsView struct {
	Module     string             `json:"module" yaml:"module"`
	Patterns   []string           `json:"patterns" yaml:"patterns"`
	Invalid    []string           `json:"invalid,omitempty" yaml:"invalid,omitempty"`
	Packages   int                `json:"packages" yaml:"packages"`
	Evaluation *cycles.Evaluation `json:"evaluation" yaml:"evaluation"`
}

// HistoryView lists recorded check runs
type HistoryView struct {
	Runs []*storage.Run `json:"runs" yaml:"runs"`
}

// RunView is one recorded run. FirstSeen maps the fingerprint of each
// violation to the start of the first run that recorded it.
type RunView struct {
	Run       *storage.Run         `json:"run" yaml:"run"`
	Result    *check.Result        `json:"result" yaml:"result"`
	FirstSeen map[string]time.Time `json:"firstSeen,omitempty" yaml:"firstSeen,omitempty"`
}

const rule = "============================================================"

func formatCheckHuman(r *check.Result) string {
	var b strings.Builder

	status := "✓ PASS"
	if r.Status == check.StatusFail {
		status = "✗ FAIL"
	}
	b.WriteString(fmt.Sprintf("modgraph check: %s\n", status))
	b.WriteString(rule + "\n\n")

	s := r.Summary
	b.WriteString(fmt.Sprintf("Modules: %d, edges: %d, packages: %d, files: %d", s.Modules, s.Edges, s.Packages, s.Files))
	if r.Parser != "" {
		b.WriteString(fmt.Sprintf(" (parser: %s)", r.Parser))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Cycles: %d module, %d package; %d violations, %d suppressed, %d baselined\n",
		s.ModuleCycles, s.PackageCycles, s.Violations, s.Suppressed, s.Baselined))
	b.WriteString(fmt.Sprintf("Duration: %dms\n\n", r.DurationMs))

	if len(r.Violations) > 0 {
		b.WriteString(fmt.Sprintf("Violations (%d):\n", len(r.Violations)))
		for _, f := range r.Violations {
			icon := "✗"
			if f.Baselined {
				icon = "~"
			}
			b.WriteString(fmt.Sprintf("  %s %s\n", icon, f.Title()))
			b.WriteString(fmt.Sprintf("    Fingerprint: %s", f.Fingerprint()))
			if f.Baselined {
				b.WriteString(" (baselined)")
			}
			b.WriteString("\n")
			if len(f.ExcludedMembers) > 0 {
				b.WriteString(fmt.Sprintf("    Excluded members: %s\n", strings.Join(f.ExcludedMembers, ", ")))
			}
			writeEvidence(&b, f.Evidence)
		}
		b.WriteString("\n")
	}

	if len(r.Suppressed) > 0 {
		b.WriteString(fmt.Sprintf("Suppressed (%d):\n", len(r.Suppressed)))
		for _, f := range r.Suppressed {
			b.WriteString(fmt.Sprintf("  - %s\n", f.Title()))
			if len(f.Patterns) > 0 {
				b.WriteString(fmt.Sprintf("    Excluded by: %s\n", strings.Join(f.Patterns, ", ")))
			}
		}
		b.WriteString("\n")
	}

	if len(r.Issues) > 0 {
		b.WriteString(fmt.Sprintf("Declaration issues (%d):\n", len(r.Issues)))
		for _, is := range r.Issues {
			b.WriteString(fmt.Sprintf("  %s\n", is.String()))
		}
		b.WriteString("\n")
	}

	if len(r.Unused) > 0 {
		b.WriteString("Unused exclusion patterns:\n")
		for _, u := range r.Unused {
			b.WriteString(fmt.Sprintf("  ! %s %s\n", u.Module, u.Pattern))
		}
		b.WriteString("\n")
	}

	if len(r.Partial) > 0 {
		b.WriteString("Partial matches (package not excluded):\n")
		for _, p := range r.Partial {
			b.WriteString(fmt.Sprintf("  ! %s %s selects %d of %d classes of %s\n", p.Module, p.Pattern, p.Matched, p.Total, p.Package))
		}
		b.WriteString("\n")
	}

	if len(r.Stale) > 0 {
		b.WriteString("Stale baseline entries:\n")
		for _, e := range r.Stale {
			b.WriteString(fmt.Sprintf("  - %s %s %s\n", e.Fingerprint, e.Kind, strings.Join(e.Members, ", ")))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeEvidence(b *strings.Builder, refs []cycles.EdgeRef) {
	for _, e := range refs {
		loc := e.File
		if e.Line > 0 {
			loc = fmt.Sprintf("%s:%d", e.File, e.Line)
		}
		b.WriteString(fmt.Sprintf("      %s -> %s  %s\n", e.From, e.To, loc))
	}
}

func formatModulesHuman(v *ModulesView) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Modules (%d)\n", len(v.Modules)))
	b.WriteString(rule + "\n\n")
	for _, m := range v.Modules {
		b.WriteString(fmt.Sprintf("%s\n", m.Name))
		b.WriteString(fmt.Sprintf("  Dir: %s\n", m.Dir))
		if len(m.Plugins) > 0 {
			b.WriteString(fmt.Sprintf("  Plugins: %s\n", strings.Join(m.Plugins, ", ")))
		}
		if len(m.Scopes) > 0 {
			scopes := make([]string, 0, len(m.Scopes))
			for s, n := range m.Scopes {
				scopes = append(scopes, fmt.Sprintf("%s=%d", s, n))
			}
			sort.Strings(scopes)
			b.WriteString(fmt.Sprintf("  Dependencies: %s (external: %d)\n", strings.Join(scopes, " "), m.External))
		}
		if len(m.ExcludePatterns) > 0 {
			b.WriteString(fmt.Sprintf("  Exclusions: %s\n", strings.Join(m.ExcludePatterns, ", ")))
			if !m.Classycle {
				b.WriteString(fmt.Sprintf("  ! %s is not applied; Gradle ignores these patterns\n", modules.ClassyclePlugin))
			}
		}
		if m.Application != nil {
			b.WriteString(fmt.Sprintf("  Application: %s/%s\n", m.Application.MainModule, m.Application.MainClass))
		}
	}
	return b.String()
}

func formatDepsHuman(v *DepsView) string {
	var b strings.Builder

	direction := "Dependencies"
	if v.Reverse {
		direction = "Dependents"
	}
	if v.Transitive {
		direction = "Transitive " + strings.ToLower(direction)
	}
	b.WriteString(fmt.Sprintf("%s of %s\n", direction, v.Module))
	b.WriteString(rule + "\n\n")

	if v.Transitive {
		for _, m := range v.Modules {
			b.WriteString(fmt.Sprintf("  %s\n", m))
		}
	} else {
		for _, e := range v.Edges {
			other := e.To
			if v.Reverse {
				other = e.From
			}
			scopes := make([]string, len(e.Scopes))
			for i, s := range e.Scopes {
				scopes[i] = string(s)
			}
			line := fmt.Sprintf("  %s (%s)", other, strings.Join(scopes, ", "))
			if e.TestOnly() {
				line += " [test only]"
			}
			b.WriteString(line + "\n")
		}
	}
	if len(v.Edges) == 0 && len(v.Modules) == 0 {
		b.WriteString("  (none)\n")
	}
	return b.String()
}

func formatExclusionsHuman(v *ExclusionsView) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Exclusions of %s (%d packages)\n", v.Module, v.Packages))
	b.WriteString(rule + "\n\n")

	if len(v.Patterns) == 0 && len(v.Invalid) == 0 {
		b.WriteString("No exclusion patterns.\n")
		return b.String()
	}

	unused := make(map[string]bool)
	for _, p := range v.Evaluation.Unused {
		unused[p] = true
	}
	for _, p := range v.Patterns {
		if unused[p] {
			b.WriteString(fmt.Sprintf("! %s: matches nothing\n", p))
			continue
		}
		pkgs := v.Evaluation.Matches[p]
		b.WriteString(fmt.Sprintf("✓ %s: %d packages\n", p, len(pkgs)))
		for _, pkg := range pkgs {
			b.WriteString(fmt.Sprintf("    %s\n", pkg))
		}
	}
	for _, pm := range v.Evaluation.Partial {
		b.WriteString(fmt.Sprintf("! %s: selects %d of %d classes of %s; package stays checked\n", pm.Pattern, pm.Matched, pm.Total, pm.Package))
	}
	for _, p := range v.Invalid {
		b.WriteString(fmt.Sprintf("✗ %q: invalid pattern\n", p))
	}
	return b.String()
}

func formatHistoryHuman(v *HistoryView) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Check history (%d runs)\n", len(v.Runs)))
	b.WriteString(rule + "\n\n")
	for _, r := range v.Runs {
		b.WriteString(fmt.Sprintf("%s  %s  %-4s  violations=%d suppressed=%d baselined=%d  %dms\n",
			shortID(r.ID), r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status,
			r.Violations, r.Suppressed, r.Baselined, r.DurationMs))
	}
	return b.String()
}

func formatRunHuman(v *RunView) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Run %s recorded %s\n\n", v.Run.ID, v.Run.StartedAt.Local().Format("2006-01-02 15:04:05")))
	b.WriteString(formatCheckHuman(v.Result))
	if len(v.FirstSeen) == 0 {
		return b.String()
	}

	b.WriteString("\nFirst seen:\n")
	for _, f := range v.Result.Violations {
		fp := f.Fingerprint()
		seen, ok := v.FirstSeen[fp]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s  %s  %s\n", fp, seen.Local().Format("2006-01-02 15:04:05"), f.Title()))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
