// Package modules models the projects of a multi-module build: their
// declared dependencies per scope, cycle-check exclusions and application
// entry point. Modules are discovered from Kotlin-DSL build scripts and
// can be declared or overridden in MODULES.toml.
package modules

import (
	"sort"
	"strings"
	"unicode"

	"modgraph/internal/buildscript"
)

// TargetKind classifies what a dependency points at
type TargetKind string

const (
	TargetProject      TargetKind = TargetKind(buildscript.TargetProject)
	TargetTestFixtures TargetKind = TargetKind(buildscript.TargetTestFixtures)
	TargetLibrary      TargetKind = TargetKind(buildscript.TargetLibrary)
	TargetExternal     TargetKind = TargetKind(buildscript.TargetExternal)
	TargetFiles        TargetKind = TargetKind(buildscript.TargetFiles)
	TargetUnknown      TargetKind = TargetKind(buildscript.TargetUnknown)
)

// IsModule reports whether the target is another module of the build
func (k TargetKind) IsModule() bool {
	return k == TargetProject || k == TargetTestFixtures
}

// Dependency is one declared dependency of a module
type Dependency struct {
	Scope  Scope      `json:"scope" yaml:"scope"`
	Kind   TargetKind `json:"kind" yaml:"kind"`
	Target string     `json:"target" yaml:"target"`

	// Platform marks platform(...) / enforcedPlatform(...) declarations
	Platform bool `json:"platform,omitempty" yaml:"platform,omitempty"`

	// Line is the 1-based line in the build script; 0 for declared dependencies
	Line int `json:"line,omitempty" yaml:"line,omitempty"`
}

// Application is a module's application entry point
type Application struct {
	MainModule string `json:"mainModule,omitempty" yaml:"mainModule,omitempty"`
	MainClass  string `json:"mainClass,omitempty" yaml:"mainClass,omitempty"`
}

// Module is one project of the build
type Module struct {
	// Name is the project path, e.g. ":modelCore"
	Name string `json:"name" yaml:"name"`

	// Dir is the repo-relative, slash-separated module directory
	Dir string `json:"dir" yaml:"dir"`

	// BuildFile is the repo-relative build script; empty for declared-only modules
	BuildFile string `json:"buildFile,omitempty" yaml:"buildFile,omitempty"`

	Plugins      []string     `json:"plugins,omitempty" yaml:"plugins,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// ExcludePatterns are the classycle exclusion globs, in declaration order
	ExcludePatterns []string `json:"excludePatterns,omitempty" yaml:"excludePatterns,omitempty"`

	Application *Application `json:"application,omitempty" yaml:"application,omitempty"`

	// SourceRoots overrides the configured source roots when set
	SourceRoots []string `json:"sourceRoots,omitempty" yaml:"sourceRoots,omitempty"`

	// Declared is set when the module comes from, or was changed by, MODULES.toml
	Declared bool `json:"declared,omitempty" yaml:"declared,omitempty"`
}

// FromScript converts a parsed build script into a module.
func FromScript(name, dir, buildFile string, s *buildscript.Script) *Module {
	m := &Module{
		Name:            name,
		Dir:             dir,
		BuildFile:       buildFile,
		Plugins:         append([]string(nil), s.Plugins...),
		ExcludePatterns: append([]string(nil), s.ExcludePatterns...),
	}
	for _, d := range s.Dependencies {
		m.Dependencies = append(m.Dependencies, Dependency{
			Scope:    ParseScope(d.Configuration),
			Kind:     TargetKind(d.Target.Kind),
			Target:   d.Target.Value,
			Platform: d.Target.Platform,
			Line:     d.Line,
		})
	}
	if s.Application != nil {
		m.Application = &Application{
			MainModule: s.Application.MainModule,
			MainClass:  s.Application.MainClass,
		}
	}
	return m
}

// ClassyclePlugin is the plugin that runs the package cycle check in Gradle
const ClassyclePlugin = "gradlebuild.classycle"

// HasPlugin reports whether the plugin id was applied
func (m *Module) HasPlugin(id string) bool {
	for _, p := range m.Plugins {
		if p == id {
			return true
		}
	}
	return false
}

// ProjectDependencies returns the module targets declared in the given scope
// classes, in declaration order. No classes means all.
func (m *Module) ProjectDependencies(classes ...ScopeClass) []Dependency {
	var out []Dependency
	for _, d := range m.Dependencies {
		if !d.Kind.IsModule() {
			continue
		}
		if len(classes) > 0 && !containsClass(classes, d.Scope.Classification()) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ScopeCounts counts declarations per scope
func (m *Module) ScopeCounts() map[Scope]int {
	counts := make(map[Scope]int)
	for _, d := range m.Dependencies {
		counts[d.Scope]++
	}
	return counts
}

func containsClass(classes []ScopeClass, c ScopeClass) bool {
	for _, x := range classes {
		if x == c {
			return true
		}
	}
	return false
}

// ProjectName derives a project path from a directory base name:
// "model-core" becomes ":modelCore". The repository root is ":".
func ProjectName(dir string) string {
	dir = strings.TrimRight(strings.ReplaceAll(dir, "\\", "/"), "/")
	if dir == "" || dir == "." {
		return ":"
	}
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[i+1:]
	}

	var b strings.Builder
	upper := false
	for _, r := range dir {
		if r == '-' || r == '_' || r == '.' || r == ' ' {
			upper = b.Len() > 0
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return ":" + b.String()
}

// SortByName sorts modules by project path
func SortByName(mods []*Module) {
	sort.SliceStable(mods, func(i, j int) bool {
		return mods[i].Name < mods[j].Name
	})
}

// Index maps project paths to modules. On duplicate names the first wins.
func Index(mods []*Module) map[string]*Module {
	idx := make(map[string]*Module, len(mods))
	for _, m := range mods {
		if _, ok := idx[m.Name]; !ok {
			idx[m.Name] = m
		}
	}
	return idx
}
