// Package buildscript reads the declarative parts of Kotlin-DSL build
// scripts: applied plugins, dependency declarations per configuration,
// classycle exclusion patterns and the application entry point.
//
// Only the shapes used by declarative build files are understood. Anything
// else in the script (tasks, custom logic) is skipped without error.
package buildscript

import (
	"fmt"
	"os"
	"strings"

	mgerrors "modgraph/internal/errors"
)

// TargetKind classifies what a dependency declaration points at.
type TargetKind string

const (
	// TargetProject is project(":x")
	TargetProject TargetKind = "project"
	// TargetTestFixtures is testFixtures(project(":x"))
	TargetTestFixtures TargetKind = "testFixtures"
	// TargetLibrary is library("alias") or a libs.alias catalogue accessor
	TargetLibrary TargetKind = "library"
	// TargetExternal is a "group:artifact:version" coordinate
	TargetExternal TargetKind = "external"
	// TargetFiles is files(...) or fileTree(...)
	TargetFiles TargetKind = "files"
	// TargetUnknown is anything else; Raw holds the source text
	TargetUnknown TargetKind = "unknown"
)

// Target is the right-hand side of a dependency declaration.
type Target struct {
	Kind TargetKind `json:"kind" yaml:"kind"`
	// Value is the project path, library alias or coordinate.
	Value string `json:"value" yaml:"value"`
	// Platform is set for platform(...) / enforcedPlatform(...) wrappers.
	Platform bool `json:"platform,omitempty" yaml:"platform,omitempty"`
	// Raw is the declaration as written, for diagnostics.
	Raw string `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Declaration is one entry of a dependencies { } block.
type Declaration struct {
	// Configuration is the scope keyword as written: api, implementation, ...
	Configuration string `json:"configuration" yaml:"configuration"`
	Target        Target `json:"target" yaml:"target"`
	Line          int    `json:"line" yaml:"line"`
}

// Application is the application { } entry point.
type Application struct {
	MainModule string `json:"mainModule,omitempty" yaml:"mainModule,omitempty"`
	MainClass  string `json:"mainClass,omitempty" yaml:"mainClass,omitempty"`
	Line       int    `json:"line" yaml:"line"`
}

// Script is the declarative content of one build script.
type Script struct {
	Name            string        `json:"name" yaml:"name"`
	Plugins         []string      `json:"plugins,omitempty" yaml:"plugins,omitempty"`
	Dependencies    []Declaration `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	ExcludePatterns []string      `json:"excludePatterns,omitempty" yaml:"excludePatterns,omitempty"`
	// HasClassycle is set when a classycle { } block is present, even if empty.
	HasClassycle bool         `json:"hasClassycle" yaml:"hasClassycle"`
	Application  *Application `json:"application,omitempty" yaml:"application,omitempty"`
	// Blocks lists the top-level block names in order of appearance.
	Blocks []string `json:"blocks,omitempty" yaml:"blocks,omitempty"`
}

// ParseFile reads and parses a build script from disk.
func ParseFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build script: %w", err)
	}
	return Parse(path, data)
}

// Parse parses build script source. name is used in error messages.
func Parse(name string, src []byte) (*Script, error) {
	toks, err := lex(string(src))
	if err != nil {
		return nil, invalid(name, err)
	}
	stmts, err := parseFile(toks)
	if err != nil {
		return nil, invalid(name, err)
	}

	s := &Script{Name: name}
	for _, st := range stmts {
		for _, n := range st {
			if n.kind != nodeChain || len(n.segs) == 0 {
				continue
			}
			seg := n.segs[len(n.segs)-1]
			if !seg.blocked {
				continue
			}
			blockName := n.path()
			if blockName == "" {
				continue
			}
			s.Blocks = append(s.Blocks, blockName)

			switch blockName {
			case "plugins":
				s.readPlugins(seg.block)
			case "dependencies":
				s.readDependencies(seg.block)
			case "classycle":
				s.HasClassycle = true
				s.readClassycle(seg.block)
			case "application":
				s.readApplication(seg.block, n.line)
			}
		}
	}
	return s, nil
}

func invalid(name string, err error) error {
	msg := name
	if se, ok := err.(*SyntaxError); ok {
		msg = fmt.Sprintf("%s:%d", name, se.Line)
		err = fmt.Errorf("%s", se.Message)
	}
	return mgerrors.Wrap(mgerrors.BuildScriptInvalid, err, msg)
}

func (s *Script) readPlugins(block []expr) {
	for _, st := range block {
		n := st.head()
		if n == nil || n.kind != nodeChain {
			continue
		}
		first := n.segs[0]
		switch {
		case first.name == "id" && first.called:
			if v, ok := firstStringArg(first); ok {
				s.Plugins = append(s.Plugins, v)
			}
		case first.name == "kotlin" && first.called:
			if v, ok := firstStringArg(first); ok {
				s.Plugins = append(s.Plugins, "org.jetbrains.kotlin."+v)
			}
		default:
			s.Plugins = append(s.Plugins, n.path())
		}
	}
}

func (s *Script) readDependencies(block []expr) {
	for _, st := range block {
		n := st.head()
		if n == nil || n.kind != nodeChain || len(n.segs) == 0 {
			continue
		}
		first := n.segs[0]
		if !first.called || len(first.args) == 0 || len(n.segs) > 1 {
			// constraints { }, components { }, or method calls on objects
			continue
		}

		configuration := first.name
		arg := first.args[0]
		if first.name == "add" && len(first.args) >= 2 {
			// add("api", project(":x"))
			if v, ok := arg.firstString(); ok {
				configuration = v
				arg = first.args[1]
			}
		}

		s.Dependencies = append(s.Dependencies, Declaration{
			Configuration: configuration,
			Target:        parseTarget(arg),
			Line:          n.line,
		})
	}
}

// parseTarget interprets a dependency notation.
func parseTarget(e expr) Target {
	raw := e.String()
	n := e.head()
	if n == nil {
		return Target{Kind: TargetUnknown, Raw: raw}
	}

	if n.kind == nodeString {
		return Target{Kind: TargetExternal, Value: n.text, Raw: raw}
	}
	if n.kind != nodeChain {
		return Target{Kind: TargetUnknown, Raw: raw}
	}

	first := n.segs[0]
	switch {
	case first.name == "project" && first.called:
		if v, ok := namedOrFirstString(first, "path"); ok {
			return Target{Kind: TargetProject, Value: v, Raw: raw}
		}
	case first.name == "testFixtures" && first.called && len(first.args) > 0:
		inner := parseTarget(first.args[0])
		if inner.Kind == TargetProject {
			return Target{Kind: TargetTestFixtures, Value: inner.Value, Raw: raw}
		}
		inner.Raw = raw
		return inner
	case (first.name == "platform" || first.name == "enforcedPlatform") && first.called && len(first.args) > 0:
		inner := parseTarget(first.args[0])
		inner.Platform = true
		inner.Raw = raw
		return inner
	case first.name == "library" && first.called:
		if v, ok := firstStringArg(first); ok {
			return Target{Kind: TargetLibrary, Value: v, Raw: raw}
		}
	case first.name == "libs" && len(n.segs) > 1:
		names := make([]string, 0, len(n.segs)-1)
		for _, sg := range n.segs[1:] {
			if sg.name == "get" {
				continue
			}
			names = append(names, sg.name)
		}
		return Target{Kind: TargetLibrary, Value: strings.Join(names, "."), Raw: raw}
	case first.name == "kotlin" && first.called:
		if v, ok := firstStringArg(first); ok {
			return Target{Kind: TargetExternal, Value: "org.jetbrains.kotlin:kotlin-" + v, Raw: raw}
		}
	case first.name == "files" || first.name == "fileTree":
		return Target{Kind: TargetFiles, Raw: raw}
	}
	return Target{Kind: TargetUnknown, Raw: raw}
}

func (s *Script) readClassycle(block []expr) {
	for _, st := range block {
		n := st.head()
		if n == nil || n.kind != nodeChain || n.segs[0].name != "excludePatterns" {
			continue
		}

		if len(n.segs) == 1 && st.hasAssign() {
			// excludePatterns = listOf(...)
			s.ExcludePatterns = collectStrings(st[1:])
			continue
		}
		if len(n.segs) < 2 {
			continue
		}
		op := n.segs[1]
		var values []string
		for _, a := range op.args {
			values = append(values, collectStrings(a)...)
		}
		switch op.name {
		case "set":
			s.ExcludePatterns = values
		case "add", "addAll":
			s.ExcludePatterns = append(s.ExcludePatterns, values...)
		case "empty":
			s.ExcludePatterns = nil
		}
	}
}

func (s *Script) readApplication(block []expr, line int) {
	app := &Application{Line: line}
	for _, st := range block {
		n := st.head()
		if n == nil || n.kind != nodeChain {
			continue
		}
		var value string
		var ok bool
		switch {
		case len(n.segs) == 2 && n.segs[1].name == "set":
			value, ok = firstStringArg(n.segs[1])
		case len(n.segs) == 1 && st.hasAssign():
			value, ok = st[1:].firstString()
		}
		if !ok {
			continue
		}
		switch n.segs[0].name {
		case "mainModule":
			app.MainModule = value
		case "mainClass", "mainClassName":
			app.MainClass = value
		}
	}
	s.Application = app
}

// collectStrings gathers string literals from an expression, descending
// into listOf/setOf/arrayOf/mutableListOf calls.
func collectStrings(e expr) []string {
	var out []string
	for _, n := range e {
		switch n.kind {
		case nodeString:
			out = append(out, n.text)
		case nodeChain:
			for _, sg := range n.segs {
				switch sg.name {
				case "listOf", "setOf", "arrayOf", "mutableListOf", "mutableSetOf":
					for _, a := range sg.args {
						out = append(out, collectStrings(a)...)
					}
				}
			}
		}
	}
	return out
}

func firstStringArg(seg segment) (string, bool) {
	if len(seg.args) == 0 {
		return "", false
	}
	return seg.args[0].firstString()
}

// namedOrFirstString supports both project(":x") and project(path = ":x").
func namedOrFirstString(seg segment, name string) (string, bool) {
	for _, a := range seg.args {
		if h := a.head(); h != nil && h.kind == nodeChain && h.path() == name && a.hasAssign() {
			return a[1:].firstString()
		}
	}
	return firstStringArg(seg)
}
