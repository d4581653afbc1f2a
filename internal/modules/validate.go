package modules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Severity of a validation issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// IssueKind identifies a validation rule
type IssueKind string

const (
	IssueDuplicateModule      IssueKind = "duplicate-module"
	IssueUnknownProject       IssueKind = "unknown-project"
	IssueSelfDependency       IssueKind = "self-dependency"
	IssueDuplicateDeclaration IssueKind = "duplicate-declaration"
	IssueInvalidPattern       IssueKind = "invalid-pattern"
	IssueDottedPattern        IssueKind = "dotted-pattern"
	IssueInvalidApplication   IssueKind = "invalid-application"
	IssueCustomScope          IssueKind = "custom-scope"
)

// Issue is one validation finding
type Issue struct {
	Kind     IssueKind `json:"kind" yaml:"kind"`
	Severity Severity  `json:"severity" yaml:"severity"`
	Module   string    `json:"module" yaml:"module"`
	File     string    `json:"file,omitempty" yaml:"file,omitempty"`
	Line     int       `json:"line,omitempty" yaml:"line,omitempty"`
	Message  string    `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	loc := i.Module
	if i.File != "" {
		loc = i.File
		if i.Line > 0 {
			loc = fmt.Sprintf("%s:%d", i.File, i.Line)
		}
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, loc, i.Message)
}

// javaName matches dotted Java identifiers such as org.gradle.sample.app
var javaName = regexp.MustCompile(`^[\p{L}_$][\p{L}\p{N}_$]*(\.[\p{L}_$][\p{L}\p{N}_$]*)*$`)

// Validate checks modules for declaration problems. Issues are sorted by
// module, line and kind.
func Validate(mods []*Module) []Issue {
	var issues []Issue

	byName := make(map[string][]*Module)
	for _, m := range mods {
		byName[m.Name] = append(byName[m.Name], m)
	}
	for name, ms := range byName {
		if len(ms) < 2 {
			continue
		}
		dirs := make([]string, len(ms))
		for i, m := range ms {
			dirs[i] = m.Dir
		}
		sort.Strings(dirs)
		issues = append(issues, Issue{
			Kind:     IssueDuplicateModule,
			Severity: SeverityError,
			Module:   name,
			Message:  fmt.Sprintf("module name %s is used by %s", name, strings.Join(dirs, ", ")),
		})
	}

	for _, m := range mods {
		issues = append(issues, validateModule(m, byName)...)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Kind < b.Kind
	})
	return issues
}

func validateModule(m *Module, byName map[string][]*Module) []Issue {
	var issues []Issue
	issue := func(kind IssueKind, sev Severity, line int, format string, args ...interface{}) {
		issues = append(issues, Issue{
			Kind:     kind,
			Severity: sev,
			Module:   m.Name,
			File:     m.BuildFile,
			Line:     line,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	type declKey struct {
		scope  Scope
		kind   TargetKind
		target string
	}
	seen := make(map[declKey]int)
	customScopes := make(map[Scope]bool)

	for _, d := range m.Dependencies {
		if !d.Scope.Known() && !customScopes[d.Scope] {
			customScopes[d.Scope] = true
			issue(IssueCustomScope, SeverityWarning, d.Line, "unknown configuration %q treated as custom scope", d.Scope)
		}

		key := declKey{d.Scope, d.Kind, d.Target}
		if first, ok := seen[key]; ok && d.Kind != TargetUnknown && d.Kind != TargetFiles {
			issue(IssueDuplicateDeclaration, SeverityWarning, d.Line,
				"%s(%s) already declared on line %d", d.Scope, d.Target, first)
		} else if !ok {
			seen[key] = d.Line
		}

		if !d.Kind.IsModule() {
			continue
		}
		if d.Target == m.Name && d.Kind == TargetProject {
			issue(IssueSelfDependency, SeverityError, d.Line, "module depends on itself in %s", d.Scope)
			continue
		}
		if _, ok := byName[d.Target]; !ok {
			issue(IssueUnknownProject, SeverityError, d.Line, "%s references unknown project %s", d.Scope, d.Target)
		}
	}

	for _, raw := range m.ExcludePatterns {
		p := strings.TrimSpace(raw)
		if p == "" {
			issue(IssueInvalidPattern, SeverityError, 0, "empty exclude pattern %q", raw)
			continue
		}
		if !doublestar.ValidatePattern(p) {
			issue(IssueInvalidPattern, SeverityError, 0, "invalid exclude pattern %q", p)
			continue
		}
		if strings.HasPrefix(p, "/") {
			issue(IssueInvalidPattern, SeverityError, 0, "exclude pattern %q must be relative", p)
			continue
		}
		if !strings.Contains(p, "/") && strings.Count(p, ".") > 0 && p != "**" {
			issue(IssueDottedPattern, SeverityWarning, 0,
				"exclude pattern %q uses '.' separators; package patterns are matched against slash paths", p)
		}
	}

	if app := m.Application; app != nil {
		valid := true
		if app.MainModule != "" && !javaName.MatchString(app.MainModule) {
			issue(IssueInvalidApplication, SeverityError, 0, "mainModule %q is not a valid module name", app.MainModule)
			valid = false
		}
		if app.MainClass == "" {
			issue(IssueInvalidApplication, SeverityWarning, 0, "application block without mainClass")
			valid = false
		} else if !javaName.MatchString(app.MainClass) {
			issue(IssueInvalidApplication, SeverityError, 0, "mainClass %q is not a valid class name", app.MainClass)
			valid = false
		}
		if valid && app.MainModule != "" && !strings.HasPrefix(app.MainClass, app.MainModule+".") {
			issue(IssueInvalidApplication, SeverityWarning, 0,
				"mainClass %s is outside module %s", app.MainClass, app.MainModule)
		}
	}

	return issues
}

// HasErrors reports whether any issue has error severity
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
