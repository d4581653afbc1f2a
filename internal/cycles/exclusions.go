package cycles

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	mgerrors "modgraph/internal/errors"
	"modgraph/internal/paths"
)

// anyClass stands in for the classes of a package that has none on record
const anyClass = "*"

// Exclusions is a compiled, ordered list of exclusion patterns
type Exclusions struct {
	patterns []string
}

// CompileExclusions validates patterns. Invalid patterns are left out of the
// returned Exclusions and reported together in an INVALID_PATTERN error; the
// valid ones remain usable.
func CompileExclusions(patterns []string) (*Exclusions, error) {
	ex := &Exclusions{}
	var bad []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || !doublestar.ValidatePattern(p) {
			bad = append(bad, p)
			continue
		}
		ex.patterns = append(ex.patterns, p)
	}
	if len(bad) > 0 {
		quoted := make([]string, len(bad))
		for i, b := range bad {
			quoted[i] = fmt.Sprintf("%q", b)
		}
		return ex, mgerrors.Errorf(mgerrors.InvalidPattern, "invalid exclusion pattern %s", strings.Join(quoted, ", ")).
			WithDetails(map[string]interface{}{"patterns": bad})
	}
	return ex, nil
}

// Patterns returns the valid patterns in declaration order
func (e *Exclusions) Patterns() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.patterns...)
}

// Len returns the number of valid patterns
func (e *Exclusions) Len() int {
	if e == nil {
		return 0
	}
	return len(e.patterns)
}

// Match returns the first pattern that matches every class of the package,
// or "" when the package is not excluded. Package names are dotted.
func (e *Exclusions) Match(pkg string, classes []string) string {
	if e == nil {
		return ""
	}
	for _, p := range e.patterns {
		if n := matchCount(p, pkg, classes); n > 0 && n == classCount(classes) {
			return p
		}
	}
	return ""
}

func classCount(classes []string) int {
	if len(classes) == 0 {
		return 1
	}
	return len(classes)
}

// matchCount returns how many classes of pkg the pattern selects
func matchCount(pattern, pkg string, classes []string) int {
	if len(classes) == 0 {
		classes = []string{anyClass}
	}
	dir := paths.PackagePath(pkg)
	n := 0
	for _, c := range classes {
		// Patterns were validated at compile time
		if ok, _ := doublestar.Match(pattern, dir+"/"+c); ok {
			n++
		}
	}
	return n
}

// PartialMatch is a pattern that selects only some classes of a package; the
// package stays in the cycle check.
type PartialMatch struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Package string `json:"package" yaml:"package"`
	Matched int    `json:"matched" yaml:"matched"`
	Total   int    `json:"total" yaml:"total"`
}

// Evaluation is the effect of a module's exclusions on its packages
type Evaluation struct {
	// Excluded maps each excluded package to the first pattern excluding it
	Excluded map[string]string `json:"excluded" yaml:"excluded"`

	// Matches maps each pattern to the packages it excludes, sorted
	Matches map[string][]string `json:"matches" yaml:"matches"`

	Partial []PartialMatch `json:"partial,omitempty" yaml:"partial,omitempty"`

	// Unused lists patterns that select no class at all
	Unused []string `json:"unused,omitempty" yaml:"unused,omitempty"`
}

// IsExcluded reports whether the package is excluded
func (ev *Evaluation) IsExcluded(pkg string) bool {
	_, ok := ev.Excluded[pkg]
	return ok
}

// Evaluate applies the exclusions to the packages of a scan
func (e *Exclusions) Evaluate(pkgs map[string]*PackageInfo) *Evaluation {
	ev := &Evaluation{
		Excluded: make(map[string]string),
		Matches:  make(map[string][]string),
	}
	names := sortedNames(pkgs)

	for _, p := range e.Patterns() {
		used := false
		for _, name := range names {
			classes := pkgs[name].Classes
			n := matchCount(p, name, classes)
			if n == 0 {
				continue
			}
			used = true
			if total := classCount(classes); n < total {
				ev.Partial = append(ev.Partial, PartialMatch{Pattern: p, Package: name, Matched: n, Total: total})
				continue
			}
			ev.Matches[p] = append(ev.Matches[p], name)
			if _, done := ev.Excluded[name]; !done {
				ev.Excluded[name] = p
			}
		}
		if !used {
			ev.Unused = append(ev.Unused, p)
		}
	}
	return ev
}

// ExcludedPackages returns the excluded packages, sorted
func (ev *Evaluation) ExcludedPackages() []string {
	return sortedNames(ev.Excluded)
}
