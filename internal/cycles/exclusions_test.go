package cycles

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	mgerrors "modgraph/internal/errors"
)

func packages(classes map[string][]string) map[string]*PackageInfo {
	out := make(map[string]*PackageInfo, len(classes))
	for name, cs := range classes {
		out[name] = &PackageInfo{Name: name, Classes: cs}
	}
	return out
}

func TestCompileExclusions_Invalid(t *testing.T) {
	ex, err := CompileExclusions([]string{"org/gradle/a/**", "org/[", "  ", "org/gradle/b/*"})
	if err == nil {
		t.Fatal("expected an error for invalid patterns")
	}
	if !mgerrors.IsCode(err, mgerrors.InvalidPattern) {
		t.Errorf("code = %s, want %s", mgerrors.CodeOf(err), mgerrors.InvalidPattern)
	}
	if diff := cmp.Diff([]string{"org/gradle/a/**", "org/gradle/b/*"}, ex.Patterns()); diff != "" {
		t.Errorf("valid patterns mismatch (-want +got):\n%s", diff)
	}
}

func TestExclusions_Match(t *testing.T) {
	ex, err := CompileExclusions([]string{
		"org/gradle/model/internal/core/**",
		"org/gradle/api/internal/plugins/*",
		"org/gradle/util/Legacy*",
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		pkg     string
		classes []string
		want    string
	}{
		{"org.gradle.model.internal.core", []string{"ModelPath"}, "org/gradle/model/internal/core/**"},
		{"org.gradle.model.internal.core.rule", []string{"Rule"}, "org/gradle/model/internal/core/**"},
		{"org.gradle.model.internal.coreext", []string{"Ext"}, ""},
		{"org.gradle.api.internal.plugins", []string{"A", "B"}, "org/gradle/api/internal/plugins/*"},
		{"org.gradle.api.internal.plugins.dsl", []string{"C"}, ""},
		{"org.gradle.util", []string{"LegacyA", "LegacyB"}, "org/gradle/util/Legacy*"},
		{"org.gradle.util", []string{"LegacyA", "GUtil"}, ""},
		{"org.gradle.model.internal.core", nil, "org/gradle/model/internal/core/**"},
	}

	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			if got := ex.Match(tt.pkg, tt.classes); got != tt.want {
				t.Errorf("Match(%s, %v) = %q, want %q", tt.pkg, tt.classes, got, tt.want)
			}
		})
	}
}

func TestExclusions_Evaluate(t *testing.T) {
	ex, err := CompileExclusions([]string{
		"org/gradle/core/**",
		"org/gradle/core/inner/*",
		"org/gradle/util/Legacy*",
		"org/gradle/gone/**",
	})
	if err != nil {
		t.Fatal(err)
	}

	ev := ex.Evaluate(packages(map[string][]string{
		"org.gradle.core":       {"Core"},
		"org.gradle.core.inner": {"Inner"},
		"org.gradle.util":       {"GUtil", "LegacyThing"},
		"org.gradle.api":        {"Action"},
	}))

	wantExcluded := map[string]string{
		"org.gradle.core":       "org/gradle/core/**",
		"org.gradle.core.inner": "org/gradle/core/**",
	}
	if diff := cmp.Diff(wantExcluded, ev.Excluded); diff != "" {
		t.Errorf("Excluded mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"org.gradle.core.inner"}, ev.Matches["org/gradle/core/inner/*"]); diff != "" {
		t.Errorf("Matches mismatch (-want +got):\n%s", diff)
	}
	wantPartial := []PartialMatch{{Pattern: "org/gradle/util/Legacy*", Package: "org.gradle.util", Matched: 1, Total: 2}}
	if diff := cmp.Diff(wantPartial, ev.Partial); diff != "" {
		t.Errorf("Partial mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"org/gradle/gone/**"}, ev.Unused); diff != "" {
		t.Errorf("Unused mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"org.gradle.core", "org.gradle.core.inner"}, ev.ExcludedPackages()); diff != "" {
		t.Errorf("ExcludedPackages mismatch (-want +got):\n%s", diff)
	}
}

func TestExclusions_Nil(t *testing.T) {
	var ex *Exclusions
	if ex.Len() != 0 || ex.Match("a.b", []string{"C"}) != "" {
		t.Error("nil exclusions should match nothing")
	}
	ev := ex.Evaluate(packages(map[string][]string{"a.b": {"C"}}))
	if len(ev.Excluded) != 0 || len(ev.Unused) != 0 {
		t.Errorf("unexpected evaluation: %+v", ev)
	}
}
