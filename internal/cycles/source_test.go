package cycles

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestImport_Package(t *testing.T) {
	tests := []struct {
		name string
		imp  Import
		want string
	}{
		{"class", Import{Path: "org.gradle.model.internal.core.ModelPath"}, "org.gradle.model.internal.core"},
		{"nested class", Import{Path: "org.gradle.api.Action.Inner"}, "org.gradle.api"},
		{"wildcard package", Import{Path: "org.gradle.util", Wildcard: true}, "org.gradle.util"},
		{"wildcard members of class", Import{Path: "org.gradle.util.GUtil", Wildcard: true}, "org.gradle.util"},
		{"static member", Import{Path: "org.gradle.util.GUtil.toWords", Static: true}, "org.gradle.util"},
		{"lower-case static", Import{Path: "org.gradle.util.helpers.call", Static: true}, "org.gradle.util"},
		{"kotlin function", Import{Path: "org.gradle.kotlin.dsl.apply"}, "org.gradle.kotlin.dsl"},
		{"single segment", Import{Path: "foo"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.imp.Package(); got != tt.want {
				t.Errorf("Package() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseImportText(t *testing.T) {
	tests := []struct {
		text string
		want Import
		ok   bool
	}{
		{"import a.b.C;", Import{Path: "a.b.C", Line: 3}, true},
		{"import static a.b.C.m;", Import{Path: "a.b.C.m", Static: true, Line: 3}, true},
		{"import a.b.*;", Import{Path: "a.b", Wildcard: true, Line: 3}, true},
		{"import a.b.C as D", Import{Path: "a.b.C", Line: 3}, true},
		{"import a.`when`.C", Import{Path: "a.when.C", Line: 3}, true},
		{"import", Import{}, false},
		{"package a.b", Import{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := parseImportText(tt.text, 3)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("import mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractWithRegex(t *testing.T) {
	src := `/*
 * Copyright header
 */
@file:JvmName("Names")

package org.gradle.api.internal // trailing comment

import org.gradle.api.Action
// import org.gradle.commented.Out
import static org.gradle.util.GUtil.toWords;
/* import org.gradle.also.Commented; */
import org.gradle.model.*

class Names {
    import org.gradle.not.AnImport
}
`
	pkg, imports := extractWithRegex([]byte(src))
	if pkg != "org.gradle.api.internal" {
		t.Errorf("package = %q", pkg)
	}
	want := []Import{
		{Path: "org.gradle.api.Action", Line: 8},
		{Path: "org.gradle.util.GUtil.toWords", Static: true, Line: 10},
		{Path: "org.gradle.model", Wildcard: true, Line: 12},
	}
	if diff := cmp.Diff(want, imports); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractWithRegex_InlineBlockComments(t *testing.T) {
	src := `/* generated */ package org.demo.app;
import org.demo.core.Core; /* keep
   sorted */ import org.demo.ui.View;
/** docs */ import static org.demo.util.Strings.trim; // trailing

public class App {}
`
	pkg, imports := extractWithRegex([]byte(src))
	if pkg != "org.demo.app" {
		t.Errorf("package = %q, want org.demo.app", pkg)
	}
	want := []Import{
		{Path: "org.demo.core.Core", Line: 2},
		{Path: "org.demo.ui.View", Line: 3},
		{Path: "org.demo.util.Strings.trim", Static: true, Line: 4},
	}
	if diff := cmp.Diff(want, imports); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		in        string
		inBlock   bool
		want      string
		wantBlock bool
	}{
		{"package a; // note", false, "package a; ", false},
		{"/* c */ package a;", false, "  package a;", false},
		{"import a.B; /* open", false, "import a.B; ", true},
		{"still open", true, "", true},
		{"end */ import a.C;", true, "  import a.C;", false},
		{"/* a */ x /* b */", false, "  x  ", false},
	}
	for _, tt := range tests {
		got, block := stripComments(tt.in, tt.inBlock)
		if got != tt.want || block != tt.wantBlock {
			t.Errorf("stripComments(%q, %v) = %q, %v; want %q, %v", tt.in, tt.inBlock, got, block, tt.want, tt.wantBlock)
		}
	}
}

func TestLanguageFromExtension(t *testing.T) {
	for ext, want := range map[string]Language{".java": LangJava, ".kt": LangKotlin, ".KT": LangKotlin} {
		got, ok := LanguageFromExtension(ext)
		if !ok || got != want {
			t.Errorf("LanguageFromExtension(%q) = %q, %v", ext, got, ok)
		}
	}
	if _, ok := LanguageFromExtension(".groovy"); ok {
		t.Error("groovy should not be supported")
	}
}
