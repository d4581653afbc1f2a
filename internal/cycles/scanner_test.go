package cycles

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	mgerrors "modgraph/internal/errors"
	"modgraph/internal/modules"
	"modgraph/internal/slogutil"
	"modgraph/internal/testutil"
)

func testScanner(opts ScanOptions) *Scanner {
	if len(opts.SourceRoots) == 0 {
		opts.SourceRoots = []string{"src/main/java", "src/main/kotlin"}
	}
	return NewScanner(opts, slogutil.NewDiscardLogger())
}

func TestScanModule_PackageGraph(t *testing.T) {
	b := testutil.NewBuild(t)
	b.JavaClass("core", "org.demo.api.Api", "org.demo.impl.Impl", "java.util.List")
	b.JavaClass("core", "org.demo.impl.Impl", "org.demo.api.Api", "org.demo.impl.Helper")
	b.JavaClass("core", "org.demo.impl.Helper", "static org.demo.util.Strings.join")
	b.KotlinFile("core", "org.demo.util.Strings", "org.demo.api.*")
	// Other modules' packages are not edges
	b.JavaClass("other", "org.demo.other.Other")
	b.JavaClass("core", "org.demo.api.UsesOther", "org.demo.other.Other")

	s := testScanner(ScanOptions{})
	scan, err := s.ScanModule(context.Background(), b.Root, &modules.Module{Name: ":core", Dir: "core"})
	if err != nil {
		t.Fatalf("ScanModule failed: %v", err)
	}

	if diff := cmp.Diff([]string{"org.demo.api", "org.demo.impl", "org.demo.util"}, scan.PackageNames()); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Api", "UsesOther"}, scan.Packages["org.demo.api"].Classes); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}
	if scan.Files != 5 {
		t.Errorf("Files = %d, want 5", scan.Files)
	}

	var got []string
	for _, e := range scan.EdgeList() {
		got = append(got, e.From+" -> "+e.To)
	}
	want := []string{
		"org.demo.api -> org.demo.impl",
		"org.demo.impl -> org.demo.api",
		"org.demo.impl -> org.demo.util",
		"org.demo.util -> org.demo.api",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}

	ref := scan.Edges["org.demo.api"]["org.demo.impl"]
	if ref.File != "core/src/main/java/org/demo/api/Api.java" || ref.Line != 3 {
		t.Errorf("edge evidence = %s:%d", ref.File, ref.Line)
	}
}

func TestScanModule_SkipsLargeAndUnpackagedFiles(t *testing.T) {
	b := testutil.NewBuild(t)
	b.JavaClass("core", "org.demo.Small")
	b.JavaClass("core", "Unpackaged")
	b.File("core/src/main/java/org/demo/Big.java", "package org.demo;\n"+strings.Repeat("// padding\n", 200))
	b.File("core/src/main/java/org/demo/notes.txt", "package nothing;")

	s := testScanner(ScanOptions{MaxFileSize: 1000})
	scan, err := s.ScanModule(context.Background(), b.Root, &modules.Module{Name: ":core", Dir: "core"})
	if err != nil {
		t.Fatalf("ScanModule failed: %v", err)
	}
	if scan.Files != 1 || scan.Skipped != 2 {
		t.Errorf("Files = %d, Skipped = %d, want 1 and 2", scan.Files, scan.Skipped)
	}
}

func TestScanModule_SourceRootOverride(t *testing.T) {
	b := testutil.NewBuild(t)
	b.File("core/src/java/org/demo/A.java", "package org.demo;\nclass A {}\n")
	b.JavaClass("core", "org.ignored.B")

	s := testScanner(ScanOptions{})
	scan, err := s.ScanModule(context.Background(), b.Root, &modules.Module{
		Name:        ":core",
		Dir:         "core",
		SourceRoots: []string{"src/java"},
	})
	if err != nil {
		t.Fatalf("ScanModule failed: %v", err)
	}
	if diff := cmp.Diff([]string{"org.demo"}, scan.PackageNames()); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}
}

func TestScanAll(t *testing.T) {
	b := testutil.NewBuild(t)
	b.JavaClass("a", "org.a.A")
	b.JavaClass("b", "org.b.B")
	b.JavaClass("c", "org.c.C")

	mods := []*modules.Module{
		{Name: ":c", Dir: "c"},
		{Name: ":a", Dir: "a"},
		{Name: ":b", Dir: "b"},
	}
	s := testScanner(ScanOptions{Workers: 2, Timeout: time.Minute})
	scans, err := s.ScanAll(context.Background(), b.Root, mods)
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	for i, scan := range scans {
		if scan.Module != mods[i].Name {
			t.Errorf("scans[%d].Module = %s, want %s", i, scan.Module, mods[i].Name)
		}
		if len(scan.Packages) != 1 {
			t.Errorf("%s has %d packages, want 1", scan.Module, len(scan.Packages))
		}
	}
}

func TestScanAll_Cancelled(t *testing.T) {
	b := testutil.NewBuild(t)
	b.JavaClass("a", "org.a.A")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := testScanner(ScanOptions{})
	_, err := s.ScanAll(ctx, b.Root, []*modules.Module{{Name: ":a", Dir: "a"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestScanAll_Timeout(t *testing.T) {
	b := testutil.NewBuild(t)
	b.JavaClass("a", "org.a.A")

	s := testScanner(ScanOptions{Timeout: time.Nanosecond})
	_, err := s.ScanAll(context.Background(), b.Root, []*modules.Module{{Name: ":a", Dir: "a"}})
	if !mgerrors.IsCode(err, mgerrors.ScanTimeout) {
		t.Errorf("err = %v, want SCAN_TIMEOUT", err)
	}
}
