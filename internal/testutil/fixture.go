// Package testutil lays out multi-module builds on disk for tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Build is a temporary repository with Kotlin-DSL build scripts and sources.
type Build struct {
	t *testing.T

	// Root is the absolute path to the repository root
	Root string
}

// NewBuild creates an empty build in a fresh temp directory.
func NewBuild(t *testing.T) *Build {
	t.Helper()
	return &Build{t: t, Root: t.TempDir()}
}

// File writes content to a repo-relative path, creating parent directories.
func (b *Build) File(rel, content string) string {
	b.t.Helper()

	path := filepath.Join(b.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		b.t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		b.t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return path
}

// Module writes dir/build.gradle.kts with the given script body.
func (b *Build) Module(dir, script string) {
	b.t.Helper()
	b.File(filepath.ToSlash(filepath.Join(dir, "build.gradle.kts")), script)
}

// JavaClass writes a Java source file under dir/src/main/java for the
// fully qualified class name, with the given imports.
func (b *Build) JavaClass(dir, fqcn string, imports ...string) {
	b.t.Helper()

	pkg, class := splitClass(fqcn)
	var sb strings.Builder
	if pkg != "" {
		sb.WriteString("package " + pkg + ";\n\n")
	}
	for _, imp := range imports {
		sb.WriteString("import " + imp + ";\n")
	}
	sb.WriteString("\npublic class " + class + " {\n}\n")

	rel := filepath.Join(dir, "src", "main", "java", filepath.FromSlash(strings.ReplaceAll(fqcn, ".", "/"))+".java")
	b.File(filepath.ToSlash(rel), sb.String())
}

// KotlinFile writes a Kotlin source file under dir/src/main/kotlin.
func (b *Build) KotlinFile(dir, fqcn string, imports ...string) {
	b.t.Helper()

	pkg, class := splitClass(fqcn)
	var sb strings.Builder
	if pkg != "" {
		sb.WriteString("package " + pkg + "\n\n")
	}
	for _, imp := range imports {
		sb.WriteString("import " + imp + "\n")
	}
	sb.WriteString("\nclass " + class + "\n")

	rel := filepath.Join(dir, "src", "main", "kotlin", filepath.FromSlash(strings.ReplaceAll(fqcn, ".", "/"))+".kt")
	b.File(filepath.ToSlash(rel), sb.String())
}

// Path returns the absolute path of a repo-relative path.
func (b *Build) Path(rel string) string {
	return filepath.Join(b.Root, filepath.FromSlash(rel))
}

func splitClass(fqcn string) (pkg, class string) {
	i := strings.LastIndex(fqcn, ".")
	if i < 0 {
		return "", fqcn
	}
	return fqcn[:i], fqcn[i+1:]
}
