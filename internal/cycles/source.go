// Package cycles finds package-level dependency cycles inside a module and
// applies the module's exclusion patterns to them.
package cycles

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// Language of a source file
type Language string

const (
	LangJava   Language = "java"
	LangKotlin Language = "kotlin"
)

// LanguageFromExtension maps a file extension to a language
func LanguageFromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	default:
		return "", false
	}
}

// Import is one import directive
type Import struct {
	// Path is the dotted import path without the trailing ".*"
	Path     string `json:"path"`
	Static   bool   `json:"static,omitempty"`
	Wildcard bool   `json:"wildcard,omitempty"`
	Line     int    `json:"line"`
}

// SourceFile is the package and imports of one source file
type SourceFile struct {
	Path    string   `json:"path"`
	Class   string   `json:"class"`
	Package string   `json:"package"`
	Imports []Import `json:"imports,omitempty"`
}

// Package returns the package an import refers to. Class imports drop the
// class segment and everything after it; static imports drop the member and
// the class; wildcard imports name the package itself unless they follow a
// class segment.
func (i Import) Package() string {
	segs := strings.Split(i.Path, ".")
	for idx, s := range segs {
		if startsUpper(s) {
			return strings.Join(segs[:idx], ".")
		}
	}

	// No class-like segment: fall back on position
	switch {
	case i.Wildcard:
		return i.Path
	case i.Static && len(segs) > 2:
		return strings.Join(segs[:len(segs)-2], ".")
	case len(segs) > 1:
		return strings.Join(segs[:len(segs)-1], ".")
	default:
		return ""
	}
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// parseImportText parses the text of an import directive such as
// "import static a.b.C.m;" or "import a.b.C as D".
func parseImportText(text string, line int) (Import, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ";")
	fields := strings.Fields(text)
	if len(fields) < 2 || fields[0] != "import" {
		return Import{}, false
	}

	imp := Import{Line: line}
	path := fields[1]
	if path == "static" {
		if len(fields) < 3 {
			return Import{}, false
		}
		imp.Static = true
		path = fields[2]
	}

	path = strings.ReplaceAll(path, "`", "")
	path = strings.ReplaceAll(path, " ", "")
	if strings.HasSuffix(path, ".*") {
		imp.Wildcard = true
		path = strings.TrimSuffix(path, ".*")
	}
	if path == "" {
		return Import{}, false
	}
	imp.Path = path
	return imp, true
}

// parsePackageText parses "package a.b.c;" or "package a.b.c"
func parsePackageText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ";")
	fields := strings.Fields(text)
	if len(fields) < 2 || fields[0] != "package" {
		return ""
	}
	return strings.ReplaceAll(fields[1], "`", "")
}

var (
	packageLine = regexp.MustCompile(`^\s*package\s+[\p{L}\p{N}_.` + "`" + `]+`)
	importLine  = regexp.MustCompile(`^\s*import\s+(?:static\s+)?[\p{L}\p{N}_.*` + "`" + `]+(?:\s+as\s+\S+)?\s*;?`)
)

// extractWithRegex reads the package and imports line by line. Block
// comments are skipped; scanning stops at the first line that is neither
// blank, comment, annotation, package nor import.
func extractWithRegex(src []byte) (pkg string, imports []Import) {
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inComment := false
	line := 0
	for sc.Scan() {
		line++
		var text string
		text, inComment = stripComments(sc.Text(), inComment)

		trimmed := strings.TrimSpace(text)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "@file:"):
			continue
		case packageLine.MatchString(text):
			pkg = parsePackageText(packageLine.FindString(text))
		case importLine.MatchString(text):
			if imp, ok := parseImportText(importLine.FindString(text), line); ok {
				imports = append(imports, imp)
			}
		default:
			return pkg, imports
		}
	}
	return pkg, imports
}

// stripComments removes block and line comments from one line. inBlock
// tells whether the line starts inside a block comment; the second result
// tells whether it ends inside one.
func stripComments(text string, inBlock bool) (string, bool) {
	var b strings.Builder
	for text != "" {
		if inBlock {
			end := strings.Index(text, "*/")
			if end < 0 {
				return b.String(), true
			}
			text = text[end+2:]
			inBlock = false
			b.WriteByte(' ')
			continue
		}
		block := strings.Index(text, "/*")
		line := strings.Index(text, "//")
		if line >= 0 && (block < 0 || line < block) {
			b.WriteString(text[:line])
			return b.String(), false
		}
		if block < 0 {
			b.WriteString(text)
			break
		}
		b.WriteString(text[:block])
		text = text[block+2:]
		inBlock = true
	}
	return b.String(), inBlock
}

// classFromPath returns the class name of a source file: Foo.java -> Foo
func classFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
