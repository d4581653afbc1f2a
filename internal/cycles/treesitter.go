//go:build cgo

package cycles

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/kotlin"
)

// ParserName is the extractor used in this build
const ParserName = "tree-sitter"

// treeSitterExtractor reads package and import declarations from the syntax
// tree. It is not safe for concurrent use.
type treeSitterExtractor struct {
	parser *sitter.Parser
}

func newExtractor() extractor {
	return &treeSitterExtractor{parser: sitter.NewParser()}
}

func (e *treeSitterExtractor) extract(ctx context.Context, src []byte, lang Language) (string, []Import, error) {
	var tsLang *sitter.Language
	switch lang {
	case LangJava:
		tsLang = java.GetLanguage()
	case LangKotlin:
		tsLang = kotlin.GetLanguage()
	default:
		return "", nil, fmt.Errorf("unsupported language: %s", lang)
	}

	e.parser.SetLanguage(tsLang)
	tree, err := e.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return "", nil, fmt.Errorf("parse error: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		// Recover what the line reader can see; partial trees drop imports
		pkg, imports := extractWithRegex(src)
		return pkg, imports, nil
	}

	var pkg string
	var imports []Import
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child == nil {
				continue
			}
			switch child.Type() {
			case "package_declaration", "package_header":
				pkg = parsePackageText(child.Content(src))
			case "import_declaration", "import_header":
				if imp, ok := parseImportText(child.Content(src), int(child.StartPoint().Row)+1); ok {
					imports = append(imports, imp)
				}
			case "import_list":
				visit(child)
			}
		}
	}
	visit(root)
	return pkg, imports, nil
}
