//go:build !cgo

package cycles

import "context"

// ParserName is the extractor used in this build
const ParserName = "regex"

// regexExtractor is used when tree-sitter is unavailable (CGO disabled)
type regexExtractor struct{}

func newExtractor() extractor {
	return regexExtractor{}
}

func (regexExtractor) extract(_ context.Context, src []byte, _ Language) (string, []Import, error) {
	pkg, imports := extractWithRegex(src)
	return pkg, imports, nil
}
