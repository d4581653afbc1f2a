package testutil

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	uuidPattern      = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})`)
	durationPattern  = regexp.MustCompile(`"durationMs":\s*\d+`)
)

// Normalize replaces volatile parts of command output so it can be compared
// across runs: the fixture root, run ids, timestamps and durations.
func Normalize(s, root string) string {
	if root != "" {
		s = strings.ReplaceAll(s, root, "<root>")
		s = strings.ReplaceAll(s, filepath.ToSlash(root), "<root>")
	}
	s = uuidPattern.ReplaceAllString(s, "<id>")
	s = timestampPattern.ReplaceAllString(s, "<time>")
	s = durationPattern.ReplaceAllString(s, `"durationMs": 0`)
	return s
}
