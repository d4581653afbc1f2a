// Package version holds the modgraph build identity, set with ldflags:
//
//	go build -ldflags "-X modgraph/internal/version.Version=0.5.0 -X modgraph/internal/version.Commit=$(git rev-parse HEAD)"
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// shortCommit is the abbreviated commit, or "" when the build did not set one
func shortCommit() string {
	if Commit == "" || Commit == "unknown" {
		return ""
	}
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}

// Info is the one-line version shown by --version, e.g. "0.4.0 (1a2b3c4)"
func Info() string {
	if c := shortCommit(); c != "" {
		return fmt.Sprintf("%s (%s)", Version, c)
	}
	return Version
}

// Full is the multi-line block printed by the version command. Lines for
// unset build fields are left out.
func Full() string {
	lines := []string{"modgraph version " + Info()}
	if Commit != "" && Commit != "unknown" {
		lines = append(lines, "Commit: "+Commit)
	}
	if BuildDate != "" && BuildDate != "unknown" {
		lines = append(lines, "Built: "+BuildDate)
	}
	lines = append(lines, fmt.Sprintf("Go: %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH))
	return strings.Join(lines, "\n")
}
