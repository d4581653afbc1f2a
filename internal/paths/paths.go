package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DataDirName is the per-repository directory holding config, history and logs
const DataDirName = ".modgraph"

// DataDirEnvVar overrides the data directory location
const DataDirEnvVar = "MODGRAPH_DATA_DIR"

// CanonicalizePath converts an absolute path to a repo-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to repo root
// - Converts backslashes to forward slashes
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	repoRootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if os.IsNotExist(err) {
			repoRootResolved = repoRoot
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(repoRootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath normalizes a path by converting backslashes to forward slashes
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// JoinRepoPath joins a repo root with a canonical path
func JoinRepoPath(repoRoot string, canonicalPath string) string {
	normalizedPath := strings.ReplaceAll(canonicalPath, "\\", "/")
	parts := strings.Split(normalizedPath, "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}

// PackagePath converts a dotted package name to the slash form that
// exclusion patterns are written against: org.gradle.api -> org/gradle/api
func PackagePath(pkg string) string {
	return strings.ReplaceAll(pkg, ".", "/")
}

// GetDataDir returns the data directory for a repository
func GetDataDir(repoRoot string) string {
	if dir := os.Getenv(DataDirEnvVar); dir != "" {
		return dir
	}
	return filepath.Join(repoRoot, DataDirName)
}

// EnsureDataDir creates the data directory if needed and returns its path
func EnsureDataDir(repoRoot string) (string, error) {
	dir := GetDataDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// GetConfigPath returns the path of config.json
func GetConfigPath(repoRoot string) string {
	return filepath.Join(GetDataDir(repoRoot), "config.json")
}

// GetDatabasePath returns the path of the run history database
func GetDatabasePath(repoRoot string) string {
	return filepath.Join(GetDataDir(repoRoot), "modgraph.db")
}

// GetBaselinePath returns the path of the accepted-findings baseline
func GetBaselinePath(repoRoot string) string {
	return filepath.Join(GetDataDir(repoRoot), "baseline.toml")
}

// GetLogsDir returns the log directory
func GetLogsDir(repoRoot string) string {
	return filepath.Join(GetDataDir(repoRoot), "logs")
}

// GetLogPath returns the path of the CLI log file
func GetLogPath(repoRoot string) string {
	return filepath.Join(GetLogsDir(repoRoot), "modgraph.log")
}

// EnsureLogsDir creates the log directory if needed
func EnsureLogsDir(repoRoot string) (string, error) {
	dir := GetLogsDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create logs directory: %w", err)
	}
	return dir, nil
}
