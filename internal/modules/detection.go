package modules

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"modgraph/internal/buildscript"
	"modgraph/internal/config"
	"modgraph/internal/paths"
	"modgraph/internal/slogutil"
)

// gradleScriptSuffix is the suffix of project-named build scripts such as
// subprojects/model-core/model-core.gradle.kts
const gradleScriptSuffix = ".gradle.kts"

// DetectionResult is the outcome of module discovery
type DetectionResult struct {
	Modules []*Module

	// Declared is the number of modules added or changed by MODULES.toml
	Declared int
}

// Discover walks the configured roots for build scripts and parses each one.
// A directory is a module when it contains one of the configured build file
// names or a script named after the directory itself. Parse failures are
// joined into the returned error; the modules that did parse are still
// returned, sorted by name.
func Discover(ctx context.Context, repoRoot string, cfg *config.Config, logger *slog.Logger) ([]*Module, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	ignore := make(map[string]bool, len(cfg.Detection.Ignore))
	for _, d := range cfg.Detection.Ignore {
		ignore[d] = true
	}
	buildNames := make(map[string]bool, len(cfg.Detection.BuildFileNames))
	for _, n := range cfg.Detection.BuildFileNames {
		buildNames[n] = true
	}

	seen := make(map[string]bool)
	var mods []*Module
	var errs []error

	for _, root := range cfg.Detection.Roots {
		absRoot := filepath.Join(repoRoot, filepath.FromSlash(root))
		if _, err := os.Stat(absRoot); os.IsNotExist(err) {
			logger.Debug("Module root does not exist", "root", root)
			continue
		}

		err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if !d.IsDir() {
				return nil
			}
			rel, _ := filepath.Rel(repoRoot, path)
			rel = paths.NormalizePath(rel)
			if rel != "." && ignore[d.Name()] {
				return filepath.SkipDir
			}
			if seen[rel] {
				// Nested root already covered by an earlier walk
				return filepath.SkipDir
			}
			seen[rel] = true

			buildFile := findBuildFile(path, buildNames)
			if buildFile == "" {
				return nil
			}

			buildRel := paths.NormalizePath(filepath.Join(rel, buildFile))
			script, perr := buildscript.ParseFile(filepath.Join(path, buildFile))
			if perr != nil {
				logger.Warn("Failed to parse build script", "file", buildRel, "error", perr)
				errs = append(errs, fmt.Errorf("%s: %w", buildRel, perr))
			} else {
				m := FromScript(ProjectName(rel), rel, buildRel, script)
				logger.Debug("Detected module",
					"name", m.Name,
					"dir", rel,
					"dependencies", len(m.Dependencies),
					"excludePatterns", len(m.ExcludePatterns),
				)
				mods = append(mods, m)
			}

			if rel != "." {
				// Sources of a module are never module roots themselves
				if info, err := os.Stat(filepath.Join(path, "src")); err == nil && info.IsDir() {
					seen[paths.NormalizePath(filepath.Join(rel, "src"))] = true
				}
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	SortByName(mods)
	return mods, errors.Join(errs...)
}

// findBuildFile returns the build script name in dir, preferring the
// configured names over the project-named convention.
func findBuildFile(dir string, buildNames map[string]bool) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	projectScript := filepath.Base(dir) + gradleScriptSuffix
	found := ""
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if buildNames[name] {
			return name
		}
		if name == projectScript && !strings.HasPrefix(name, "settings") {
			found = name
		}
	}
	return found
}

// Load discovers modules and applies the optional declaration file.
// Parse failures are returned as a joined error next to the modules.
func Load(ctx context.Context, repoRoot string, cfg *config.Config, logger *slog.Logger) (*DetectionResult, error) {
	mods, parseErr := Discover(ctx, repoRoot, cfg, logger)
	if mods == nil && parseErr != nil && isContextErr(parseErr) {
		return nil, parseErr
	}

	decls, err := LoadDeclarations(repoRoot, cfg.Detection.DeclarationFile)
	if err != nil {
		return nil, err
	}

	declared := 0
	if decls != nil {
		mods, declared, err = ApplyDeclarations(mods, decls)
		if err != nil {
			return nil, err
		}
	}

	return &DetectionResult{Modules: mods, Declared: declared}, parseErr
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
