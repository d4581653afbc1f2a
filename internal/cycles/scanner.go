package cycles

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"modgraph/internal/config"
	mgerrors "modgraph/internal/errors"
	"modgraph/internal/modules"
	"modgraph/internal/paths"
)

// extractor reads the package and imports of one source file
type extractor interface {
	extract(ctx context.Context, src []byte, lang Language) (string, []Import, error)
}

// ScanOptions bounds a source scan
type ScanOptions struct {
	SourceRoots []string
	Extensions  []string
	MaxFileSize int64
	Timeout     time.Duration
	Workers     int
}

// OptionsFromConfig builds scan options from the scan section of the config
func OptionsFromConfig(cfg *config.Config) ScanOptions {
	return ScanOptions{
		SourceRoots: cfg.Scan.SourceRoots,
		Extensions:  cfg.Scan.Extensions,
		MaxFileSize: int64(cfg.Scan.MaxFileSizeBytes),
		Timeout:     time.Duration(cfg.Scan.ScanTimeoutMs) * time.Millisecond,
		Workers:     cfg.Scan.Workers,
	}
}

// PackageInfo is one package declared inside a module
type PackageInfo struct {
	Name    string   `json:"name"`
	Files   []string `json:"files"`
	Classes []string `json:"classes"`
}

// EdgeRef is a package dependency with the first import that creates it
type EdgeRef struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
}

// ModuleScan is the package graph of one module
type ModuleScan struct {
	Module   string                  `json:"module"`
	Packages map[string]*PackageInfo `json:"packages"`
	// Edges maps from -> to -> first import creating the edge
	Edges   map[string]map[string]EdgeRef `json:"edges"`
	Files   int                           `json:"files"`
	Skipped int                           `json:"skipped"`
	Parser  string                        `json:"parser"`
}

// PackageNames returns the declared packages, sorted
func (s *ModuleScan) PackageNames() []string {
	names := make([]string, 0, len(s.Packages))
	for n := range s.Packages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// EdgeList returns all package edges sorted by source and target
func (s *ModuleScan) EdgeList() []EdgeRef {
	var out []EdgeRef
	for _, from := range sortedNames(s.Edges) {
		for _, to := range sortedNames(s.Edges[from]) {
			out = append(out, s.Edges[from][to])
		}
	}
	return out
}

// Scanner extracts package graphs from module sources
type Scanner struct {
	opts   ScanOptions
	logger *slog.Logger
}

// NewScanner creates a scanner
func NewScanner(opts ScanOptions, logger *slog.Logger) *Scanner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".java", ".kt"}
	}
	return &Scanner{opts: opts, logger: logger.With("component", "scanner")}
}

// ScanAll scans modules concurrently with at most Workers in flight. The
// result is in the order of mods. Exceeding Timeout yields a SCAN_TIMEOUT
// error; cancellation of ctx yields ctx.Err().
func (s *Scanner) ScanAll(ctx context.Context, repoRoot string, mods []*modules.Module) ([]*ModuleScan, error) {
	scanCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	results := make([]*ModuleScan, len(mods))
	g, gctx := errgroup.WithContext(scanCtx)
	g.SetLimit(s.opts.Workers)
	for i, m := range mods {
		i, m := i, m
		g.Go(func() error {
			res, err := s.ScanModule(gctx, repoRoot, m)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, mgerrors.Errorf(mgerrors.ScanTimeout, "source scan exceeded %s", s.opts.Timeout)
		}
		return nil, err
	}
	return results, nil
}

// ScanModule scans one module's source roots and builds its package graph.
// Only imports of packages declared in the same module become edges.
func (s *Scanner) ScanModule(ctx context.Context, repoRoot string, mod *modules.Module) (*ModuleScan, error) {
	roots := s.opts.SourceRoots
	if len(mod.SourceRoots) > 0 {
		roots = mod.SourceRoots
	}

	ext := newExtractor()
	scan := &ModuleScan{
		Module:   mod.Name,
		Packages: make(map[string]*PackageInfo),
		Edges:    make(map[string]map[string]EdgeRef),
		Parser:   ParserName,
	}

	var files []SourceFile
	for _, root := range roots {
		dir := filepath.Join(repoRoot, filepath.FromSlash(mod.Dir), filepath.FromSlash(root))
		if _, err := os.Stat(dir); err != nil {
			continue
		}

		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			if d.IsDir() {
				return nil
			}
			lang, ok := s.language(path)
			if !ok {
				return nil
			}

			rel, err := filepath.Rel(repoRoot, path)
			if err != nil {
				return err
			}
			rel = paths.NormalizePath(rel)

			info, err := d.Info()
			if err != nil {
				return err
			}
			if s.opts.MaxFileSize > 0 && info.Size() > s.opts.MaxFileSize {
				s.logger.Debug("Skipping large file", "file", rel, "size", info.Size())
				scan.Skipped++
				return nil
			}

			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			pkg, imports, err := ext.extract(ctx, src, lang)
			if err != nil {
				if cerr := ctx.Err(); cerr != nil {
					return cerr
				}
				s.logger.Warn("Failed to parse source file", "file", rel, "error", err)
				scan.Skipped++
				return nil
			}
			if pkg == "" {
				s.logger.Debug("Skipping file in the default package", "file", rel)
				scan.Skipped++
				return nil
			}

			files = append(files, SourceFile{
				Path:    rel,
				Class:   classFromPath(path),
				Package: pkg,
				Imports: imports,
			})
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to scan %s of module %s: %w", root, mod.Name, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	for _, f := range files {
		p, ok := scan.Packages[f.Package]
		if !ok {
			p = &PackageInfo{Name: f.Package}
			scan.Packages[f.Package] = p
		}
		p.Files = append(p.Files, f.Path)
		p.Classes = appendUnique(p.Classes, f.Class)
	}
	scan.Files = len(files)

	for _, f := range files {
		for _, imp := range f.Imports {
			target := imp.Package()
			if target == "" || target == f.Package {
				continue
			}
			if _, internal := scan.Packages[target]; !internal {
				continue
			}
			if _, seen := scan.Edges[f.Package][target]; seen {
				continue
			}
			if scan.Edges[f.Package] == nil {
				scan.Edges[f.Package] = make(map[string]EdgeRef)
			}
			scan.Edges[f.Package][target] = EdgeRef{From: f.Package, To: target, File: f.Path, Line: imp.Line}
		}
	}

	for _, p := range scan.Packages {
		sort.Strings(p.Classes)
	}

	s.logger.Debug("Scanned module",
		"module", mod.Name,
		"files", scan.Files,
		"packages", len(scan.Packages),
		"skipped", scan.Skipped,
	)
	return scan, nil
}

func (s *Scanner) language(path string) (Language, bool) {
	ext := filepath.Ext(path)
	for _, e := range s.opts.Extensions {
		if strings.EqualFold(e, ext) {
			return LanguageFromExtension(ext)
		}
	}
	return "", false
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func sortedNames[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
