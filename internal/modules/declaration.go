package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"modgraph/internal/paths"
)

// ModulesDeclarationFile is the default filename for module declarations
const ModulesDeclarationFile = "MODULES.toml"

// ModuleDeclaration declares a module or overrides a discovered one
type ModuleDeclaration struct {
	// Path is the repo-relative module directory (required)
	Path string `toml:"path"`

	// Name overrides the project path derived from the directory
	Name string `toml:"name,omitempty"`

	// ExcludePatterns are appended to the build script's classycle patterns
	ExcludePatterns []string `toml:"exclude_patterns,omitempty"`

	// SourceRoots replaces the configured source roots for this module
	SourceRoots []string `toml:"source_roots,omitempty"`

	// Skip removes the module from analysis
	Skip bool `toml:"skip,omitempty"`

	// Dependencies are appended to the declared dependencies
	Dependencies []DependencyDeclaration `toml:"dependency,omitempty"`
}

// DependencyDeclaration is a project dependency declared in MODULES.toml
type DependencyDeclaration struct {
	Scope   string `toml:"scope"`
	Project string `toml:"project"`

	// TestFixtures targets the test-fixtures variant of the project
	TestFixtures bool `toml:"test_fixtures,omitempty"`
}

// ModulesFile represents the root structure of MODULES.toml
type ModulesFile struct {
	// Version is the schema version
	Version int `toml:"version"`

	// Modules is the list of declared modules
	Modules []ModuleDeclaration `toml:"module"`
}

// ParseModulesFile parses a MODULES.toml file from the given path
func ParseModulesFile(filePath string) (*ModulesFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(filePath), err)
	}

	var modulesFile ModulesFile
	if err := toml.Unmarshal(data, &modulesFile); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(filePath), err)
	}

	if modulesFile.Version < 1 {
		modulesFile.Version = 1
	}

	for i, decl := range modulesFile.Modules {
		if strings.TrimSpace(decl.Path) == "" {
			return nil, fmt.Errorf("module declaration %d missing required 'path' field", i+1)
		}
		for j, dep := range decl.Dependencies {
			if dep.Scope == "" || dep.Project == "" {
				return nil, fmt.Errorf("module %s: dependency %d needs 'scope' and 'project'", decl.Path, j+1)
			}
		}
	}

	return &modulesFile, nil
}

// LoadDeclarations loads MODULES.toml if it exists. A missing file is not
// an error and yields nil.
func LoadDeclarations(repoRoot string, declarationFile string) (*ModulesFile, error) {
	if declarationFile == "" {
		declarationFile = ModulesDeclarationFile
	}

	filePath := filepath.Join(repoRoot, declarationFile)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, nil
	}

	return ParseModulesFile(filePath)
}

// ApplyDeclarations merges declarations into discovered modules. Declarations
// match modules by directory; unmatched declarations add new modules. It
// returns the resulting modules sorted by name and the number of modules the
// file touched.
func ApplyDeclarations(mods []*Module, file *ModulesFile) ([]*Module, int, error) {
	byDir := make(map[string]*Module, len(mods))
	for _, m := range mods {
		byDir[m.Dir] = m
	}

	skipped := make(map[*Module]bool)
	touched := 0
	for _, decl := range file.Modules {
		dir := paths.NormalizePath(filepath.Clean(decl.Path))
		m, ok := byDir[dir]
		if !ok {
			m = &Module{Name: ProjectName(dir), Dir: dir}
			byDir[dir] = m
			mods = append(mods, m)
		}
		m.Declared = true
		touched++

		if decl.Skip {
			skipped[m] = true
			continue
		}
		if decl.Name != "" {
			if !strings.HasPrefix(decl.Name, ":") {
				return nil, 0, fmt.Errorf("module %s: name %q must start with ':'", decl.Path, decl.Name)
			}
			m.Name = decl.Name
		}
		m.ExcludePatterns = append(m.ExcludePatterns, decl.ExcludePatterns...)
		if len(decl.SourceRoots) > 0 {
			m.SourceRoots = append([]string(nil), decl.SourceRoots...)
		}
		for _, dep := range decl.Dependencies {
			kind := TargetProject
			if dep.TestFixtures {
				kind = TargetTestFixtures
			}
			m.Dependencies = append(m.Dependencies, Dependency{
				Scope:  ParseScope(dep.Scope),
				Kind:   kind,
				Target: dep.Project,
			})
		}
	}

	out := mods[:0]
	for _, m := range mods {
		if !skipped[m] {
			out = append(out, m)
		}
	}
	SortByName(out)
	return out, touched, nil
}

// ExampleDeclarations is written by `modgraph init`
const ExampleDeclarations = `# Module declarations for modgraph.
# Entries match discovered modules by path; unmatched entries add modules.
version = 1

# [[module]]
# path = "subprojects/model-core"
# exclude_patterns = ["org/gradle/model/internal/core/**"]
#
# [[module.dependency]]
# scope = "implementation"
# project = ":baseServices"
`
