package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"modgraph/internal/paths"
)

// CurrentVersion is the config schema version written by this build
const CurrentVersion = 1

// Config represents the complete modgraph configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Detection DetectionConfig `json:"detection" mapstructure:"detection"`
	Scan      ScanConfig      `json:"scan" mapstructure:"scan"`
	Check     CheckConfig     `json:"check" mapstructure:"check"`
	Storage   StorageConfig   `json:"storage" mapstructure:"storage"`
	Watch     WatchConfig     `json:"watch" mapstructure:"watch"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// DetectionConfig controls how modules are discovered
type DetectionConfig struct {
	// Roots are repo-relative directories searched for build scripts
	Roots []string `json:"roots" mapstructure:"roots"`
	// Ignore are directory names never descended into
	Ignore []string `json:"ignore" mapstructure:"ignore"`
	// BuildFileNames are the build script names that mark a module
	BuildFileNames []string `json:"buildFileNames" mapstructure:"buildFileNames"`
	// DeclarationFile is the optional explicit module declaration file
	DeclarationFile string `json:"declarationFile" mapstructure:"declarationFile"`
}

// ScanConfig controls source scanning for package-level analysis
type ScanConfig struct {
	SourceRoots      []string `json:"sourceRoots" mapstructure:"sourceRoots"`
	Extensions       []string `json:"extensions" mapstructure:"extensions"`
	MaxFileSizeBytes int      `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	ScanTimeoutMs    int      `json:"scanTimeoutMs" mapstructure:"scanTimeoutMs"`
	Workers          int      `json:"workers" mapstructure:"workers"`
}

// CheckConfig controls what the cycle check enforces
type CheckConfig struct {
	IncludeTests         bool `json:"includeTests" mapstructure:"includeTests"`
	PackageCycles        bool `json:"packageCycles" mapstructure:"packageCycles"`
	FailOnUnusedPatterns bool `json:"failOnUnusedPatterns" mapstructure:"failOnUnusedPatterns"`
	FailOnInvalidRefs    bool `json:"failOnInvalidRefs" mapstructure:"failOnInvalidRefs"`
}

// StorageConfig controls run history persistence
type StorageConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	KeepRuns   int  `json:"keepRuns" mapstructure:"keepRuns"`
	CompressLv int  `json:"compressLevel" mapstructure:"compressLevel"`
}

// WatchConfig controls the watch command
type WatchConfig struct {
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounceMs"`
	Patterns       []string `json:"patterns" mapstructure:"patterns"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	File  bool   `json:"file" mapstructure:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Detection: DetectionConfig{
			Roots:           []string{"subprojects", "."},
			Ignore:          []string{".git", ".gradle", ".modgraph", "build", "node_modules", "out"},
			BuildFileNames:  []string{"build.gradle.kts"},
			DeclarationFile: "MODULES.toml",
		},
		Scan: ScanConfig{
			SourceRoots:      []string{"src/main/java", "src/main/kotlin"},
			Extensions:       []string{".java", ".kt"},
			MaxFileSizeBytes: 1000000,
			ScanTimeoutMs:    60000,
			Workers:          4,
		},
		Check: CheckConfig{
			IncludeTests:         false,
			PackageCycles:        true,
			FailOnUnusedPatterns: false,
			FailOnInvalidRefs:    true,
		},
		Storage: StorageConfig{
			Enabled:    true,
			KeepRuns:   200,
			CompressLv: 3,
		},
		Watch: WatchConfig{
			DebounceMs: 750,
			Patterns:   []string{"**/*.gradle.kts", "**/*.java", "**/*.kt", "MODULES.toml"},
			IgnorePatterns: []string{
				".git/**",
				".gradle/**",
				".modgraph/**",
				"**/build/**",
			},
		},
		Logging: LoggingConfig{
			Level: "warn",
			File:  false,
		},
	}
}

// LoadConfig loads configuration from .modgraph/config.json.
// Missing keys fall back to DefaultConfig; MODGRAPH_* environment
// variables override file values (MODGRAPH_SCAN_WORKERS, ...).
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(paths.GetDataDir(repoRoot))

	v.SetEnvPrefix("MODGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)

	v.SetDefault("detection.roots", d.Detection.Roots)
	v.SetDefault("detection.ignore", d.Detection.Ignore)
	v.SetDefault("detection.buildFileNames", d.Detection.BuildFileNames)
	v.SetDefault("detection.declarationFile", d.Detection.DeclarationFile)

	v.SetDefault("scan.sourceRoots", d.Scan.SourceRoots)
	v.SetDefault("scan.extensions", d.Scan.Extensions)
	v.SetDefault("scan.maxFileSizeBytes", d.Scan.MaxFileSizeBytes)
	v.SetDefault("scan.scanTimeoutMs", d.Scan.ScanTimeoutMs)
	v.SetDefault("scan.workers", d.Scan.Workers)

	v.SetDefault("check.includeTests", d.Check.IncludeTests)
	v.SetDefault("check.packageCycles", d.Check.PackageCycles)
	v.SetDefault("check.failOnUnusedPatterns", d.Check.FailOnUnusedPatterns)
	v.SetDefault("check.failOnInvalidRefs", d.Check.FailOnInvalidRefs)

	v.SetDefault("storage.enabled", d.Storage.Enabled)
	v.SetDefault("storage.keepRuns", d.Storage.KeepRuns)
	v.SetDefault("storage.compressLevel", d.Storage.CompressLv)

	v.SetDefault("watch.debounceMs", d.Watch.DebounceMs)
	v.SetDefault("watch.patterns", d.Watch.Patterns)
	v.SetDefault("watch.ignorePatterns", d.Watch.IgnorePatterns)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
}

// Save writes the configuration to .modgraph/config.json
func (c *Config) Save(repoRoot string) error {
	if _, err := paths.EnsureDataDir(repoRoot); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Clean(paths.GetConfigPath(repoRoot)), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if len(c.Detection.BuildFileNames) == 0 {
		return &ConfigError{Field: "detection.buildFileNames", Message: "at least one build file name is required"}
	}
	if c.Scan.Workers < 1 {
		return &ConfigError{Field: "scan.workers", Message: "must be at least 1"}
	}
	if c.Scan.MaxFileSizeBytes <= 0 {
		return &ConfigError{Field: "scan.maxFileSizeBytes", Message: "must be positive"}
	}
	if c.Scan.ScanTimeoutMs <= 0 {
		return &ConfigError{Field: "scan.scanTimeoutMs", Message: "must be positive"}
	}
	for _, ext := range c.Scan.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return &ConfigError{Field: "scan.extensions", Message: "extension " + ext + " must start with '.'"}
		}
	}
	if c.Storage.KeepRuns < 0 {
		return &ConfigError{Field: "storage.keepRuns", Message: "must not be negative"}
	}
	if c.Storage.CompressLv < 1 || c.Storage.CompressLv > 4 {
		return &ConfigError{Field: "storage.compressLevel", Message: "must be between 1 and 4"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "off":
	default:
		return &ConfigError{Field: "logging.level", Message: "unknown level " + c.Logging.Level}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
