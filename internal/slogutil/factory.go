package slogutil

import (
	"io"
	"log/slog"
	"os"

	"modgraph/internal/config"
	"modgraph/internal/paths"
)

// Options selects the CLI logger's level and destinations.
type Options struct {
	// Verbosity is the count of -v flags; it only raises the level
	// above the configured one.
	Verbosity int
	Quiet     bool
	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// EffectiveLevel resolves the level with precedence
// --quiet > -v flags > MODGRAPH_LOG_LEVEL > config logging.level.
// Unrecognized level names are skipped.
func EffectiveLevel(cfg *config.Config, opts Options) slog.Level {
	if opts.Quiet {
		return Silent
	}
	if opts.Verbosity > 0 {
		return verbosityLevel(opts.Verbosity)
	}
	if l, ok := ParseLevel(os.Getenv("MODGRAPH_LOG_LEVEL")); ok {
		return l
	}
	if cfg != nil {
		if l, ok := ParseLevel(cfg.Logging.Level); ok {
			return l
		}
	}
	return slog.LevelWarn
}

// NewCLILogger builds the logger used by commands. When logging.file is
// enabled the records are also appended to .modgraph/logs/modgraph.log at
// debug level. The returned closer is never nil.
func NewCLILogger(repoRoot string, cfg *config.Config, opts Options) (*slog.Logger, io.Closer) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	console := NewLineHandler(stderr, &slog.HandlerOptions{Level: EffectiveLevel(cfg, opts)})

	if cfg == nil || !cfg.Logging.File || repoRoot == "" {
		return slog.New(console), nopCloser{}
	}
	if _, err := paths.EnsureLogsDir(repoRoot); err != nil {
		return slog.New(console), nopCloser{}
	}
	f, err := os.OpenFile(paths.GetLogPath(repoRoot), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return slog.New(console), nopCloser{}
	}
	file := NewLineHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(fanout{console, file}), f
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
