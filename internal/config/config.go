// Package config provides configuration types and defaults for hilite.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/hilite/internal/highlight"
	"github.com/zjrosen/hilite/internal/log"
	"github.com/zjrosen/hilite/internal/style"
	"github.com/zjrosen/hilite/internal/tracing"
)

// Config holds all hilite configuration.
type Config struct {
	// PatternDir holds user pattern-set files. They override built-in modes
	// of the same name.
	PatternDir string `mapstructure:"pattern_dir"`

	// Watch reloads pattern files and the viewed file when they change.
	Watch bool `mapstructure:"watch"`

	// Styles overrides or extends the default style table.
	Styles map[string]style.Attributes `mapstructure:"styles"`

	Highlight HighlightConfig `mapstructure:"highlight"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
}

// HighlightConfig tunes the incremental highlighter.
type HighlightConfig struct {
	// ChunkSize is the rune budget of one pass-2 step. Negative means unbounded.
	ChunkSize int `mapstructure:"chunk_size"`

	// MinWindow is the first forward window of a reparse, in runes.
	MinWindow int `mapstructure:"min_window"`

	// MatchTimeout bounds a single regex search.
	MatchTimeout time.Duration `mapstructure:"match_timeout"`

	// CacheTTL is how long an unused compiled pattern set stays cached.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LogConfig controls the debug log.
type LogConfig struct {
	// File enables logging to the given path. Empty disables logging.
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// SchedulerConfig converts the highlight settings into a scheduler config.
func (h HighlightConfig) SchedulerConfig() highlight.Config {
	return highlight.Config{ChunkSize: h.ChunkSize, MinWindow: h.MinWindow}
}

// StyleTable builds the configured style table on top of the defaults.
func (c Config) StyleTable() *style.Table {
	return style.DefaultTable().Merge(c.Styles)
}

// DefaultPatternDir returns ~/.config/hilite/patterns or empty string if the
// home dir is unavailable.
func DefaultPatternDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hilite", "patterns")
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/hilite/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hilite", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	tc := tracing.DefaultConfig()
	tc.FilePath = DefaultTracesFilePath()
	return Config{
		PatternDir: DefaultPatternDir(),
		Watch:      false,
		Highlight: HighlightConfig{
			ChunkSize:    highlight.DefaultChunkSize,
			MinWindow:    highlight.DefaultMinWindow,
			MatchTimeout: 2 * time.Second,
			CacheTTL:     30 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
		Tracing: tc,
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := ValidateHighlight(c.Highlight); err != nil {
		return err
	}
	if err := ValidateStyles(c.Styles); err != nil {
		return err
	}
	if err := ValidateLog(c.Log); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// ValidateHighlight checks highlighter tuning values.
func ValidateHighlight(h HighlightConfig) error {
	if h.MinWindow < 0 {
		return fmt.Errorf("highlight.min_window must not be negative, got %d", h.MinWindow)
	}
	if h.MatchTimeout < 0 {
		return fmt.Errorf("highlight.match_timeout must not be negative, got %s", h.MatchTimeout)
	}
	if h.CacheTTL < 0 {
		return fmt.Errorf("highlight.cache_ttl must not be negative, got %s", h.CacheTTL)
	}
	return nil
}

// ValidateStyles rejects style entries without a name and style names that
// would shadow Plain with a background, which would paint every gap.
func ValidateStyles(styles map[string]style.Attributes) error {
	for name, attrs := range styles {
		if name == "" {
			return fmt.Errorf("styles: name is required")
		}
		if name == style.Plain && attrs.Background != "" {
			return fmt.Errorf("styles.%s: background is not allowed on %s", name, style.Plain)
		}
	}
	return nil
}

// ValidateLog checks the log level.
func ValidateLog(l LogConfig) error {
	switch l.Level {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("log.level must be \"debug\", \"info\", \"warn\", or \"error\", got %q", l.Level)
	}
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tc tracing.Config) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}

	if tc.Exporter != "" {
		switch tc.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
		}
	}

	// Path requirements only matter when tracing is on.
	if tc.Enabled {
		if tc.Exporter == "file" && tc.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tc.Exporter == "otlp" && tc.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# hilite configuration

# Directory of user pattern-set files (*.yaml). A file whose name matches a
# built-in mode replaces it.
# pattern_dir: ~/.config/hilite/patterns

# Reload pattern files and the viewed file when they change
watch: false

highlight:
  chunk_size: 16384     # Runes of deferred (pass 2) highlighting per step; -1 for unbounded
  min_window: 512       # First forward window of an incremental reparse
  match_timeout: 2s     # Per-search regex timeout; a timeout disables the document
  cache_ttl: 30m        # How long an unused compiled pattern set stays cached

# Style overrides. Colors are ANSI indices ("12") or hex ("#FF8787").
# styles:
#   Comment: {fg: "8", italic: true}
#   Keyword: {fg: "12", bold: true}

log:
  level: info
  # file: ~/.config/hilite/debug.log

# Tracing (OpenTelemetry)
# tracing:
#   enabled: false
#   exporter: file        # none, file, stdout, otlp
#   file_path: ~/.config/hilite/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
