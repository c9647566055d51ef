// Package config loads the examiner's process-wide settings from the
// environment once at startup.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/examiner/internal/feedback"
	"github.com/abhisek/examiner/internal/grading"
	"github.com/abhisek/examiner/internal/ingest"
	"github.com/abhisek/examiner/internal/llm"
	"github.com/sethvargo/go-envconfig"
)

// Prefix is prepended to every variable name.
const Prefix = "EXAMINER_"

// Config is the full service configuration.
type Config struct {
	Addr            string `env:"ADDR,default=:8080"`
	MaxDiagramBytes int64  `env:"MAX_DIAGRAM_BYTES,default=10485760"`

	// Extractor selects the feedback extraction strategy: bracket or schema.
	Extractor string `env:"EXTRACTOR,default=bracket"`

	// HighlightPolicy is passthrough, coerce or drop.
	HighlightPolicy string `env:"HIGHLIGHT_POLICY,default=passthrough"`

	// UsageDB is the SQLite usage ledger path. Empty disables the ledger.
	UsageDB string `env:"USAGE_DB"`

	LogLevel string `env:"LOG_LEVEL,default=info"`

	Grading grading.Config
	LLM     llm.Config `env:",prefix=LLM_"`
}

// Load reads the configuration through l (envconfig.OsLookuper() in
// production) and validates it.
func Load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(Prefix, l),
	}); err != nil {
		return nil, fmt.Errorf("process config: %w", err)
	}
	cfg.LLM.ApplyConventionalKeys(l)
	cfg.Grading.Timeout = cfg.LLM.Timeout

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that cannot be expressed as struct tags.
func (c *Config) Validate() error {
	if c.MaxDiagramBytes <= 0 {
		return fmt.Errorf("%sMAX_DIAGRAM_BYTES must be positive, got %d", Prefix, c.MaxDiagramBytes)
	}
	if _, err := c.NewExtractor(); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm config: %w", err)
	}
	return nil
}

// NewExtractor builds the configured feedback extractor.
func (c *Config) NewExtractor() (feedback.Extractor, error) {
	policy, err := feedback.ParseHighlightPolicy(c.HighlightPolicy)
	if err != nil {
		return nil, err
	}
	return feedback.New(c.Extractor, policy)
}

// ParseLogLevel maps debug, info, warn or error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// Default returns the configuration Load produces from an empty
// environment, with the mock provider selected.
func Default() *Config {
	cfg := &Config{
		Addr:            ":8080",
		MaxDiagramBytes: ingest.DefaultMaxDiagramBytes,
		Extractor:       "bracket",
		HighlightPolicy: string(feedback.PolicyPassthrough),
		LogLevel:        "info",
		Grading:         grading.DefaultConfig(),
		LLM:             llm.DefaultConfig(),
	}
	cfg.LLM.Provider = "mock"
	cfg.Grading.Timeout = cfg.LLM.Timeout
	return cfg
}
