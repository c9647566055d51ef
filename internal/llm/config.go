package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider serves the text grading call.
	// Values: "anthropic", "openai", "gemini", "openrouter", "mock"
	Provider string `env:"PROVIDER,default=openai"`

	// VisionProvider selects the provider for diagram critique. Empty means
	// the text provider is reused.
	VisionProvider string `env:"VISION_PROVIDER"`

	// VisionModel overrides the selected provider's model for diagram
	// critique. Empty means the provider's configured model.
	VisionModel string `env:"VISION_MODEL"`

	Anthropic  AnthropicConfig  `env:",prefix=ANTHROPIC_"`
	OpenAI     OpenAIConfig     `env:",prefix=OPENAI_"`
	Gemini     GeminiConfig     `env:",prefix=GEMINI_"`
	OpenRouter OpenRouterConfig `env:",prefix=OPENROUTER_"`
	Retry      RetryConfig      `env:",prefix=RETRY_"`

	// Timeout is the maximum duration for a single grading request's model
	// calls (including retries). Default: 60s.
	Timeout time.Duration `env:"TIMEOUT,default=60s"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL,default=claude-sonnet"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL,default=gpt-4o"`
	BaseURL string `env:"BASE_URL"` // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL,default=gemini-flash"`
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL,default=openai/gpt-4o"`
	BaseURL string `env:"BASE_URL"` // Default: "https://openrouter.ai/api/v1"
}

// RetryConfig configures retry behavior for transient failures.
// MaxAttempts of 1 disables retries.
type RetryConfig struct {
	MaxAttempts int           `env:"MAX_ATTEMPTS,default=1"`
	InitialWait time.Duration `env:"INITIAL_WAIT,default=1s"`
	MaxWait     time.Duration `env:"MAX_WAIT,default=10s"`
	Multiplier  float64       `env:"MULTIPLIER,default=2.0"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "openai/gpt-4o",
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 60 * time.Second,
	}
}

// conventionalKeys lists the vendor-standard API key variables consulted
// when the prefixed key is unset.
var conventionalKeys = []struct {
	provider string
	env      string
}{
	{"openai", "OPENAI_API_KEY"},
	{"anthropic", "ANTHROPIC_API_KEY"},
	{"gemini", "GEMINI_API_KEY"},
	{"openrouter", "OPENROUTER_API_KEY"},
}

// LoadConfig reads the LLM configuration from the lookuper. Variables are
// expected under prefix (e.g. "EXAMINER_LLM_"); vendor-standard key
// variables such as OPENAI_API_KEY fill in any key left unset.
func LoadConfig(ctx context.Context, prefix string, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(prefix, l),
	}); err != nil {
		return Config{}, fmt.Errorf("process llm config: %w", err)
	}
	cfg.ApplyConventionalKeys(l)
	return cfg, nil
}

// ApplyConventionalKeys fills API keys left empty from the vendor-standard
// variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...).
func (c *Config) ApplyConventionalKeys(l envconfig.Lookuper) {
	for _, ck := range conventionalKeys {
		v, ok := l.Lookup(ck.env)
		if !ok || v == "" {
			continue
		}
		c.setKeyIfEmpty(ck.provider, v)
	}
}

func (c *Config) setKeyIfEmpty(provider, key string) {
	switch provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			c.Anthropic.APIKey = key
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			c.OpenAI.APIKey = key
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			c.Gemini.APIKey = key
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			c.OpenRouter.APIKey = key
		}
	}
}

// ForVision returns a copy of the config targeting the vision provider and
// model.
func (c Config) ForVision() Config {
	v := c
	if c.VisionProvider != "" {
		v.Provider = c.VisionProvider
	}
	if c.VisionModel != "" {
		switch v.Provider {
		case "anthropic":
			v.Anthropic.Model = c.VisionModel
		case "openai":
			v.OpenAI.Model = c.VisionModel
		case "gemini":
			v.Gemini.Model = c.VisionModel
		case "openrouter":
			v.OpenRouter.Model = c.VisionModel
		}
	}
	return v
}

// Validate checks that the selected providers have their required API keys
// set.
func (c Config) Validate() error {
	if err := validateProvider(c, c.Provider); err != nil {
		return err
	}
	if c.VisionProvider != "" && c.VisionProvider != c.Provider {
		if err := validateProvider(c, c.VisionProvider); err != nil {
			return fmt.Errorf("vision: %w", err)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

func validateProvider(c Config, provider string) error {
	switch provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("EXAMINER_LLM_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("EXAMINER_LLM_OPENAI_API_KEY or OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("EXAMINER_LLM_GEMINI_API_KEY or GEMINI_API_KEY is required for the gemini provider")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("EXAMINER_LLM_OPENROUTER_API_KEY or OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case "mock":
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", provider)
	}
	return nil
}
