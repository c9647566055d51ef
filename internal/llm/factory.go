package llm

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
)

// NewProvider builds the provider cfg.Provider names, wrapped as
//
//	retry → logging (metrics, usage ledger) → vendor
//
// recorder may be nil. The mock provider gets the same wrapping so that its
// failures are logged and counted like any vendor's; with nothing scripted it
// fails every call, so selecting it outside tests is logged as a warning.
func NewProvider(ctx context.Context, cfg Config, recorder UsageRecorder) (Provider, error) {
	base, err := newVendor(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Provider == "mock" {
		clog.FromContext(ctx).Warn("mock model provider selected; every model call will fail until responses are scripted")
	}
	return WithRetry(WithLogging(base, cfg.Provider, recorder), cfg.Retry), nil
}

func newVendor(ctx context.Context, cfg Config) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "anthropic":
		p, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		p, err = NewOpenAIProvider(cfg.OpenAI)
	case "openrouter":
		p, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "gemini":
		p, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		p = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return p, nil
}
