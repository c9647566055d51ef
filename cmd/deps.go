package cmd

import (
	"context"
	"fmt"

	"github.com/abhisek/examiner/internal/config"
	"github.com/abhisek/examiner/internal/grading"
	"github.com/abhisek/examiner/internal/llm"
	"github.com/abhisek/examiner/internal/store"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

// loadConfig reads the environment and applies the --usage-db override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Context(), envconfig.OsLookuper())
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("usage-db"); p != "" {
		cfg.UsageDB = p
	}
	return cfg, nil
}

// deps is everything a grading entry point needs. Close releases the usage
// ledger, if one was opened.
type deps struct {
	grader *grading.Grader
	ledger *store.Store
}

func (d *deps) Close() error {
	if d.ledger == nil {
		return nil
	}
	return d.ledger.Close()
}

// buildDeps constructs the providers, extractor and grader from cfg.
func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	d := &deps{}

	var recorder llm.UsageRecorder
	if cfg.UsageDB != "" {
		if err := store.EnsureDir(cfg.UsageDB); err != nil {
			return nil, fmt.Errorf("create usage ledger dir: %w", err)
		}
		st, err := store.Open(cfg.UsageDB)
		if err != nil {
			return nil, fmt.Errorf("open usage ledger: %w", err)
		}
		d.ledger = st
		recorder = st
		clog.FromContext(ctx).With("path", cfg.UsageDB).Info("recording model usage")
	}

	text, err := llm.NewProvider(ctx, cfg.LLM, recorder)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("text provider: %w", err)
	}

	vision := text
	if cfg.LLM.VisionProvider != "" || cfg.LLM.VisionModel != "" {
		vision, err = llm.NewProvider(ctx, cfg.LLM.ForVision(), recorder)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("vision provider: %w", err)
		}
	}

	extractor, err := cfg.NewExtractor()
	if err != nil {
		d.Close()
		return nil, err
	}

	clog.FromContext(ctx).
		With("text_model", text.ModelID()).
		With("vision_model", vision.ModelID()).
		With("extractor", extractor.Name()).
		Info("grading pipeline ready")

	d.grader = grading.NewGrader(grading.NewModels(text, vision, cfg.Grading), extractor, cfg.Grading)
	return d, nil
}
