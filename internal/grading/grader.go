// Package grading runs the answer-grading pipeline: prompt the text model,
// extract per-sentence feedback, critique the diagram when one is present,
// and assemble the result.
package grading

import (
	"context"
	"strings"

	"github.com/abhisek/examiner/internal/feedback"
	"github.com/abhisek/examiner/internal/ingest"
	"github.com/abhisek/examiner/internal/prompt"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// Grader grades submissions. It holds no per-request state and is safe for
// concurrent use.
type Grader struct {
	models    *Models
	extractor feedback.Extractor
	cfg       Config
}

// NewGrader creates a Grader.
func NewGrader(models *Models, extractor feedback.Extractor, cfg Config) *Grader {
	return &Grader{models: models, extractor: extractor, cfg: cfg}
}

// Grade always calls the text model, even for an empty answer, and calls
// the vision model only when sub has a diagram. The two calls run
// concurrently; the first upstream failure cancels the other and is
// returned as an *UpstreamModelError. A reply that yields no feedback is not
// an error.
func (g *Grader) Grade(ctx context.Context, sub *ingest.Submission) (*feedback.Result, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	eg, ctx := errgroup.WithContext(ctx)

	var extraction feedback.Extraction
	eg.Go(func() error {
		schema := g.extractor.Schema()
		p := prompt.BuildGradingPrompt(sub.Answer)
		if schema != nil {
			p = prompt.BuildStructuredGradingPrompt(sub.Answer)
		}

		raw, err := g.models.CompleteText(ctx, p, schema)
		if err != nil {
			return err
		}
		extraction = g.extractor.Extract(ctx, raw)
		return nil
	})

	var diagramFeedback *string
	if d := sub.Diagram; d != nil {
		eg.Go(func() error {
			text, err := g.models.CompleteVision(ctx, prompt.BuildDiagramPrompt(), d.Data, d.MIMEType)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				clog.FromContext(ctx).With("filename", d.Filename).Info("vision model returned no diagram feedback")
				return nil
			}
			diagramFeedback = &text
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &feedback.Result{
		Feedback:        extraction.Feedback,
		DiagramFeedback: diagramFeedback,
		Extraction:      extraction.Status,
	}, nil
}
