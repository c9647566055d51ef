package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/examiner/internal/llm"
	"github.com/chainguard-dev/clog"
)

// Extractor recovers an ordered feedback list from a grading reply.
// Extract never fails: a reply it cannot use yields an empty list and a
// degraded Status.
type Extractor interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// Schema is the structured-output schema to request from the provider,
	// or nil when the strategy works on free text.
	Schema() *llm.Schema

	Extract(ctx context.Context, raw string) Extraction
}

// Extraction is the outcome of one Extract call.
type Extraction struct {
	Feedback []SentenceFeedback
	Status   Status

	// Err describes why the reply was discarded. Nil unless Status is
	// degraded.
	Err error
}

var errNoArray = errors.New("no bracket-delimited array in reply")

// New returns the extractor registered under name ("bracket" or "schema").
func New(name string, policy HighlightPolicy) (Extractor, error) {
	switch name {
	case "", "bracket":
		return NewBracketExtractor(policy), nil
	case "schema":
		return NewSchemaExtractor(policy), nil
	default:
		return nil, fmt.Errorf("unknown extractor %q (want bracket or schema)", name)
	}
}

// BracketExtractor slices the reply from its first '[' to its last ']' and
// decodes that span as a feedback array. Prose before and after the array is
// ignored. A reply holding more than one top-level array, or a stray bracket
// outside the intended array, is not recovered.
type BracketExtractor struct {
	policy HighlightPolicy
}

// NewBracketExtractor creates a BracketExtractor applying policy to decoded
// records.
func NewBracketExtractor(policy HighlightPolicy) *BracketExtractor {
	return &BracketExtractor{policy: policy}
}

func (b *BracketExtractor) Name() string { return "bracket" }

func (b *BracketExtractor) Schema() *llm.Schema { return nil }

func (b *BracketExtractor) Extract(ctx context.Context, raw string) Extraction {
	ex := sliceArray(raw)
	ex.Feedback = b.policy.Apply(ctx, ex.Feedback)
	return finish(ctx, b.Name(), ex)
}

// sliceArray is the bracket-slicing decode without policy or reporting.
func sliceArray(raw string) Extraction {
	if strings.TrimSpace(raw) == "" {
		return Extraction{Feedback: []SentenceFeedback{}, Status: StatusNoContent, Err: errors.New("empty reply")}
	}

	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end < 0 || end < start {
		return Extraction{Feedback: []SentenceFeedback{}, Status: StatusNoArray, Err: errNoArray}
	}

	// Records decode leniently; only a span that is not a JSON array of
	// objects is malformed.
	var items []SentenceFeedback
	if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
		return Extraction{Feedback: []SentenceFeedback{}, Status: StatusMalformed, Err: fmt.Errorf("decode feedback array: %w", err)}
	}
	if len(items) == 0 {
		return Extraction{Feedback: []SentenceFeedback{}, Status: StatusEmpty}
	}
	return Extraction{Feedback: items, Status: StatusExtracted}
}

// finish counts the outcome and logs anything that was discarded.
func finish(ctx context.Context, strategy string, ex Extraction) Extraction {
	if ex.Feedback == nil {
		ex.Feedback = []SentenceFeedback{}
	}
	if ex.Status == StatusExtracted && len(ex.Feedback) == 0 {
		// Every record was dropped by the highlight policy.
		ex.Status = StatusEmpty
	}
	extractions.WithLabelValues(strategy, string(ex.Status)).Inc()

	log := clog.FromContext(ctx).With("strategy", strategy).With("status", string(ex.Status))
	switch {
	case ex.Status.Degraded():
		log.Warnf("discarding grading reply: %v", ex.Err)
	case ex.Status == StatusEmpty:
		log.Info("grading reply held no feedback records")
	default:
		log.With("records", len(ex.Feedback)).Debug("extracted feedback")
	}
	return ex
}
