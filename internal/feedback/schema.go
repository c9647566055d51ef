package feedback

import (
	"context"
	"encoding/json"

	"github.com/abhisek/examiner/internal/llm"
	"github.com/chainguard-dev/clog"
)

// FeedbackSchema is the structured-output shape requested by
// SchemaExtractor. Providers cannot constrain a top-level array, so the list
// is wrapped in an object.
var FeedbackSchema = &llm.Schema{
	Name:        "sentence-feedback",
	Description: "Per-sentence grading of an economics answer, in answer order",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"feedback": map[string]any{
				"type":        "array",
				"description": "One entry per sentence of the answer, in the order the sentences appear",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sentence": map[string]any{
							"type":        "string",
							"description": "The sentence, copied from the answer",
						},
						"highlight": map[string]any{
							"type":        "string",
							"enum":        []any{"full", "partial", "none"},
							"description": "How much credit the sentence earns",
						},
						"comment": map[string]any{
							"type":        "string",
							"description": "Examiner comment on the sentence",
						},
					},
					"required":             []any{"sentence", "highlight", "comment"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"feedback"},
		"additionalProperties": false,
	},
}

// SchemaExtractor asks the provider for schema-constrained output and
// decodes the {"feedback": [...]} object. Replies that do not match the
// schema are handed to bracket slicing.
type SchemaExtractor struct {
	policy HighlightPolicy
}

// NewSchemaExtractor creates a SchemaExtractor applying policy to decoded
// records.
func NewSchemaExtractor(policy HighlightPolicy) *SchemaExtractor {
	return &SchemaExtractor{policy: policy}
}

func (s *SchemaExtractor) Name() string { return "schema" }

func (s *SchemaExtractor) Schema() *llm.Schema { return FeedbackSchema }

func (s *SchemaExtractor) Extract(ctx context.Context, raw string) Extraction {
	ex, ok := decodeObject(raw)
	if !ok {
		clog.FromContext(ctx).Debug("structured reply did not match schema, falling back to bracket slicing")
		ex = sliceArray(raw)
	}
	ex.Feedback = s.policy.Apply(ctx, ex.Feedback)
	return finish(ctx, s.Name(), ex)
}

func decodeObject(raw string) (Extraction, bool) {
	if err := llm.Validate(FeedbackSchema, json.RawMessage(raw)); err != nil {
		return Extraction{}, false
	}
	var obj struct {
		Feedback []SentenceFeedback `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return Extraction{}, false
	}
	if len(obj.Feedback) == 0 {
		return Extraction{Feedback: []SentenceFeedback{}, Status: StatusEmpty}, true
	}
	return Extraction{Feedback: obj.Feedback, Status: StatusExtracted}, true
}
