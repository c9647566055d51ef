package grading

import (
	"context"
	"fmt"

	"github.com/abhisek/examiner/internal/llm"
	"github.com/chainguard-dev/clog"
)

// Model call names carried by UpstreamModelError.
const (
	CallText   = "text"
	CallVision = "vision"
)

// UpstreamModelError reports a transport, authentication or provider failure
// on one of the model calls. Content-shape problems in a reply are not
// upstream errors.
type UpstreamModelError struct {
	Call string
	Err  error
}

func (e *UpstreamModelError) Error() string {
	return fmt.Sprintf("%s model call failed: %v", e.Call, e.Err)
}

func (e *UpstreamModelError) Unwrap() error { return e.Err }

// Models issues the text and vision completions.
type Models struct {
	text   llm.Provider
	vision llm.Provider
	cfg    Config
}

// NewModels creates a Models. A nil vision provider reuses text.
func NewModels(text, vision llm.Provider, cfg Config) *Models {
	if vision == nil {
		vision = text
	}
	return &Models{text: text, vision: vision, cfg: cfg}
}

// CompleteText sends prompt as a single user message and returns the raw
// reply. When schema is non-nil the provider is asked for structured output;
// a structured reply that fails validation or is truncated is still returned
// as text so the extractor can decide what to salvage.
func (m *Models) CompleteText(ctx context.Context, prompt string, schema *llm.Schema) (string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeGrading)

	resp, err := m.text.Generate(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Schema:      schema,
		MaxTokens:   m.cfg.TextMaxTokens,
		Temperature: m.cfg.TextTemperature,
	})
	if err != nil {
		if content, ok := llm.ReplyContent(err); ok {
			clog.FromContext(ctx).Warnf("structured reply rejected, passing raw content to extractor: %v", err)
			return string(content), nil
		}
		return "", &UpstreamModelError{Call: CallText, Err: err}
	}
	return resp.Text(), nil
}

// CompleteVision sends prompt with one inline attachment and returns the
// reply text. An empty reply is returned as "" with a nil error.
func (m *Models) CompleteVision(ctx context.Context, prompt string, data []byte, mimeType string) (string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeDiagram)

	resp, err := m.vision.Generate(ctx, llm.Request{
		Messages: []llm.Message{{
			Role:        llm.RoleUser,
			Content:     prompt,
			Attachments: []llm.Attachment{{MIMEType: mimeType, Data: data}},
		}},
		MaxTokens:   m.cfg.VisionMaxTokens,
		Temperature: m.cfg.VisionTemperature,
	})
	if err != nil {
		return "", &UpstreamModelError{Call: CallVision, Err: err}
	}
	return resp.Text(), nil
}
