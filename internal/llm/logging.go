package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

// UsageEvent is the metadata recorded for one model call. It carries no
// prompt or reply content.
type UsageEvent struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// UsageRecorder persists usage events.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, ev UsageEvent) error
}

// LoggingProvider is a decorator that logs every LLM request, updates the
// request metrics and optionally records a usage event.
type LoggingProvider struct {
	inner    Provider
	provider string
	recorder UsageRecorder
}

// WithLogging wraps a Provider with logging and metrics. recorder may be nil.
func WithLogging(p Provider, providerName string, recorder UsageRecorder) Provider {
	return &LoggingProvider{inner: p, provider: providerName, recorder: recorder}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)
	log := clog.FromContext(ctx).With("provider", l.provider).With("purpose", purpose)

	log.With("request", serializeRequest(req)).Debug("LLM request")

	resp, err := l.inner.Generate(ctx, req)

	latency := time.Since(start)
	observeRequest(l.provider, purpose, latency, resp, err)

	ev := UsageEvent{
		Provider:  l.provider,
		Model:     l.inner.ModelID(),
		Purpose:   purpose,
		LatencyMs: latency.Milliseconds(),
		Success:   err == nil,
	}
	if resp != nil {
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			ev.Model = resp.Model
		}
	}

	if err != nil {
		ev.ErrorMessage = err.Error()
		log.With("model", ev.Model).With("latency_ms", ev.LatencyMs).
			Warnf("LLM request failed: %v", err)
	} else {
		log.With("model", ev.Model).
			With("latency_ms", ev.LatencyMs).
			With("input_tokens", ev.InputTokens).
			With("output_tokens", ev.OutputTokens).
			With("stop_reason", resp.StopReason).
			Info("LLM request completed")
	}

	// Record the event but don't fail the request if recording fails.
	if l.recorder != nil {
		if recErr := l.recorder.RecordUsage(ctx, ev); recErr != nil {
			log.Warnf("failed to record LLM usage event: %v", recErr)
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the LLM request.
// Attachments are summarized, not dumped.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		b.WriteString(fmt.Sprintf("[%s]\n", m.Role))
		b.WriteString(m.Content)
		b.WriteString("\n")
		for _, a := range m.Attachments {
			b.WriteString(fmt.Sprintf("[attachment %s, %d bytes]\n", a.MIMEType, len(a.Data)))
		}
		b.WriteString("\n")
	}

	if req.Schema != nil {
		schemaDef, err := json.Marshal(req.Schema.Definition)
		if err == nil {
			b.WriteString(fmt.Sprintf("[schema: %s]\n", req.Schema.Name))
			b.WriteString(string(schemaDef))
			b.WriteString("\n")
		}
	}

	return b.String()
}
