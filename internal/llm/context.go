package llm

import (
	"context"
	"slices"
)

// Purpose labels for the examiner's two model calls. They key the usage
// ledger and the purpose label on metrics.
const (
	PurposeGrading = "answer-grading"
	PurposeDiagram = "diagram-critique"
)

// Purposes lists every label WithPurpose is called with.
func Purposes() []string {
	return []string{PurposeGrading, PurposeDiagram}
}

// KnownPurpose reports whether p is one of Purposes.
func KnownPurpose(p string) bool {
	return slices.Contains(Purposes(), p)
}

type purposeKey struct{}

// WithPurpose labels the model calls made under ctx.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if p, ok := ctx.Value(purposeKey{}).(string); ok {
		return p
	}
	return "unknown"
}
