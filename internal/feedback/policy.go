package feedback

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
)

// HighlightPolicy decides what happens to records whose highlight is not
// one of full, partial or none.
type HighlightPolicy string

const (
	// PolicyPassthrough keeps records untouched.
	PolicyPassthrough HighlightPolicy = "passthrough"
	// PolicyCoerce rewrites invalid highlights to none.
	PolicyCoerce HighlightPolicy = "coerce"
	// PolicyDrop removes records with invalid highlights.
	PolicyDrop HighlightPolicy = "drop"
)

// ParseHighlightPolicy maps a configuration value to a policy. The empty
// string selects PolicyPassthrough.
func ParseHighlightPolicy(s string) (HighlightPolicy, error) {
	switch p := HighlightPolicy(s); p {
	case "":
		return PolicyPassthrough, nil
	case PolicyPassthrough, PolicyCoerce, PolicyDrop:
		return p, nil
	default:
		return "", fmt.Errorf("unknown highlight policy %q (want passthrough, coerce or drop)", s)
	}
}

// Apply enforces the policy on items, preserving order. The input slice is
// not modified.
func (p HighlightPolicy) Apply(ctx context.Context, items []SentenceFeedback) []SentenceFeedback {
	invalid := 0
	for _, it := range items {
		if !it.Highlight.Valid() {
			invalid++
		}
	}
	if invalid == 0 {
		return items
	}

	invalidHighlights.WithLabelValues(string(p)).Add(float64(invalid))
	clog.FromContext(ctx).With("policy", string(p)).
		Warnf("model returned %d of %d records with an invalid highlight", invalid, len(items))

	switch p {
	case PolicyCoerce:
		out := make([]SentenceFeedback, len(items))
		for i, it := range items {
			if !it.Highlight.Valid() {
				it.Highlight = HighlightNone
			}
			out[i] = it
		}
		return out
	case PolicyDrop:
		out := make([]SentenceFeedback, 0, len(items)-invalid)
		for _, it := range items {
			if it.Highlight.Valid() {
				out = append(out, it)
			}
		}
		return out
	default:
		return items
	}
}
