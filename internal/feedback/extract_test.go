package feedback

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBracketExtractor(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   []SentenceFeedback
		status Status
	}{{
		name: "prose around array",
		raw:  `Sure! [{"sentence":"X causes Y.","highlight":"full","comment":"correct"}] Hope this helps.`,
		want: []SentenceFeedback{
			{Sentence: "X causes Y.", Highlight: HighlightFull, Comment: "correct"},
		},
		status: StatusExtracted,
	}, {
		name:   "refusal without brackets",
		raw:    "I cannot produce JSON for this request.",
		want:   []SentenceFeedback{},
		status: StatusNoArray,
	}, {
		name: "bare array keeps order",
		raw: `[{"sentence":"B.","highlight":"none","comment":"irrelevant"},` +
			`{"sentence":"A.","highlight":"partial","comment":"needs evaluation"},` +
			`{"sentence":"C.","highlight":"full","comment":"good chain"}]`,
		want: []SentenceFeedback{
			{Sentence: "B.", Highlight: HighlightNone, Comment: "irrelevant"},
			{Sentence: "A.", Highlight: HighlightPartial, Comment: "needs evaluation"},
			{Sentence: "C.", Highlight: HighlightFull, Comment: "good chain"},
		},
		status: StatusExtracted,
	}, {
		name: "markdown fence",
		raw:  "```json\n[{\"sentence\":\"Demand falls.\",\"highlight\":\"partial\",\"comment\":\"why?\"}]\n```",
		want: []SentenceFeedback{
			{Sentence: "Demand falls.", Highlight: HighlightPartial, Comment: "why?"},
		},
		status: StatusExtracted,
	}, {
		name: "brackets inside strings",
		raw:  `Result: [{"sentence":"Price [P] rises.","highlight":"full","comment":"see [1]"}]`,
		want: []SentenceFeedback{
			{Sentence: "Price [P] rises.", Highlight: HighlightFull, Comment: "see [1]"},
		},
		status: StatusExtracted,
	}, {
		name:   "only opening bracket",
		raw:    `Here: [{"sentence":"A."`,
		want:   []SentenceFeedback{},
		status: StatusNoArray,
	}, {
		name:   "only closing bracket",
		raw:    `done ]`,
		want:   []SentenceFeedback{},
		status: StatusNoArray,
	}, {
		name:   "closing before opening",
		raw:    `] then [`,
		want:   []SentenceFeedback{},
		status: StatusNoArray,
	}, {
		name:   "invalid json between brackets",
		raw:    `Feedback: [sentence: A, highlight: full]`,
		want:   []SentenceFeedback{},
		status: StatusMalformed,
	}, {
		name:   "two top-level arrays",
		raw:    `[{"sentence":"A.","highlight":"full","comment":""}] and [{"sentence":"B.","highlight":"none","comment":""}]`,
		want:   []SentenceFeedback{},
		status: StatusMalformed,
	}, {
		name:   "stray citation after array",
		raw:    `[{"sentence":"A.","highlight":"full","comment":""}] (see [2])`,
		want:   []SentenceFeedback{},
		status: StatusMalformed,
	}, {
		name:   "array of strings",
		raw:    `["A.", "B."]`,
		want:   []SentenceFeedback{},
		status: StatusMalformed,
	}, {
		name: "non-string highlight keeps the array",
		raw:  `Sure! [{"sentence":"A.","highlight":"full","comment":"ok"},{"sentence":"B.","highlight":2,"comment":"x"}] done`,
		want: []SentenceFeedback{
			{Sentence: "A.", Highlight: HighlightFull, Comment: "ok"},
			{Sentence: "B.", Highlight: "2", Comment: "x"},
		},
		status: StatusExtracted,
	}, {
		name: "object highlight keeps its json text",
		raw:  `[{"sentence":"A.","highlight":{"level":"full"},"comment":"ok"}]`,
		want: []SentenceFeedback{
			{Sentence: "A.", Highlight: `{"level":"full"}`, Comment: "ok"},
		},
		status: StatusExtracted,
	}, {
		name: "null and missing fields decode empty",
		raw:  `[{"sentence":"A.","highlight":null,"comment":null},{"sentence":"B.","highlight":"none"}]`,
		want: []SentenceFeedback{
			{Sentence: "A.", Highlight: "", Comment: ""},
			{Sentence: "B.", Highlight: HighlightNone, Comment: ""},
		},
		status: StatusExtracted,
	}, {
		name:   "null element",
		raw:    `[null]`,
		want:   []SentenceFeedback{},
		status: StatusMalformed,
	}, {
		name:   "null among records",
		raw:    `[{"sentence":"A.","highlight":"full","comment":"ok"},null]`,
		want:   []SentenceFeedback{},
		status: StatusMalformed,
	}, {
		name:   "number element",
		raw:    `[{"sentence":"A.","highlight":"full","comment":"ok"},3]`,
		want:   []SentenceFeedback{},
		status: StatusMalformed,
	}, {
		name:   "empty array",
		raw:    "No creditworthy sentences: []",
		want:   []SentenceFeedback{},
		status: StatusEmpty,
	}, {
		name:   "empty reply",
		raw:    "",
		want:   []SentenceFeedback{},
		status: StatusNoContent,
	}, {
		name:   "whitespace reply",
		raw:    " \n\t",
		want:   []SentenceFeedback{},
		status: StatusNoContent,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewBracketExtractor(PolicyPassthrough).Extract(context.Background(), tt.raw)
			if diff := cmp.Diff(tt.want, got.Feedback); diff != "" {
				t.Errorf("feedback mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.status, got.Status)
			assert.NotNil(t, got.Feedback, "feedback must never be nil")
			if tt.status.Degraded() {
				assert.Error(t, got.Err)
			} else {
				assert.NoError(t, got.Err)
			}
		})
	}
}

func TestBracketExtractor_PassthroughKeepsInvalidHighlights(t *testing.T) {
	raw := `[{"sentence":"A.","highlight":"FULL","comment":"x"},{"sentence":"B.","highlight":"partial","comment":"y"}]`
	got := NewBracketExtractor(PolicyPassthrough).Extract(context.Background(), raw)

	want := []SentenceFeedback{
		{Sentence: "A.", Highlight: "FULL", Comment: "x"},
		{Sentence: "B.", Highlight: HighlightPartial, Comment: "y"},
	}
	if diff := cmp.Diff(want, got.Feedback); diff != "" {
		t.Errorf("feedback mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, StatusExtracted, got.Status)
}

func TestBracketExtractor_DropAllInvalidIsEmpty(t *testing.T) {
	raw := `[{"sentence":"A.","highlight":"maybe","comment":"x"}]`
	got := NewBracketExtractor(PolicyDrop).Extract(context.Background(), raw)

	assert.Empty(t, got.Feedback)
	assert.NotNil(t, got.Feedback)
	assert.Equal(t, StatusEmpty, got.Status)
}

func TestBracketExtractor_PolicyAppliesToNonStringHighlight(t *testing.T) {
	raw := `[{"sentence":"A.","highlight":"full","comment":"ok"},{"sentence":"B.","highlight":2,"comment":"x"},{"sentence":"C.","highlight":null,"comment":"y"}]`

	tests := []struct {
		policy HighlightPolicy
		want   []SentenceFeedback
	}{{
		policy: PolicyPassthrough,
		want: []SentenceFeedback{
			{Sentence: "A.", Highlight: HighlightFull, Comment: "ok"},
			{Sentence: "B.", Highlight: "2", Comment: "x"},
			{Sentence: "C.", Highlight: "", Comment: "y"},
		},
	}, {
		policy: PolicyCoerce,
		want: []SentenceFeedback{
			{Sentence: "A.", Highlight: HighlightFull, Comment: "ok"},
			{Sentence: "B.", Highlight: HighlightNone, Comment: "x"},
			{Sentence: "C.", Highlight: HighlightNone, Comment: "y"},
		},
	}, {
		policy: PolicyDrop,
		want: []SentenceFeedback{
			{Sentence: "A.", Highlight: HighlightFull, Comment: "ok"},
		},
	}}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			got := NewBracketExtractor(tt.policy).Extract(context.Background(), raw)
			if diff := cmp.Diff(tt.want, got.Feedback); diff != "" {
				t.Errorf("feedback mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, StatusExtracted, got.Status)
			assert.NoError(t, got.Err)
		})
	}
}

func TestSentenceFeedback_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    SentenceFeedback
		wantErr bool
	}{
		{name: "strings", in: `{"sentence":"A.","highlight":"partial","comment":"c"}`, want: SentenceFeedback{Sentence: "A.", Highlight: HighlightPartial, Comment: "c"}},
		{name: "bool highlight", in: `{"sentence":"A.","highlight":true}`, want: SentenceFeedback{Sentence: "A.", Highlight: "true"}},
		{name: "number comment", in: `{"sentence":"A.","highlight":"none","comment":4}`, want: SentenceFeedback{Sentence: "A.", Highlight: HighlightNone, Comment: "4"}},
		{name: "extra keys ignored", in: `{"sentence":"A.","highlight":"full","marks":2}`, want: SentenceFeedback{Sentence: "A.", Highlight: HighlightFull}},
		{name: "null", in: `null`, wantErr: true},
		{name: "string", in: `"A."`, wantErr: true},
		{name: "array", in: `[]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SentenceFeedback
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchemaExtractor(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   []SentenceFeedback
		status Status
	}{{
		name: "structured object",
		raw:  `{"feedback":[{"sentence":"Wages rise.","highlight":"partial","comment":"develop"}]}`,
		want: []SentenceFeedback{
			{Sentence: "Wages rise.", Highlight: HighlightPartial, Comment: "develop"},
		},
		status: StatusExtracted,
	}, {
		name:   "structured empty",
		raw:    `{"feedback":[]}`,
		want:   []SentenceFeedback{},
		status: StatusEmpty,
	}, {
		name: "falls back to bracket slicing for bare array",
		raw:  `Here you go [{"sentence":"A.","highlight":"none","comment":"off topic"}]`,
		want: []SentenceFeedback{
			{Sentence: "A.", Highlight: HighlightNone, Comment: "off topic"},
		},
		status: StatusExtracted,
	}, {
		name: "falls back when enum violated",
		raw:  `{"feedback":[{"sentence":"A.","highlight":"great","comment":"x"}]}`,
		want: []SentenceFeedback{
			{Sentence: "A.", Highlight: "great", Comment: "x"},
		},
		status: StatusExtracted,
	}, {
		name:   "fallback also fails",
		raw:    "I cannot produce JSON for this request.",
		want:   []SentenceFeedback{},
		status: StatusNoArray,
	}, {
		name:   "blank",
		raw:    "",
		want:   []SentenceFeedback{},
		status: StatusNoContent,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewSchemaExtractor(PolicyPassthrough).Extract(context.Background(), tt.raw)
			if diff := cmp.Diff(tt.want, got.Feedback); diff != "" {
				t.Errorf("feedback mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestSchemaExtractor_SchemaIsRequested(t *testing.T) {
	s := NewSchemaExtractor(PolicyPassthrough)
	require.NotNil(t, s.Schema())
	assert.Equal(t, "sentence-feedback", s.Schema().Name)
	assert.Nil(t, NewBracketExtractor(PolicyPassthrough).Schema())
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", "bracket"} {
		e, err := New(name, PolicyPassthrough)
		require.NoError(t, err)
		assert.Equal(t, "bracket", e.Name())
	}

	e, err := New("schema", PolicyCoerce)
	require.NoError(t, err)
	assert.Equal(t, "schema", e.Name())

	_, err = New("regex", PolicyPassthrough)
	assert.Error(t, err)
}

func TestResult_MarshalJSON(t *testing.T) {
	diagram := "Supply curve shifts left; label the new equilibrium."
	tests := []struct {
		name   string
		result Result
		want   string
	}{{
		name:   "nil feedback encodes as empty array",
		result: Result{Extraction: StatusNoArray},
		want:   `{"feedback":[],"diagramFeedback":null}`,
	}, {
		name: "with diagram feedback",
		result: Result{
			Feedback:        []SentenceFeedback{{Sentence: "A.", Highlight: HighlightFull, Comment: "ok"}},
			DiagramFeedback: &diagram,
			Extraction:      StatusExtracted,
		},
		want: `{"feedback":[{"sentence":"A.","highlight":"full","comment":"ok"}],"diagramFeedback":"Supply curve shifts left; label the new equilibrium."}`,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.result)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
			assert.NotContains(t, string(got), "extracted")
		})
	}
}
