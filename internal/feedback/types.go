package feedback

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Highlight is the per-sentence grading signal.
type Highlight string

const (
	HighlightFull    Highlight = "full"
	HighlightPartial Highlight = "partial"
	HighlightNone    Highlight = "none"
)

// Valid reports whether h is one of the three permitted values.
func (h Highlight) Valid() bool {
	switch h {
	case HighlightFull, HighlightPartial, HighlightNone:
		return true
	}
	return false
}

// SentenceFeedback is the model's verdict on one sentence of the answer.
type SentenceFeedback struct {
	Sentence  string    `json:"sentence"`
	Highlight Highlight `json:"highlight"`
	Comment   string    `json:"comment"`
}

var errNotRecord = errors.New("feedback element is not an object")

// UnmarshalJSON decodes one record of a model reply. A field holding a
// non-string value keeps that value's JSON text (so "highlight": 2 becomes
// Highlight("2") and is left to the highlight policy); null and absent
// fields decode as "". An element that is not an object, null included, is
// an error.
func (f *SentenceFeedback) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %s", errNotRecord, truncateJSON(data))
	}
	if fields == nil {
		return fmt.Errorf("%w: null", errNotRecord)
	}
	*f = SentenceFeedback{
		Sentence:  fieldText(fields["sentence"]),
		Highlight: Highlight(fieldText(fields["highlight"])),
		Comment:   fieldText(fields["comment"]),
	}
	return nil
}

func fieldText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func truncateJSON(data []byte) string {
	const limit = 40
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}

// Status records how the feedback list was obtained from the model reply.
type Status string

const (
	// StatusExtracted means a non-empty array was decoded.
	StatusExtracted Status = "extracted"
	// StatusEmpty means the model returned a well-formed, empty array.
	StatusEmpty Status = "empty"
	// StatusNoContent means the model reply was blank.
	StatusNoContent Status = "no_content"
	// StatusNoArray means the reply had no bracket-delimited array.
	StatusNoArray Status = "no_array"
	// StatusMalformed means the bracketed text was not a valid feedback array.
	StatusMalformed Status = "malformed"
)

// Degraded reports whether the status stands for a reply the extractor had
// to discard.
func (s Status) Degraded() bool {
	return s == StatusNoContent || s == StatusNoArray || s == StatusMalformed
}

// Result is the grading outcome returned to the client.
type Result struct {
	Feedback        []SentenceFeedback `json:"feedback"`
	DiagramFeedback *string            `json:"diagramFeedback"`

	// Extraction is reported out of band (header, logs, metrics).
	Extraction Status `json:"-"`
}

// MarshalJSON encodes a nil feedback list as [].
func (r Result) MarshalJSON() ([]byte, error) {
	type wire Result
	w := wire(r)
	if w.Feedback == nil {
		w.Feedback = []SentenceFeedback{}
	}
	return json.Marshal(w)
}
