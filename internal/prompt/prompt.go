// Package prompt renders the instructions sent to the grading and diagram
// models.
package prompt

import (
	"strings"
	"text/template"
)

// DiagramMarks bounds the commentary requested for a diagram.
const DiagramMarks = 4

const (
	answerOpen  = "<<<ANSWER"
	answerClose = "ANSWER>>>"
)

var gradingTemplate = template.Must(template.New("grading").Parse(`You are an experienced AQA A-level Economics examiner. Mark the student's answer below against the AQA levels-based mark scheme.

Instructions:
- Split the answer into its sentences, keeping them in the order they appear.
- For every sentence produce an object with exactly these keys:
  "sentence": the sentence, copied verbatim from the answer.
  "highlight": "full" if the sentence earns full credit (accurate knowledge, developed analysis or supported evaluation), "partial" if it earns some credit but is incomplete, asserted or underdeveloped, "none" if it earns no credit.
  "comment": one short examiner comment explaining the judgement.
- Do not merge, split differently, reorder or skip sentences.
{{- if .Structured}}
- Return an object whose "feedback" key holds the list of sentence objects.
{{- else}}
- Respond with ONLY a JSON array of these objects. Do not add any text, explanation or code fences before or after the array.
{{- end}}
- If the answer is empty, return an empty list.

The student's answer is between the {{.Open}} and {{.Close}} markers:
{{.Open}}
{{.Answer}}
{{.Close}}`))

var diagramPrompt = mustRender(template.Must(template.New("diagram").Parse(`You are an experienced AQA A-level Economics examiner. The attached file is a diagram drawn by a student as part of an economics answer.

In plain prose (no JSON, no bullet-point headings):
1. Identify the type of diagram (for example supply and demand, AD/AS, cost and revenue curves, externalities, PPF).
2. Assess the accuracy of its labelling: axes, curves, equilibrium points, shifts and shaded areas.
3. Judge whether the diagram validly shows the economic point it appears to be making.

Keep the feedback to at most {{.Marks}} marks' worth of commentary, stating what would earn or lose each mark.`)), struct{ Marks int }{DiagramMarks})

type gradingData struct {
	Answer     string
	Open       string
	Close      string
	Structured bool
}

// BuildGradingPrompt returns the grading instruction for answer, asking for
// a bare JSON array of per-sentence feedback. The answer is embedded
// verbatim.
func BuildGradingPrompt(answer string) string {
	return renderGrading(answer, false)
}

// BuildStructuredGradingPrompt is BuildGradingPrompt for providers asked for
// schema-constrained output: the list is requested under a "feedback" key.
func BuildStructuredGradingPrompt(answer string) string {
	return renderGrading(answer, true)
}

// BuildDiagramPrompt returns the fixed diagram critique instruction.
func BuildDiagramPrompt() string {
	return diagramPrompt
}

func renderGrading(answer string, structured bool) string {
	return mustRender(gradingTemplate, gradingData{
		Answer:     answer,
		Open:       answerOpen,
		Close:      answerClose,
		Structured: structured,
	})
}

// mustRender executes t into a strings.Builder, which cannot fail on write;
// an error here is a template bug.
func mustRender(t *template.Template, data any) string {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		panic("prompt: render " + t.Name() + ": " + err.Error())
	}
	return b.String()
}
