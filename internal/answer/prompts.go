// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"text/template"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

var systemPrompt = `You are an assistant answering questions over a private document corpus. ` +
	`Use only the material provided. Say so plainly when the material does not answer the question.`

var jsonSystemPrompt = systemPrompt + ` Respond with a single JSON object and nothing else.`

var classifyPromptTmpl = template.Must(template.New("classify").Parse(`Classify the kind of answer the question below calls for.

Choose exactly one of: factual, how_to, explanation, comparison, opinion, timeline, list.

Respond with JSON of the form:
{"type": "..."}

Question:
{{.Query}}
`))

var generatePromptTmpl = template.Must(template.New("generate").Parse(`Write the answer to the question below in {{.Language}}.

{{.StyleInstruction}}
The answer type is {{.Type}}. Prefer verified claims, flag unverified ones as uncertain, and never present contradicted claims as fact.
{{if .Themes}}
Research themes: {{range $i, $t := .Themes}}{{if $i}}, {{end}}{{$t}}{{end}}
{{end}}{{if .Verified}}
Verified claims:
{{range .Verified}}- {{.}}
{{end}}{{end}}{{if .Unverified}}
Unverified claims:
{{range .Unverified}}- {{.}}
{{end}}{{end}}{{if .Contradicted}}
Contradicted claims:
{{range .Contradicted}}- {{.}}
{{end}}{{end}}{{if .Conflicts}}
Conflicts between sources:
{{range .Conflicts}}- {{.}}
{{end}}{{end}}{{if .HighConfidence}}
High-confidence findings:
{{range .HighConfidence}}- {{.}}
{{end}}{{end}}{{if .Other}}
Other findings:
{{range .Other}}- {{.}}
{{end}}{{end}}{{if not .HasMaterial}}
No documents were found for this question.
{{end}}
Question:
{{.Query}}
`))

var keyPointsPromptTmpl = template.Must(template.New("keypoints").Parse(`Extract the key points from the answer below.

Return between 3 and 5 short, self-contained points.

Respond with JSON of the form:
{"key_points": ["..."]}

Answer:
{{.Answer}}
`))

var followUpPromptTmpl = template.Must(template.New("followups").Parse(`Suggest follow-up questions the user might ask next.

Return between 3 and 5 questions that build on the answer.

Respond with JSON of the form:
{"questions": ["..."]}

Question:
{{.Query}}

Answer:
{{.Answer}}
`))

var styleInstructions = map[types.AnswerStyle]string{
	types.StyleComprehensive:  "Write a thorough, well-structured answer that covers every relevant detail in the material.",
	types.StyleConcise:        "Answer in at most three sentences.",
	types.StyleConversational: "Answer in a friendly, conversational tone as if talking to a colleague.",
}
