// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import "text/template"

var systemPrompt = `You are a careful fact checker. Judge only from the source text provided. ` +
	`Respond with a single JSON object and nothing else.`

var stancePromptTmpl = template.Must(template.New("stance").Parse(`Assess whether the source below supports, contradicts, or is neutral toward the claim.

Rate how reliable the source is for this claim from 0.0 to 1.0 and quote the most relevant excerpt.

Respond with JSON of the form:
{"stance": "supports" | "contradicts" | "neutral", "reliability": 0.0-1.0, "excerpt": "..."}

Claim:
{{.Claim}}

Source ({{.Source.DocumentName}}):
{{.Source.Text}}
`))

var conflictPromptTmpl = template.Must(template.New("conflict").Parse(`Compare the two sources below and decide whether they state conflicting facts.

Differences in emphasis or scope are not conflicts. Grade a conflict "major" when the facts cannot both be true on a key point, otherwise "minor".

Respond with JSON of the form:
{"conflict": true | false, "description": "...", "severity": "major" | "minor"}

Source A ({{.First.DocumentName}}):
{{.First.Text}}

Source B ({{.Second.DocumentName}}):
{{.Second.Text}}
`))
