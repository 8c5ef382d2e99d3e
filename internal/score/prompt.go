// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"bytes"
	"text/template"
)

const scoringSystem = "You are an expert reviewer of academic papers. You rate how relevant a paper is to a set of weighted keywords and answer with a single JSON object."

// scoringPromptTmpl asks for one relevance score per keyword in a single call.
var scoringPromptTmpl = template.Must(template.New("scoring").Parse(`Research context:
{{if .ResearchContext}}{{.ResearchContext}}{{else}}General academic research{{end}}

Keywords and weights:
{{range .Keywords}}  - {{.Name}} (weight {{printf "%.1f" .Weight}})
{{end}}
Paper:
Title: {{.Title}}
Authors: {{.Authors}}
Abstract: {{if .Abstract}}{{.Abstract}}{{else}}(no abstract available){{end}}

Tasks:
1. Understand the research question and contribution of the paper.
2. Rate the relevance of the paper to each keyword from 0 to {{printf "%.0f" .MaxScore}}:
   0 = unrelated, {{printf "%.0f" .HalfScore}} = partially related, {{printf "%.0f" .MaxScore}} = central to the paper.
3. Summarize the problem and main result in one sentence (tldr).
4. Extract 5 to 8 core keywords or short phrases in English from the title and abstract.

Respond with a JSON object and nothing else:
{
  "keyword_scores": {"<keyword>": <score>, ...},
  "reasoning": "why the paper is or is not relevant to the keywords",
  "tldr": "one sentence",
  "extracted_keywords": ["keyword1", "keyword2", ...]
}

keyword_scores must contain every keyword listed above, spelled exactly as given.
`))

type promptKeyword struct {
	Name   string
	Weight float64
}

type promptData struct {
	ResearchContext string
	Keywords        []promptKeyword
	Title           string
	Authors         string
	Abstract        string
	MaxScore        float64
	HalfScore       float64
}

func renderPrompt(data promptData) (string, error) {
	var buf bytes.Buffer
	if err := scoringPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
