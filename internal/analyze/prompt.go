// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"text/template"
)

const analysisSystem = "You are an expert analyst of academic papers. You read a paper and report its methods, contributions and limitations as a single JSON object."

var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`Paper title: {{.Title}}
{{if .Partial}}
Only the abstract is available; the full text could not be retrieved. Base the analysis on the abstract and say so where it limits the answer.
{{end}}
Paper content:
{{.Content}}

Research context of the reader:
{{if .ResearchContext}}{{.ResearchContext}}{{else}}General academic research{{end}}

Analyze the paper and respond with a JSON object and nothing else:
{
  "summary": "two or three sentences on the problem and the result",
  "methodology": "the approach, models, experiments or proofs used",
  "innovations": ["each novel contribution, most important first"],
  "tech_stack": ["tools, platforms, hardware, datasets or codes used"],
  "key_results": "the main quantitative or qualitative results",
  "limitations": "weaknesses, assumptions and open problems",
  "relevance": "how the paper matters for the research context above"
}
`))

type promptData struct {
	Title           string
	Content         string
	ResearchContext string
	Partial         bool
}

func renderPrompt(data promptData) (string, error) {
	var buf bytes.Buffer
	if err := analysisPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
