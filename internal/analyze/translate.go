// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"context"
	"strings"
	"text/template"

	"github.com/pdiddy/research-radar/internal/llm"
)

const translateSystem = "You are a professional translator of scientific text. You answer with the translation only."

var translatePromptTmpl = template.Must(template.New("translate").Parse(`Translate the following academic paper abstract into {{.Language}}.
Keep technical terms accurate, keep the academic register, and answer with the translated text only.

Abstract:
{{.Abstract}}
`))

// Translator renders paper abstracts into another language.
type Translator struct {
	Reasoner llm.Reasoner
	Language string
}

// NewTranslator returns nil when language is empty.
func NewTranslator(r llm.Reasoner, language string) *Translator {
	if strings.TrimSpace(language) == "" {
		return nil
	}
	return &Translator{Reasoner: r, Language: strings.TrimSpace(language)}
}

// Translate returns the translated abstract. An empty abstract is returned
// unchanged.
func (t *Translator) Translate(ctx context.Context, abstract string) (string, error) {
	abstract = strings.TrimSpace(abstract)
	if abstract == "" {
		return "", nil
	}
	var buf bytes.Buffer
	err := translatePromptTmpl.Execute(&buf, struct{ Language, Abstract string }{t.Language, abstract})
	if err != nil {
		return "", err
	}
	text, err := t.Reasoner.Evaluate(ctx, llm.Request{System: translateSystem, Prompt: buf.String()})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
