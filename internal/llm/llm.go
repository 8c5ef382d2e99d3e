// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps the reasoning services used for scoring, keyword
// normalization and deep analysis. Two tiers are configured: a cheap model
// for high-volume calls and a smart model for analysis.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/research-radar/pkg/types"
)

// ErrService matches every reasoning-service failure: transport errors,
// timeouts, empty responses and unparseable JSON.
var ErrService = errors.New("reasoning service error")

// ServiceError describes a failed reasoning call.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrService and the underlying cause.
func (e *ServiceError) Unwrap() []error {
	return []error{ErrService, e.Err}
}

func serviceErr(op string, err error) error {
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return &ServiceError{Op: op, Err: err}
}

// Request is one prompt sent to a reasoning service.
type Request struct {
	System string
	Prompt string
	// MaxTokens overrides the tier default when positive.
	MaxTokens int
}

// Reasoner evaluates a prompt and returns the raw text of the answer.
// Implementations return *ServiceError on failure.
type Reasoner interface {
	Evaluate(ctx context.Context, req Request) (string, error)
}

// ReasonerFunc adapts a function to the Reasoner interface.
type ReasonerFunc func(ctx context.Context, req Request) (string, error)

// Evaluate calls f.
func (f ReasonerFunc) Evaluate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Tiers holds the two configured reasoners.
type Tiers struct {
	Cheap Reasoner
	Smart Reasoner
}

// NewTiers builds both tiers from configuration, applying the per-call
// timeout to each.
func NewTiers(cfg types.LLMConfig) (Tiers, error) {
	cheap, err := New(cfg.Cheap, cfg.CallTimeout)
	if err != nil {
		return Tiers{}, fmt.Errorf("cheap tier: %w", err)
	}
	smart, err := New(cfg.Smart, cfg.CallTimeout)
	if err != nil {
		return Tiers{}, fmt.Errorf("smart tier: %w", err)
	}
	return Tiers{Cheap: cheap, Smart: smart}, nil
}

// New returns the reasoner for one tier configuration.
func New(cfg types.AIConfig, timeout time.Duration) (Reasoner, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	var r Reasoner
	switch strings.ToLower(cfg.Provider) {
	case "", "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required (set anthropic-api-key secret or ANTHROPIC_API_KEY)")
		}
		r = NewAnthropic(cfg)
	case "openai":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai API key is required (set openai-api-key secret or OPENAI_API_KEY)")
		}
		r = NewOpenAI(cfg, nil)
	default:
		return nil, fmt.Errorf("unknown provider %q (available: anthropic, openai)", cfg.Provider)
	}
	return WithTimeout(r, timeout), nil
}

type timeoutReasoner struct {
	inner   Reasoner
	timeout time.Duration
}

// WithTimeout bounds every call to r. A non-positive timeout returns r.
func WithTimeout(r Reasoner, timeout time.Duration) Reasoner {
	if timeout <= 0 {
		return r
	}
	return &timeoutReasoner{inner: r, timeout: timeout}
}

func (t *timeoutReasoner) Evaluate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	out, err := t.inner.Evaluate(ctx, req)
	if err != nil {
		return "", serviceErr("evaluate", err)
	}
	return out, nil
}

// DecodeJSON extracts the JSON object from a model answer and unmarshals it
// into v. Markdown code fences and surrounding prose are ignored, and
// backslashes that are not valid JSON escapes (LaTeX such as \alpha) are
// preserved literally.
func DecodeJSON(text string, v any) error {
	raw := extractObject(text)
	if raw == "" {
		return &ServiceError{Op: "decode", Err: fmt.Errorf("no JSON object in response: %.200q", text)}
	}
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(repairEscapes(raw)), v); err != nil {
		return &ServiceError{Op: "decode", Err: fmt.Errorf("parsing JSON response: %w", err)}
	}
	return nil
}

func extractObject(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

// repairEscapes doubles every backslash that does not start a valid JSON
// escape sequence.
func repairEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && validEscape(s[i+1:]) {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

func validEscape(rest string) bool {
	switch rest[0] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return true
	case 'u':
		if len(rest) < 5 {
			return false
		}
		for _, h := range rest[1:5] {
			if !strings.ContainsRune("0123456789abcdefABCDEF", h) {
				return false
			}
		}
		return true
	}
	return false
}
