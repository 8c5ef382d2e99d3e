// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/research-radar/internal/httputil"
	"github.com/pdiddy/research-radar/pkg/types"
)

// openAIBaseURL is the default chat-completions host.
const openAIBaseURL = "https://api.openai.com/v1"

// OpenAI calls an OpenAI-compatible chat-completions endpoint (OpenAI,
// DeepSeek, local gateways) and asks for a JSON object answer.
type OpenAI struct {
	Client      *http.Client
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

// NewOpenAI returns a reasoner for one tier. A nil client uses
// http.DefaultClient.
func NewOpenAI(cfg types.AIConfig, client *http.Client) *OpenAI {
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = openAIBaseURL
	}
	return &OpenAI{
		Client:      client,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     base,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Evaluate posts the system and user messages and returns the first
// choice's content.
func (o *OpenAI) Evaluate(ctx context.Context, req Request) (string, error) {
	maxTokens := o.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	reqBody := openAIRequest{
		Model:          o.Model,
		MaxTokens:      maxTokens,
		Temperature:    o.Temperature,
		ResponseFormat: &openAIFormat{Type: "json_object"},
	}
	if strings.TrimSpace(req.System) != "" {
		reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: "user", Content: req.Prompt})

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ServiceError{Op: "openai", Err: fmt.Errorf("marshaling request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &ServiceError{Op: "openai", Err: fmt.Errorf("creating request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)
	}
	resp, err := httputil.DoWithRetry(ctx, o.Client, httpReq, 3)
	if err != nil {
		return "", &ServiceError{Op: "openai", Err: fmt.Errorf("OpenAI API error: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ServiceError{Op: "openai", Err: fmt.Errorf("reading response: %w", err)}
	}

	var oResp openAIResponse
	if err := json.Unmarshal(respBody, &oResp); err != nil {
		return "", &ServiceError{Op: "openai", Err: fmt.Errorf("parsing OpenAI response (HTTP %d): %w", resp.StatusCode, err)}
	}
	if oResp.Error != nil {
		return "", &ServiceError{Op: "openai", Err: fmt.Errorf("OpenAI API error: %s", oResp.Error.Message)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{Op: "openai", Err: fmt.Errorf("OpenAI API returned HTTP %d", resp.StatusCode)}
	}
	if len(oResp.Choices) == 0 || strings.TrimSpace(oResp.Choices[0].Message.Content) == "" {
		return "", &ServiceError{Op: "openai", Err: fmt.Errorf("no choices in OpenAI response")}
	}
	return oResp.Choices[0].Message.Content, nil
}
