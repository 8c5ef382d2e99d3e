// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files
// and from a .env file. Each file in the directory represents one secret: the filename
// is the key name and the file contents (trimmed) are the value.
//
// Supported key files: anthropic-api-key, openai-api-key, openalex-email,
// openalex-api-key, semantic-scholar-api-key, slack-webhook-url.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pdiddy/research-radar/pkg/types"
)

// Key file names.
const (
	AnthropicAPIKey       = "anthropic-api-key"
	OpenAIAPIKey          = "openai-api-key"
	OpenAlexEmail         = "openalex-email"
	OpenAlexAPIKey        = "openalex-api-key"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	SlackWebhookURL       = "slack-webhook-url"
)

// Set maps key names to secret values.
type Set map[string]string

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Set)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnv loads KEY=value pairs from the .env file at path into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// EnvName returns the environment variable consulted for key, e.g.
// ANTHROPIC_API_KEY for anthropic-api-key.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Get returns the secret for key, falling back to its environment variable.
func (s Set) Get(key string) string {
	if v := s[key]; v != "" {
		return v
	}
	return os.Getenv(EnvName(key))
}

// Fill sets credentials the configuration leaves empty.
func (s Set) Fill(cfg *types.RadarConfig) {
	fillTier(s, &cfg.LLM.Cheap)
	fillTier(s, &cfg.LLM.Smart)
	fill(&cfg.Sources.OpenAlexEmail, s.Get(OpenAlexEmail))
	fill(&cfg.Sources.OpenAlexAPIKey, s.Get(OpenAlexAPIKey))
	fill(&cfg.Sources.SemanticScholarAPIKey, s.Get(SemanticScholarAPIKey))
	fill(&cfg.Notify.SlackWebhookURL, s.Get(SlackWebhookURL))
}

func fillTier(s Set, ai *types.AIConfig) {
	switch ai.Provider {
	case "openai":
		fill(&ai.APIKey, s.Get(OpenAIAPIKey))
	default:
		fill(&ai.APIKey, s.Get(AnthropicAPIKey))
	}
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
