// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-radar/internal/pipeline"
)

// Paths lists the files written for a run.
type Paths struct {
	Markdown string
	YAML     string
}

// WriteRun writes the Markdown report and the YAML export of res into dir.
func WriteRun(dir string, res *pipeline.RunResult) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("creating report directory: %w", err)
	}
	base := "radar-" + res.StartedAt.Format("20060102-150405")
	paths := Paths{
		Markdown: filepath.Join(dir, base+".md"),
		YAML:     filepath.Join(dir, base+".yaml"),
	}
	if err := os.WriteFile(paths.Markdown, []byte(Run(res)), 0o644); err != nil {
		return Paths{}, fmt.Errorf("writing report: %w", err)
	}
	data, err := yaml.Marshal(res)
	if err != nil {
		return Paths{}, fmt.Errorf("marshaling YAML: %w", err)
	}
	if err := os.WriteFile(paths.YAML, data, 0o644); err != nil {
		return Paths{}, fmt.Errorf("writing YAML export: %w", err)
	}
	return paths, nil
}

// WriteTrends writes a trend report rendered by Trends into dir.
func WriteTrends(dir string, day time.Time, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(dir, "trends-"+day.Format("2006-01-02")+".md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing trend report: %w", err)
	}
	return path, nil
}

// WriteJSON encodes res as indented JSON.
func WriteJSON(w io.Writer, res *pipeline.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
