package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/heroprint/internal/fingerprint"
)

// Result is the outcome for one input.
type Result struct {
	Input       string                   `json:"input" yaml:"input"`
	Source      string                   `json:"source" yaml:"source"`
	URL         string                   `json:"url" yaml:"url"`
	Cached      bool                     `json:"cached" yaml:"cached"`
	ElapsedMS   int64                    `json:"elapsed_ms" yaml:"elapsed_ms"`
	Fingerprint *fingerprint.Fingerprint `json:"fingerprint" yaml:"fingerprint"`
	Explanation string                   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Error       string                   `json:"error,omitempty" yaml:"error,omitempty"`
}

// WriteResults encodes results as an indented JSON array or a YAML
// sequence.
func WriteResults(w io.Writer, format string, results []Result) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}

// writeOutput writes to path, or to stdout when path is empty.
func writeOutput(path, format string, results []Result) error {
	if path == "" {
		return WriteResults(os.Stdout, format, results)
	}
	var buf bytes.Buffer
	if err := WriteResults(&buf, format, results); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
