package app

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/heroprint/internal/render"
)

// Input kinds, also reported as the result source.
const (
	KindURL      = "url"
	KindHTML     = "html"
	KindSnapshot = "json"
)

// Input is one page to fingerprint.
type Input struct {
	Kind     string
	Location string
}

// ResolveInputs lists snapshots, then HTML files, then URLs (flag URLs
// before the URL file). Duplicate URLs are dropped.
func ResolveInputs(cfg Config) ([]Input, error) {
	var out []Input
	for _, p := range cfg.SnapshotPaths {
		out = append(out, Input{Kind: KindSnapshot, Location: p})
	}
	for _, p := range cfg.HTMLPaths {
		out = append(out, Input{Kind: KindHTML, Location: p})
	}
	urls := append([]string{}, cfg.URLs...)
	if strings.TrimSpace(cfg.URLsFile) != "" {
		more, err := readURLsFile(cfg.URLsFile)
		if err != nil {
			return nil, err
		}
		urls = append(urls, more...)
	}
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, Input{Kind: KindURL, Location: u})
	}
	if len(out) == 0 {
		return nil, ErrNoInputs
	}
	return out, nil
}

// readURLsFile reads one URL per line. Blank lines and # comments are
// skipped.
func readURLsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open urls file: %w", err)
	}
	defer f.Close()
	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read urls file: %w", err)
	}
	return urls, nil
}

// loadSnapshotFile decodes a renderer snapshot stored as JSON or YAML. A
// snapshot without a viewport gets vp.
func loadSnapshotFile(path string, vp render.Viewport) (*render.Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml snapshot: %w", err)
		}
		if b, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("convert yaml snapshot: %w", err)
		}
	}
	snap, err := render.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	if snap.Viewport.Width <= 0 || snap.Viewport.Height <= 0 {
		snap.Viewport = vp
	}
	return snap, nil
}
