package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigFile_YAMLOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heroprint.yaml")
	content := `
inputs:
  urls: [https://a.example, https://b.example]
renderer:
  kind: rod
  stealth: true
viewport:
  width: 390
  height: 844
output:
  format: yaml
cache:
  maxAge: 24h
fetch:
  concurrency: 2
  pageTimeout: 10s
llm:
  model: test-model
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc)
	if len(cfg.URLs) != 2 || cfg.Renderer != RendererRod || !cfg.Stealth {
		t.Fatalf("unexpected inputs/renderer: %+v", cfg)
	}
	if cfg.ViewportWidth != 390 || cfg.ViewportHeight != 844 || cfg.OutputFormat != FormatYAML {
		t.Fatalf("unexpected viewport/format: %+v", cfg)
	}
	if cfg.CacheMaxAge != 24*time.Hour || cfg.PageTimeout != 10*time.Second || cfg.Concurrency != 2 {
		t.Fatalf("unexpected durations/limits: %+v", cfg)
	}
	if cfg.UserAgent != DefaultUserAgent || cfg.CacheDir != DefaultCacheDir {
		t.Fatalf("unset file values must keep defaults: %+v", cfg)
	}
	if cfg.LLMModel != "test-model" {
		t.Fatalf("expected llm model from file")
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heroprint.json")
	if err := os.WriteFile(path, []byte(`{"inputs":{"html":["page.html"]},"fetch":{"ignoreRobots":true}}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc)
	if len(cfg.HTMLPaths) != 1 || !cfg.IgnoreRobots {
		t.Fatalf("unexpected config %+v", cfg)
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(bad, []byte("inputs: [unclosed"), 0o600)
	if _, err := LoadConfigFile(bad); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("HEROPRINT_URLS", "https://a.example, ,https://b.example")
	t.Setenv("HEROPRINT_CONCURRENCY", "8")
	t.Setenv("HEROPRINT_STEALTH", "yes")
	t.Setenv("HEROPRINT_PAGE_TIMEOUT", "5s")
	t.Setenv("HEROPRINT_HOST_RATE", "0.5")
	t.Setenv("HEROPRINT_CACHE_CLEAR", "off")
	t.Setenv("HEROPRINT_VIEWPORT_WIDTH", "not-a-number")

	cfg := DefaultConfig()
	cfg.CacheClear = true
	ApplyEnvOverrides(&cfg)
	if strings.Join(cfg.URLs, "|") != "https://a.example|https://b.example" {
		t.Fatalf("unexpected urls %v", cfg.URLs)
	}
	if cfg.Concurrency != 8 || !cfg.Stealth || cfg.PageTimeout != 5*time.Second || cfg.HostRate != 0.5 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.CacheClear {
		t.Fatalf("explicit false env must clear the flag")
	}
	if cfg.ViewportWidth != DefaultViewportWidth {
		t.Fatalf("malformed env must be ignored, got %v", cfg.ViewportWidth)
	}
}

func TestValidateConfig(t *testing.T) {
	base := DefaultConfig()
	base.URLs = []string{"https://example.com"}
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"no inputs", func(c *Config) { c.URLs = nil }, false},
		{"urls file only", func(c *Config) { c.URLs = nil; c.URLsFile = "urls.txt" }, true},
		{"bad renderer", func(c *Config) { c.Renderer = "webkit" }, false},
		{"bad format", func(c *Config) { c.OutputFormat = "xml" }, false},
		{"zero viewport", func(c *Config) { c.ViewportHeight = 0 }, false},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, false},
		{"negative rate", func(c *Config) { c.HostRate = -1 }, false},
		{"explain without model", func(c *Config) { c.Explain = true }, false},
		{"explain with model", func(c *Config) { c.Explain = true; c.LLMModel = "m" }, true},
	}
	for _, tc := range cases {
		cfg := base
		cfg.URLs = append([]string{}, base.URLs...)
		tc.mutate(&cfg)
		err := ValidateConfig(cfg)
		if (err == nil) != tc.ok {
			t.Fatalf("%s: expected ok=%v, got %v", tc.name, tc.ok, err)
		}
	}
	if err := ValidateConfig(DefaultConfig()); !errors.Is(err, ErrNoInputs) {
		t.Fatalf("expected ErrNoInputs sentinel, got %v", err)
	}
}
