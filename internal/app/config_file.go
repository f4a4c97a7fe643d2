package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the config file schema. Nested sections mirror the flag
// groups.
type FileConfig struct {
	Inputs struct {
		URLs      []string `yaml:"urls" json:"urls"`
		HTML      []string `yaml:"html" json:"html"`
		Snapshots []string `yaml:"snapshots" json:"snapshots"`
		URLsFile  string   `yaml:"urlsFile" json:"urlsFile"`
	} `yaml:"inputs" json:"inputs"`

	Renderer struct {
		Kind      string `yaml:"kind" json:"kind"`
		ChromeURL string `yaml:"chromeURL" json:"chromeURL"`
		Stealth   bool   `yaml:"stealth" json:"stealth"`
	} `yaml:"renderer" json:"renderer"`

	Viewport struct {
		Width  float64 `yaml:"width" json:"width"`
		Height float64 `yaml:"height" json:"height"`
	} `yaml:"viewport" json:"viewport"`

	Output struct {
		Path   string `yaml:"path" json:"path"`
		Format string `yaml:"format" json:"format"`
	} `yaml:"output" json:"output"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		Disable     bool          `yaml:"disable" json:"disable"`
	} `yaml:"cache" json:"cache"`

	Fetch struct {
		UserAgent    string        `yaml:"userAgent" json:"userAgent"`
		IgnoreRobots bool          `yaml:"ignoreRobots" json:"ignoreRobots"`
		Concurrency  int           `yaml:"concurrency" json:"concurrency"`
		HostRate     float64       `yaml:"hostRate" json:"hostRate"`
		PageTimeout  time.Duration `yaml:"pageTimeout" json:"pageTimeout"`
	} `yaml:"fetch" json:"fetch"`

	Explain struct {
		Enable       bool   `yaml:"enable" json:"enable"`
		SystemPrompt string `yaml:"systemPrompt" json:"systemPrompt"`
	} `yaml:"explain" json:"explain"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value the file sets onto cfg. It runs on
// top of DefaultConfig, before env and flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if len(fc.Inputs.URLs) > 0 {
		cfg.URLs = append([]string{}, fc.Inputs.URLs...)
	}
	if len(fc.Inputs.HTML) > 0 {
		cfg.HTMLPaths = append([]string{}, fc.Inputs.HTML...)
	}
	if len(fc.Inputs.Snapshots) > 0 {
		cfg.SnapshotPaths = append([]string{}, fc.Inputs.Snapshots...)
	}
	if fc.Inputs.URLsFile != "" {
		cfg.URLsFile = fc.Inputs.URLsFile
	}

	if fc.Renderer.Kind != "" {
		cfg.Renderer = fc.Renderer.Kind
	}
	if fc.Renderer.ChromeURL != "" {
		cfg.ChromeURL = fc.Renderer.ChromeURL
	}
	if fc.Renderer.Stealth {
		cfg.Stealth = true
	}
	if fc.Viewport.Width > 0 {
		cfg.ViewportWidth = fc.Viewport.Width
	}
	if fc.Viewport.Height > 0 {
		cfg.ViewportHeight = fc.Viewport.Height
	}

	if fc.Output.Path != "" {
		cfg.OutputPath = fc.Output.Path
	}
	if fc.Output.Format != "" {
		cfg.OutputFormat = fc.Output.Format
	}

	if fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if fc.Cache.Disable {
		cfg.NoCache = true
	}

	if fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if fc.Fetch.IgnoreRobots {
		cfg.IgnoreRobots = true
	}
	if fc.Fetch.Concurrency > 0 {
		cfg.Concurrency = fc.Fetch.Concurrency
	}
	if fc.Fetch.HostRate > 0 {
		cfg.HostRate = fc.Fetch.HostRate
	}
	if fc.Fetch.PageTimeout > 0 {
		cfg.PageTimeout = fc.Fetch.PageTimeout
	}

	if fc.Explain.Enable {
		cfg.Explain = true
	}
	if fc.Explain.SystemPrompt != "" {
		cfg.ExplainSystemPrompt = fc.Explain.SystemPrompt
	}
	if fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
}

// ErrNoInputs is returned when no page, file or snapshot was given.
var ErrNoInputs = errors.New("config: no inputs (use --url, --html, --snapshot or --urls-file)")

// ValidateConfig checks settings before any work starts.
func ValidateConfig(cfg Config) error {
	if len(cfg.URLs) == 0 && len(cfg.HTMLPaths) == 0 && len(cfg.SnapshotPaths) == 0 && strings.TrimSpace(cfg.URLsFile) == "" {
		return ErrNoInputs
	}
	switch cfg.Renderer {
	case RendererHTTP, RendererRod:
	default:
		return fmt.Errorf("config: unknown renderer %q (want %s or %s)", cfg.Renderer, RendererHTTP, RendererRod)
	}
	switch cfg.OutputFormat {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("config: unknown output format %q (want %s or %s)", cfg.OutputFormat, FormatJSON, FormatYAML)
	}
	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		return errors.New("config: viewport width and height must be positive")
	}
	if cfg.Concurrency < 1 {
		return errors.New("config: concurrency must be at least 1")
	}
	if cfg.HostRate < 0 || cfg.PageTimeout < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.Explain && strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: explain needs llm.model (or set HEROPRINT_LLM_MODEL)")
	}
	return nil
}
