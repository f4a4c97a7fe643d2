package app

import "time"

// Renderer kinds.
const (
	RendererHTTP = "http"
	RendererRod  = "rod"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const (
	DefaultUserAgent      = "heroprint/1.0 (+https://github.com/hyperifyio/heroprint)"
	DefaultCacheDir       = ".heroprint-cache"
	DefaultViewportWidth  = 1440
	DefaultViewportHeight = 900
	DefaultConcurrency    = 4
	DefaultHostRate       = 1.0
	DefaultPageTimeout    = 45 * time.Second
)

// Config holds runtime configuration for the application.
type Config struct {
	// Inputs
	URLs          []string
	HTMLPaths     []string
	SnapshotPaths []string
	URLsFile      string

	// Rendering
	Renderer       string
	ChromeURL      string
	Stealth        bool
	ViewportWidth  float64
	ViewportHeight float64

	// Output
	OutputPath   string
	OutputFormat string

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	NoCache          bool

	// Fetching
	UserAgent    string
	IgnoreRobots bool
	Concurrency  int
	HostRate     float64
	PageTimeout  time.Duration

	// Explain
	Explain             bool
	ExplainSystemPrompt string
	LLMBaseURL          string
	LLMModel            string
	LLMAPIKey           string

	Verbose bool
}

// DefaultConfig returns the configuration used before file, env and flags
// are applied.
func DefaultConfig() Config {
	return Config{
		Renderer:       RendererHTTP,
		ViewportWidth:  DefaultViewportWidth,
		ViewportHeight: DefaultViewportHeight,
		OutputFormat:   FormatJSON,
		CacheDir:       DefaultCacheDir,
		UserAgent:      DefaultUserAgent,
		Concurrency:    DefaultConcurrency,
		HostRate:       DefaultHostRate,
		PageTimeout:    DefaultPageTimeout,
	}
}
