package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix namespaces every environment variable read by heroprint.
const EnvPrefix = "HEROPRINT_"

// ApplyEnvOverrides overrides cfg fields with HEROPRINT_* environment
// variables that are set. Env sits above the config file and below flags.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
			*dst = v
		}
	}
	setList := func(dst *[]string, key string) {
		if v := os.Getenv(EnvPrefix + key); strings.TrimSpace(v) != "" {
			*dst = splitList(v)
		}
	}
	setFloat := func(dst *float64, key string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setInt := func(dst *int, key string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvPrefix + key))) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}

	setList(&cfg.URLs, "URLS")
	setList(&cfg.HTMLPaths, "HTML")
	setList(&cfg.SnapshotPaths, "SNAPSHOTS")
	setString(&cfg.URLsFile, "URLS_FILE")

	setString(&cfg.Renderer, "RENDERER")
	setString(&cfg.ChromeURL, "CHROME_URL")
	setBool(&cfg.Stealth, "STEALTH")
	setFloat(&cfg.ViewportWidth, "VIEWPORT_WIDTH")
	setFloat(&cfg.ViewportHeight, "VIEWPORT_HEIGHT")

	setString(&cfg.OutputPath, "OUTPUT")
	setString(&cfg.OutputFormat, "FORMAT")

	setString(&cfg.CacheDir, "CACHE_DIR")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.NoCache, "NO_CACHE")

	setString(&cfg.UserAgent, "USER_AGENT")
	setBool(&cfg.IgnoreRobots, "IGNORE_ROBOTS")
	setInt(&cfg.Concurrency, "CONCURRENCY")
	setFloat(&cfg.HostRate, "HOST_RATE")
	setDuration(&cfg.PageTimeout, "PAGE_TIMEOUT")

	setBool(&cfg.Explain, "EXPLAIN")
	setString(&cfg.ExplainSystemPrompt, "EXPLAIN_SYSTEM_PROMPT")
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")

	setBool(&cfg.Verbose, "VERBOSE")
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
