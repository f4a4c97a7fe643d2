package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/heroprint/internal/app"
)

// Exit codes.
const (
	exitOK        = 0
	exitConfig    = 1
	exitAllFailed = 2
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := app.LoadEnvFiles(".env"); err != nil {
		log.Warn().Err(err).Msg("loading .env failed")
	}
	cfg, showVersion, err := parseConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(exitOK)
	}
	if err != nil {
		log.Error().Err(err).Msg("invalid arguments")
		os.Exit(exitConfig)
	}
	if showVersion {
		fmt.Println(app.VersionString())
		os.Exit(exitOK)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = run(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
	}
	stop()
	os.Exit(exitCode(err))
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()
	return a.Run(ctx)
}

// exitCode maps run errors: 2 when every page failed, 1 for anything that
// stopped the run before pages were processed.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, app.ErrAllFailed):
		return exitAllFailed
	default:
		return exitConfig
	}
}

// parseConfig layers defaults, the config file, HEROPRINT_* env and flags,
// in increasing precedence. Positional arguments are URLs.
func parseConfig(args []string, stderr io.Writer) (app.Config, bool, error) {
	var (
		scratch    = app.DefaultConfig()
		configPath string
		version    bool
	)
	pre := newFlagSet(&scratch, &configPath, &version)
	pre.SetOutput(io.Discard)
	if err := pre.Parse(args); err != nil && !errors.Is(err, flag.ErrHelp) {
		fs := newFlagSet(&scratch, &configPath, &version)
		fs.SetOutput(stderr)
		return app.Config{}, false, fs.Parse(args)
	}

	cfg := app.DefaultConfig()
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return app.Config{}, false, fmt.Errorf("config file: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	fs := newFlagSet(&cfg, &configPath, &version)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return app.Config{}, false, err
	}
	cfg.URLs = append(cfg.URLs, fs.Args()...)
	return cfg, version, nil
}

func newFlagSet(cfg *app.Config, configPath *string, version *bool) *flag.FlagSet {
	fs := flag.NewFlagSet("heroprint", flag.ContinueOnError)
	fs.StringVar(configPath, "config", *configPath, "Path to a YAML or JSON config file")
	fs.BoolVar(version, "version", false, "Print version and exit")

	fs.Var(newListFlag(&cfg.URLs), "url", "Page URL to fingerprint (repeatable, comma separated)")
	fs.Var(newListFlag(&cfg.HTMLPaths), "html", "Local HTML file rendered with the simulated renderer (repeatable)")
	fs.Var(newListFlag(&cfg.SnapshotPaths), "snapshot", "Renderer snapshot file, JSON or YAML (repeatable)")
	fs.StringVar(&cfg.URLsFile, "urls-file", cfg.URLsFile, "File with one URL per line")

	fs.StringVar(&cfg.Renderer, "renderer", cfg.Renderer, "Renderer for URLs: http (simulated) or rod (headless Chrome)")
	fs.StringVar(&cfg.ChromeURL, "chrome.url", cfg.ChromeURL, "DevTools URL of a running Chrome; empty launches one")
	fs.BoolVar(&cfg.Stealth, "stealth", cfg.Stealth, "Apply stealth evasions to Chrome tabs")
	fs.Float64Var(&cfg.ViewportWidth, "width", cfg.ViewportWidth, "Viewport width in CSS pixels")
	fs.Float64Var(&cfg.ViewportHeight, "height", cfg.ViewportHeight, "Viewport height in CSS pixels")

	fs.StringVar(&cfg.OutputPath, "output", cfg.OutputPath, "Output path; empty writes to stdout")
	fs.StringVar(&cfg.OutputPath, "o", cfg.OutputPath, "Shorthand for --output")
	fs.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: json or yaml")

	fs.StringVar(&cfg.CacheDir, "cache.dir", cfg.CacheDir, "Cache directory; empty disables caching")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", cfg.CacheMaxAge, "Purge cache entries older than this (e.g. 24h); 0 disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", cfg.CacheClear, "Clear the cache directory before running")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", cfg.CacheStrictPerms, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&cfg.NoCache, "no-cache", cfg.NoCache, "Ignore cached pages and fingerprints (still refreshes them)")

	fs.StringVar(&cfg.UserAgent, "ua", cfg.UserAgent, "User-Agent for page and robots.txt requests")
	fs.BoolVar(&cfg.IgnoreRobots, "ignore-robots", cfg.IgnoreRobots, "Do not consult robots.txt")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Pages processed in parallel")
	fs.Float64Var(&cfg.HostRate, "host-rate", cfg.HostRate, "Requests per second per host; 0 disables pacing")
	fs.DurationVar(&cfg.PageTimeout, "timeout", cfg.PageTimeout, "Wall-clock budget per page")

	fs.BoolVar(&cfg.Explain, "explain", cfg.Explain, "Ask a chat model for a Markdown breakdown of each fingerprint")
	fs.StringVar(&cfg.ExplainSystemPrompt, "explain.systemPrompt", cfg.ExplainSystemPrompt, "Override the explain system prompt")
	fs.StringVar(&cfg.LLMBaseURL, "llm.base", cfg.LLMBaseURL, "OpenAI-compatible base URL")
	fs.StringVar(&cfg.LLMModel, "llm.model", cfg.LLMModel, "Model name")
	fs.StringVar(&cfg.LLMAPIKey, "llm.key", cfg.LLMAPIKey, "API key for the OpenAI-compatible server")

	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	return fs
}

// listFlag collects comma separated, repeatable values. The first use on
// the command line replaces values that came from the file or env.
type listFlag struct {
	dst      *[]string
	replaced bool
}

func newListFlag(dst *[]string) *listFlag { return &listFlag{dst: dst} }

func (l *listFlag) String() string {
	if l == nil || l.dst == nil {
		return ""
	}
	return strings.Join(*l.dst, ",")
}

func (l *listFlag) Set(v string) error {
	if !l.replaced {
		*l.dst = nil
		l.replaced = true
	}
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			*l.dst = append(*l.dst, s)
		}
	}
	return nil
}
