// Package app wires configuration, page acquisition, fingerprinting, the
// result cache and output for the heroprint CLI.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/heroprint/internal/cache"
	"github.com/hyperifyio/heroprint/internal/explain"
	"github.com/hyperifyio/heroprint/internal/fetch"
	"github.com/hyperifyio/heroprint/internal/fingerprint"
	"github.com/hyperifyio/heroprint/internal/render"
	"github.com/hyperifyio/heroprint/internal/render/htmlsnap"
	"github.com/hyperifyio/heroprint/internal/render/rodsnap"
)

// ErrAllFailed is returned by Run when no input produced a fingerprint.
var ErrAllFailed = errors.New("every page failed")

type App struct {
	cfg       Config
	vp        render.Viewport
	fetcher   *fetch.Client
	robots    *fetch.Robots
	results   *cache.ResultCache
	explainer *explain.Explainer

	rodOnce sync.Once
	rod     *rodsnap.Renderer
	rodErr  error
}

// New validates cfg and prepares caches and clients. Chrome is started
// lazily on the first rod capture.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	hc := newHTTPClient(cfg.PageTimeout)
	a := &App{
		cfg: cfg,
		vp:  render.Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
	}
	if !cfg.IgnoreRobots {
		a.robots = &fetch.Robots{HTTPClient: hc, UserAgent: cfg.UserAgent}
	}
	a.fetcher = &fetch.Client{
		HTTPClient:        hc,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       2,
		PerRequestTimeout: cfg.PageTimeout,
		MaxConcurrent:     cfg.Concurrency,
		Robots:            a.robots,
		HostRate:          cfg.HostRate,
		HostBurst:         1,
	}

	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			pages, _ := cache.PurgeHTTPCacheByAge(cfg.CacheDir, cfg.CacheMaxAge)
			results, _ := cache.PurgeResultCacheByAge(cfg.CacheDir, cfg.CacheMaxAge)
			log.Debug().Int("pages", pages).Int("results", results).Msg("purged expired cache entries")
		}
		a.fetcher.Cache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
		a.fetcher.BypassCache = cfg.NoCache
		a.results = &cache.ResultCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}

	if cfg.Explain {
		a.explainer = &explain.Explainer{
			Client:       explain.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, hc),
			Model:        cfg.LLMModel,
			Cache:        a.results,
			SystemPrompt: cfg.ExplainSystemPrompt,
		}
	}
	return a, nil
}

// Close stops the browser if one was started.
func (a *App) Close() {
	if a.rod != nil {
		if err := a.rod.Close(); err != nil {
			log.Debug().Err(err).Msg("closing browser")
		}
		a.rod = nil
	}
}

// Run fingerprints every input and writes the results.
func (a *App) Run(ctx context.Context) error {
	inputs, err := ResolveInputs(a.cfg)
	if err != nil {
		return err
	}
	results := a.AnalyzeAll(ctx, inputs)
	if err := writeOutput(a.cfg.OutputPath, a.cfg.OutputFormat, results); err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	log.Info().Int("pages", len(results)).Int("failed", failed).Msg("done")
	if failed == len(results) {
		return fmt.Errorf("%w: %d of %d", ErrAllFailed, failed, len(results))
	}
	return nil
}

// AnalyzeAll processes inputs with bounded concurrency. Results keep input
// order and a failing page never cancels the others.
func (a *App) AnalyzeAll(ctx context.Context, inputs []Input) []Result {
	results := make([]Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			results[i] = a.Analyze(gctx, in)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Analyze fingerprints one input within the per-page time budget.
func (a *App) Analyze(ctx context.Context, in Input) Result {
	start := time.Now()
	res := Result{Input: in.Location, Source: a.sourceOf(in)}
	logger := log.With().Str("input", in.Location).Str("source", res.Source).Logger()

	if a.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.PageTimeout)
		defer cancel()
	}

	fp, pageURL, cached, err := a.fingerprint(ctx, in, logger)
	res.URL = pageURL
	res.Cached = cached
	res.ElapsedMS = time.Since(start).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("fingerprint failed")
		return res
	}
	res.Fingerprint = &fp

	if a.explainer != nil {
		md, err := a.explainer.Explain(ctx, pageURL, fp)
		if err != nil {
			logger.Warn().Err(err).Msg("explain failed")
		} else {
			res.Explanation = md
		}
	}

	headline := ""
	if fp.Headline != nil {
		headline = *fp.Headline
	}
	logger.Info().
		Str("url", pageURL).
		Dur("elapsed", time.Since(start)).
		Str("headline", headline).
		Int("ctas", fp.CTACount).
		Strs("stack", fp.Stack).
		Bool("cached", cached).
		Msg("fingerprinted")
	return res
}

func (a *App) sourceOf(in Input) string {
	if in.Kind == KindURL && a.cfg.Renderer == RendererRod {
		return RendererRod
	}
	return in.Kind
}

func (a *App) fingerprint(ctx context.Context, in Input, logger zerolog.Logger) (fingerprint.Fingerprint, string, bool, error) {
	switch in.Kind {
	case KindSnapshot:
		snap, err := loadSnapshotFile(in.Location, a.vp)
		if err != nil {
			return fingerprint.Fingerprint{}, "", false, err
		}
		fp, err := extractWithin(ctx, snap, logger)
		return fp, snap.URL, false, err
	case KindHTML:
		f, err := os.Open(in.Location)
		if err != nil {
			return fingerprint.Fingerprint{}, "", false, err
		}
		defer f.Close()
		snap, err := htmlsnap.Parse(f, a.vp)
		if err != nil {
			return fingerprint.Fingerprint{}, "", false, err
		}
		fp, err := extractWithin(ctx, snap, logger)
		return fp, snap.URL, false, err
	case KindURL:
		return a.fingerprintURL(ctx, in.Location, logger)
	}
	return fingerprint.Fingerprint{}, "", false, fmt.Errorf("unknown input kind %q", in.Kind)
}

func (a *App) fingerprintURL(ctx context.Context, pageURL string, logger zerolog.Logger) (fingerprint.Fingerprint, string, bool, error) {
	key := cache.FingerprintKey(a.cfg.Renderer, pageURL, a.vp.Width, a.vp.Height)
	if a.results != nil && !a.cfg.NoCache {
		if raw, ok, _ := a.results.Get(ctx, key); ok {
			var fp fingerprint.Fingerprint
			if err := json.Unmarshal(raw, &fp); err == nil {
				return fp, pageURL, true, nil
			}
		}
	}

	var (
		fp  fingerprint.Fingerprint
		err error
	)
	if a.cfg.Renderer == RendererRod {
		fp, err = a.captureWithRod(ctx, pageURL, logger)
	} else {
		fp, err = a.fetchAndParse(ctx, pageURL, logger)
	}
	if err != nil {
		return fingerprint.Fingerprint{}, pageURL, false, err
	}
	if a.results != nil {
		if b, err := json.Marshal(fp); err == nil {
			_ = a.results.Save(ctx, key, b)
		}
	}
	return fp, pageURL, false, nil
}

func (a *App) fetchAndParse(ctx context.Context, pageURL string, logger zerolog.Logger) (fingerprint.Fingerprint, error) {
	page, err := a.fetcher.Get(ctx, pageURL)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	snap, err := htmlsnap.ParseString(string(page.Body), a.vp)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	if snap.URL == "" {
		snap.URL = pageURL
	}
	return extractWithin(ctx, snap, logger)
}

func (a *App) captureWithRod(ctx context.Context, pageURL string, logger zerolog.Logger) (fingerprint.Fingerprint, error) {
	if a.robots != nil {
		u, err := url.Parse(pageURL)
		if err != nil {
			return fingerprint.Fingerprint{}, fmt.Errorf("parse url: %w", err)
		}
		allowed, _, err := a.robots.Check(ctx, u)
		if err != nil {
			return fingerprint.Fingerprint{}, err
		}
		if !allowed {
			return fingerprint.Fingerprint{}, fmt.Errorf("%w: %s", fetch.ErrDisallowedByRobots, pageURL)
		}
	}
	r, err := a.browser()
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	c, err := r.Capture(ctx, pageURL)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	defer c.Close()
	return extractWithin(ctx, c.Snapshot, logger)
}

func (a *App) browser() (*rodsnap.Renderer, error) {
	a.rodOnce.Do(func() {
		opt := rodsnap.Options{
			RemoteURL:  a.cfg.ChromeURL,
			Viewport:   a.vp,
			NavTimeout: a.cfg.PageTimeout,
			MaxTabs:    a.cfg.Concurrency,
			Stealth:    a.cfg.Stealth,
		}
		if strings.TrimSpace(a.cfg.UserAgent) != DefaultUserAgent {
			opt.UserAgent = a.cfg.UserAgent
		}
		a.rod, a.rodErr = rodsnap.New(opt)
	})
	return a.rod, a.rodErr
}

// extractWithin runs the engine but gives up when ctx ends first. The
// engine itself has no cancellation, so a late result is discarded.
func extractWithin(ctx context.Context, snap *render.Snapshot, logger zerolog.Logger) (fingerprint.Fingerprint, error) {
	type outcome struct {
		fp  fingerprint.Fingerprint
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		fp, err := fingerprint.Extract(snap, fingerprint.Options{Logger: &logger})
		done <- outcome{fp, err}
	}()
	select {
	case o := <-done:
		return o.fp, o.err
	case <-ctx.Done():
		return fingerprint.Fingerprint{}, fmt.Errorf("extract: %w", ctx.Err())
	}
}
