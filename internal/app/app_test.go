package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/heroprint/internal/render"
	"github.com/hyperifyio/heroprint/internal/render/htmlsnap"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	dir := t.TempDir()
	cfg.CacheDir = filepath.Join(dir, "cache")
	cfg.OutputPath = filepath.Join(dir, "out", "results.json")
	cfg.HostRate = 0
	cfg.PageTimeout = 10 * time.Second
	return cfg
}

func runApp(t *testing.T, cfg Config) ([]Result, error) {
	t.Helper()
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()
	runErr := a.Run(context.Background())
	b, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var results []Result
	if cfg.OutputFormat == FormatJSON {
		if err := json.Unmarshal(b, &results); err != nil {
			t.Fatalf("decode output: %v\n%s", err, b)
		}
	}
	return results, runErr
}

func heroServer(t *testing.T, robots string) (*httptest.Server, *int32) {
	t.Helper()
	page, err := os.ReadFile(filepath.Join("testdata", "hero.html"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, robots)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestRun_LocalInputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTMLPaths = []string{filepath.Join("testdata", "hero.html")}
	cfg.SnapshotPaths = []string{filepath.Join("testdata", "empty.snapshot.json")}

	results, err := runApp(t, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	snap, page := results[0], results[1]
	if snap.Source != KindSnapshot || snap.URL != "https://blank.example/" {
		t.Fatalf("unexpected snapshot result %+v", snap)
	}
	if snap.Fingerprint == nil || snap.Fingerprint.Headline != nil || snap.Fingerprint.HeroBottom != 900 {
		t.Fatalf("expected empty fingerprint for blank page, got %+v", snap.Fingerprint)
	}
	if page.Source != KindHTML || page.Fingerprint == nil {
		t.Fatalf("unexpected html result %+v", page)
	}
	if h := page.Fingerprint.Headline; h == nil || *h != "Ship code faster, together" {
		t.Fatalf("unexpected headline %v", h)
	}
	if p := page.Fingerprint.PrimaryCTA; p == nil || *p != "Start free trial" {
		t.Fatalf("unexpected primary CTA %v", p)
	}
}

func TestRun_OutputKeepsNullFields(t *testing.T) {
	cfg := testConfig(t)
	cfg.SnapshotPaths = []string{filepath.Join("testdata", "empty.snapshot.json")}
	if _, err := runApp(t, cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	b, _ := os.ReadFile(cfg.OutputPath)
	for _, want := range []string{`"headline": null`, `"ctas": []`, `"dark_theme_hero": false`, `"interactive_demo": {`} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("output missing %s:\n%s", want, b)
		}
	}
}

func TestRun_URLUsesResultCache(t *testing.T) {
	srv, hits := heroServer(t, "User-agent: *\nDisallow:\n")
	cfg := testConfig(t)
	cfg.URLs = []string{srv.URL + "/"}

	first, err := runApp(t, cfg)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first[0].Cached || first[0].Fingerprint == nil || first[0].Fingerprint.Headline == nil {
		t.Fatalf("unexpected first result %+v", first[0])
	}
	second, err := runApp(t, cfg)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second[0].Cached || *second[0].Fingerprint.Headline != *first[0].Fingerprint.Headline {
		t.Fatalf("expected cached fingerprint, got %+v", second[0])
	}
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Fatalf("expected one page fetch, got %d", got)
	}

	cfg.NoCache = true
	third, err := runApp(t, cfg)
	if err != nil || third[0].Cached {
		t.Fatalf("expected fresh fingerprint with cache disabled, cached=%v err=%v", third[0].Cached, err)
	}
}

func TestRun_RobotsDisallowFailsEveryPage(t *testing.T) {
	srv, hits := heroServer(t, "User-agent: *\nDisallow: /\n")
	cfg := testConfig(t)
	cfg.URLs = []string{srv.URL + "/a", srv.URL + "/b"}

	results, err := runApp(t, cfg)
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("expected ErrAllFailed, got %v", err)
	}
	for _, r := range results {
		if r.Fingerprint != nil || !strings.Contains(r.Error, "robots") {
			t.Fatalf("expected robots failure, got %+v", r)
		}
	}
	if atomic.LoadInt32(hits) != 0 {
		t.Fatalf("disallowed pages must not be fetched")
	}

	cfg.IgnoreRobots = true
	if _, err := runApp(t, cfg); err != nil {
		t.Fatalf("expected success when ignoring robots, got %v", err)
	}
}

func TestRun_PartialFailureSucceeds(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTMLPaths = []string{filepath.Join("testdata", "hero.html"), filepath.Join("testdata", "missing.html")}
	results, err := runApp(t, cfg)
	if err != nil {
		t.Fatalf("one good page should be enough, got %v", err)
	}
	if results[1].Error == "" || results[0].Error != "" {
		t.Fatalf("unexpected errors: %q / %q", results[0].Error, results[1].Error)
	}
}

func TestRun_YAMLOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputFormat = FormatYAML
	cfg.OutputPath = filepath.Join(t.TempDir(), "results.yaml")
	cfg.HTMLPaths = []string{filepath.Join("testdata", "hero.html")}
	if _, err := runApp(t, cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	b, _ := os.ReadFile(cfg.OutputPath)
	for _, want := range []string{"headline: Ship code faster, together", "source: html", "primary_cta: Start free trial"} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("yaml output missing %q:\n%s", want, b)
		}
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	if _, err := New(context.Background(), cfg); !errors.Is(err, ErrNoInputs) {
		t.Fatalf("expected ErrNoInputs, got %v", err)
	}
}

type blockingHit struct{ release chan struct{} }

func (b blockingHit) ElementAt(x, y float64) (*render.Node, error) {
	<-b.release
	return nil, errors.New("released")
}

func TestExtractWithin_HonoursDeadline(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "hero.html"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	snap, err := htmlsnap.Parse(f, render.Viewport{Width: 1440, Height: 900})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	hit := blockingHit{release: make(chan struct{})}
	defer close(hit.release)
	snap.HitTester = hit

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := extractWithin(ctx, snap, zerolog.Nop()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
