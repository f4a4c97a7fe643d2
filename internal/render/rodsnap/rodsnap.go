// Package rodsnap captures render.Snapshots from live pages in headless
// Chrome driven by Rod. Point-hit queries go back to the live page, so a
// Capture must stay open while the snapshot is analysed.
package rodsnap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	defaultNavTimeout = 30 * time.Second
	defaultSettle     = 500 * time.Millisecond
	defaultMaxNodes   = 20000
	defaultMaxTabs    = 3
)

// ErrNotCaptured is returned by hit tests on a page without a snapshot.
var ErrNotCaptured = errors.New("rodsnap: page has no snapshot")

// Options configures the browser.
type Options struct {
	// RemoteURL connects to an existing Chrome DevTools endpoint instead of
	// launching a local browser.
	RemoteURL  string
	Viewport   render.Viewport
	UserAgent  string
	NavTimeout time.Duration
	// Settle is how long the DOM must stay unchanged before capture.
	Settle   time.Duration
	MaxNodes int
	MaxTabs  int
	// Stealth applies go-rod/stealth evasions to every tab.
	Stealth bool
}

func (o *Options) defaults() {
	if o.NavTimeout <= 0 {
		o.NavTimeout = defaultNavTimeout
	}
	if o.Settle <= 0 {
		o.Settle = defaultSettle
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = defaultMaxNodes
	}
	if o.MaxTabs <= 0 {
		o.MaxTabs = defaultMaxTabs
	}
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = render.Viewport{Width: 1440, Height: 900}
	}
}

// Renderer owns one browser process and hands out captures.
type Renderer struct {
	opt     Options
	browser *rod.Browser
	lnch    *launcher.Launcher
	tabSem  chan struct{}
}

// New launches (or connects to) Chrome.
func New(opt Options) (*Renderer, error) {
	opt.defaults()
	r := &Renderer{opt: opt, tabSem: make(chan struct{}, opt.MaxTabs)}
	wsURL := opt.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-gpu").
			Set("disable-dev-shm-usage").
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("rodsnap: launch: %w", err)
		}
		wsURL = u
		r.lnch = l
		log.Debug().Str("url", wsURL).Msg("launched headless chrome")
	}
	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		r.cleanup()
		return nil, fmt.Errorf("rodsnap: connect: %w", err)
	}
	r.browser = b
	return r, nil
}

// Close shuts the browser down.
func (r *Renderer) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	r.cleanup()
	return err
}

func (r *Renderer) cleanup() {
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
}

// Capture is an open tab plus the snapshot taken from it.
type Capture struct {
	Snapshot *render.Snapshot
	page     *rod.Page
	release  func()
}

// Close closes the tab. The snapshot stays readable but hit tests fail.
func (c *Capture) Close() error {
	if c.page == nil {
		return nil
	}
	err := c.page.Close()
	c.page = nil
	if c.release != nil {
		c.release()
		c.release = nil
	}
	return err
}

// Capture navigates to pageURL, waits for the DOM to settle and serialises
// it. The caller must Close the returned Capture.
func (r *Renderer) Capture(ctx context.Context, pageURL string) (*Capture, error) {
	select {
	case r.tabSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	release := func() { <-r.tabSem }

	page, err := r.openPage()
	if err != nil {
		release()
		return nil, err
	}
	c := &Capture{page: page, release: release}
	snap, err := r.load(ctx, page, pageURL)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	snap.HitTester = pageHitTester{page: page, snap: snap}
	c.Snapshot = snap
	return c, nil
}

func (r *Renderer) openPage() (*rod.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if r.opt.Stealth {
		page, err = stealth.Page(r.browser)
	} else {
		page, err = r.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("rodsnap: create tab: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(r.opt.Viewport.Width),
		Height:            int(r.opt.Viewport.Height),
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("rodsnap: set viewport: %w", err)
	}
	if r.opt.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.opt.UserAgent}); err != nil {
			log.Warn().Err(err).Msg("rodsnap: user agent override failed")
		}
	}
	return page, nil
}

func (r *Renderer) load(ctx context.Context, page *rod.Page, pageURL string) (*render.Snapshot, error) {
	navCtx, cancel := context.WithTimeout(ctx, r.opt.NavTimeout)
	defer cancel()
	p := page.Context(navCtx)
	if err := p.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("rodsnap: navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		log.Warn().Str("url", pageURL).Err(err).Msg("rodsnap: wait load")
	}
	if err := p.WaitStable(r.opt.Settle); err != nil {
		log.Debug().Str("url", pageURL).Err(err).Msg("rodsnap: DOM did not settle")
	}
	res, err := p.Eval(snapshotScript, r.opt.MaxNodes)
	if err != nil {
		return nil, fmt.Errorf("rodsnap: snapshot %s: %w", pageURL, err)
	}
	return decodeSnapshot(res.Value.Str(), r.opt.Viewport)
}

// decodeSnapshot parses the script output. The emulated viewport wins when
// the page reports none.
func decodeSnapshot(raw string, vp render.Viewport) (*render.Snapshot, error) {
	snap, err := render.Decode(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("rodsnap: %w", err)
	}
	if snap.Viewport.Width <= 0 || snap.Viewport.Height <= 0 {
		snap.Viewport = vp
	}
	return snap, nil
}

// pageHitTester answers point queries against the live page.
type pageHitTester struct {
	page *rod.Page
	snap *render.Snapshot
}

func (h pageHitTester) ElementAt(x, y float64) (*render.Node, error) {
	res, err := h.page.Timeout(5*time.Second).Eval(hitScript, x, y)
	if err != nil {
		return nil, fmt.Errorf("rodsnap: hit test: %w", err)
	}
	return resolveHit(h.snap, res.Value.Int(), x, y)
}

func resolveHit(snap *render.Snapshot, id int, x, y float64) (*render.Node, error) {
	switch {
	case id < 0:
		return nil, ErrNotCaptured
	case id == 0:
		return nil, fmt.Errorf("rodsnap: no element at (%.0f, %.0f)", x, y)
	}
	n := snap.NodeByID(id)
	if n == nil {
		return nil, fmt.Errorf("rodsnap: hit element %d not in snapshot", id)
	}
	return n, nil
}
