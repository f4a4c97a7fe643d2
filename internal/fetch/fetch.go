// Package fetch downloads HTML pages for the simulated renderer. It retries
// transient failures, honours robots.txt, paces requests per host and
// revalidates cached copies with conditional GETs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/heroprint/internal/cache"
)

// maxBodyBytes bounds how much of a page is read.
const maxBodyBytes = 8 << 20

// ErrDisallowedByRobots is returned when robots.txt forbids the page.
var ErrDisallowedByRobots = errors.New("fetch: disallowed by robots.txt")

// Page is a fetched document decoded to UTF-8.
type Page struct {
	URL         string
	ContentType string
	Body        []byte
	// FromCache is set when a 304 was answered from the page cache.
	FromCache bool
}

// statusError carries a non-2xx HTTP status.
type statusError struct{ code int }

func (e *statusError) Error() string {
	if e.code >= 500 {
		return fmt.Sprintf("server error: %d", e.code)
	}
	return fmt.Sprintf("unexpected status: %d", e.code)
}

// Client wraps http.Client and provides timeouts and limited retry on transient errors.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// Optional on-disk cache for page bodies and validators.
	Cache *cache.HTTPCache
	// BypassCache skips conditional headers but still stores the response.
	BypassCache bool

	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests. Zero means unlimited.
	MaxConcurrent int

	// Robots, when set, is consulted before every page request.
	Robots *Robots
	// HostRate is the sustained requests per second allowed per host.
	// Zero disables pacing.
	HostRate float64
	// HostBurst is the per-host burst size. Minimum 1.
	HostBurst int

	limiter     chan struct{}
	limiterOnce sync.Once
	hostsOnce   sync.Once
	hosts       *hostLimiter
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Get fetches rawURL and returns the body decoded to UTF-8.
func (c *Client) Get(ctx context.Context, rawURL string) (Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return Page{}, fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}
	if c.Robots != nil {
		allowed, delay, err := c.Robots.Check(ctx, u)
		if err != nil {
			return Page{}, err
		}
		if !allowed {
			return Page{}, fmt.Errorf("%w: %s", ErrDisallowedByRobots, rawURL)
		}
		if delay > 0 {
			c.hostPacer().slowDown(u.Host, delay)
		}
	}
	if err := c.hostPacer().wait(ctx, u.Host); err != nil {
		return Page{}, err
	}

	var etag, lastMod string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		res, err := c.tryOnce(ctx, rawURL, etag, lastMod)
		if err == nil {
			return c.finish(ctx, rawURL, res)
		}
		if !isTransient(err) || i == attempts-1 {
			return Page{}, err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return Page{}, ctx.Err()
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return Page{}, lastErr
}

type response struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	status       int
}

func (c *Client) finish(ctx context.Context, rawURL string, res response) (Page, error) {
	page := Page{URL: rawURL, ContentType: res.contentType, Body: res.body}
	if c.Cache != nil {
		switch res.status {
		case http.StatusOK:
			_ = c.Cache.Save(ctx, rawURL, res.contentType, res.etag, res.lastModified, res.body)
		case http.StatusNotModified:
			cached, err := c.Cache.LoadBody(ctx, rawURL)
			if err != nil {
				return Page{}, fmt.Errorf("not modified but cache unreadable: %w", err)
			}
			page.Body = cached
			page.FromCache = true
			if page.ContentType == "" {
				if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil {
					page.ContentType = meta.ContentType
				}
			}
		}
	}
	body, err := toUTF8(page.Body, page.ContentType)
	if err != nil {
		return Page{}, fmt.Errorf("decode body: %w", err)
	}
	page.Body = body
	return page, nil
}

func (c *Client) tryOnce(ctx context.Context, rawURL, etag, lastMod string) (response, error) {
	c.acquire()
	defer c.release()

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	res := response{
		contentType:  resp.Header.Get("Content-Type"),
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		status:       resp.StatusCode,
	}
	if resp.StatusCode == http.StatusNotModified {
		return res, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{}, &statusError{code: resp.StatusCode}
	}
	if !isAllowedHTMLContentType(res.contentType) {
		return response{}, fmt.Errorf("unsupported content type: %s", res.contentType)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, fmt.Errorf("read body: %w", err)
	}
	res.body = b
	return res, nil
}

// isTransient treats HTTP 5xx and per-request deadlines as retryable.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *statusError
	return errors.As(err, &se) && se.code >= 500
}

// toUTF8 transcodes body using the Content-Type charset, a BOM or a
// <meta charset> sniff, in that order.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || enc == nil {
		return body, nil
	}
	return enc.NewDecoder().Bytes(body)
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}

func (c *Client) hostPacer() *hostLimiter {
	c.hostsOnce.Do(func() {
		c.hosts = newHostLimiter(c.HostRate, c.HostBurst)
	})
	return c.hosts
}
