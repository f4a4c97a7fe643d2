package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
)

const defaultRobotsExpiry = 30 * time.Minute

// Robots fetches and caches robots.txt per origin.
type Robots struct {
	HTTPClient *http.Client
	UserAgent  string
	// Expiry is how long a parsed file is reused. Zero means 30 minutes.
	Expiry time.Duration

	mu  sync.Mutex
	mem map[string]robotsEntry
	now func() time.Time
}

type robotsEntry struct {
	data   *robotstxt.RobotsData
	expiry time.Time
}

// Check reports whether u may be fetched and the crawl delay requested for
// our agent. An unreachable robots.txt allows everything.
func (r *Robots) Check(ctx context.Context, u *url.URL) (bool, time.Duration, error) {
	data, err := r.rules(ctx, u)
	if err != nil {
		return false, 0, err
	}
	if data == nil {
		return true, 0, nil
	}
	agent := agentToken(r.UserAgent)
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	var delay time.Duration
	if g := data.FindGroup(agent); g != nil {
		delay = g.CrawlDelay
	}
	return data.TestAgent(path, agent), delay, nil
}

func (r *Robots) rules(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	origin := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)

	r.mu.Lock()
	if r.mem == nil {
		r.mem = make(map[string]robotsEntry)
	}
	if ent, ok := r.mem[origin]; ok && r.clock().Before(ent.expiry) {
		r.mu.Unlock()
		return ent.data, nil
	}
	r.mu.Unlock()

	data, err := r.fetch(ctx, origin+"/robots.txt")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Debug().Str("origin", origin).Err(err).Msg("robots.txt unavailable; allowing")
		data = nil
	}
	expiry := r.Expiry
	if expiry <= 0 {
		expiry = defaultRobotsExpiry
	}
	r.mu.Lock()
	r.mem[origin] = robotsEntry{data: data, expiry: r.clock().Add(expiry)}
	r.mu.Unlock()
	return data, nil
}

func (r *Robots) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Robots) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}
	client := r.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}

// agentToken returns the product token of a User-Agent header, which is
// what robots.txt groups are matched against.
func agentToken(ua string) string {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return "*"
	}
	if i := strings.IndexAny(ua, "/ "); i > 0 {
		return ua[:i]
	}
	return ua
}
