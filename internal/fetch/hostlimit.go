package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter keeps one token bucket per host.
type hostLimiter struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	lims  map[string]*rate.Limiter
}

func newHostLimiter(perSecond float64, burst int) *hostLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &hostLimiter{limit: limit, burst: burst, lims: make(map[string]*rate.Limiter)}
}

func (h *hostLimiter) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.lims[host]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.lims[host] = l
	}
	return l
}

func (h *hostLimiter) wait(ctx context.Context, host string) error {
	return h.get(host).Wait(ctx)
}

// slowDown lowers the host's rate to one request per delay when that is
// slower than the current limit. It never speeds a host up.
func (h *hostLimiter) slowDown(host string, delay time.Duration) {
	l := h.get(host)
	if every := rate.Every(delay); every < l.Limit() {
		l.SetLimit(every)
	}
}
