package fetch

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter hands out one token-bucket limiter per host, so batch runs
// spread load across boards instead of hammering whichever one appears most
// often in the input.
type HostLimiter struct {
	mu      sync.Mutex
	perHost map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewHostLimiter allows rps requests per second per host with the given
// burst. Non-positive arguments are clamped to 1.
func NewHostLimiter(rps float64, burst int) *HostLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		perHost: make(map[string]*rate.Limiter),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

// Wait blocks until the host's limiter grants a token or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	h.mu.Lock()
	lim, ok := h.perHost[host]
	if !ok {
		lim = rate.NewLimiter(h.limit, h.burst)
		h.perHost[host] = lim
	}
	h.mu.Unlock()
	return lim.Wait(ctx)
}
