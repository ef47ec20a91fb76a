package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// unlimitedRate stands in for rate.Inf, which has edge cases with bursts.
const unlimitedRate = 1_000_000_000

// RateLimiter keeps one token bucket per client key (typically the remote
// IP address) so that a single noisy client cannot starve the others.
//
// The token bucket algorithm works as follows:
//  1. Tokens are added to each bucket at a constant rate (requests per second)
//  2. Each request consumes one token from its client's bucket
//  3. If the bucket is empty, the request is rejected
//  4. Burst capacity allows temporary spikes above the sustained rate
//
// Buckets of clients that have been idle longer than the configured TTL are
// dropped by Prune.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*client

	now func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a RateLimiter with the given per-client rate and burst.
//
// Special cases:
//   - requestsPerSecond = 0: No rate limiting (unlimited)
//   - burst = 0: burst defaults to requestsPerSecond
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = unlimitedRate
		burst = unlimitedRate
	}
	if burst == 0 {
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limit:   rate.Limit(requestsPerSecond),
		burst:   int(burst),
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// Allow reports whether a request from key may proceed now, consuming a
// token if so.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	now := r.now()
	c, ok := r.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[key] = c
	}
	c.lastSeen = now
	r.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

// Prune drops the buckets of clients not seen for longer than ttl and
// returns how many were removed.
func (r *RateLimiter) Prune(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-ttl)
	removed := 0
	for key, c := range r.clients {
		if c.lastSeen.Before(cutoff) {
			delete(r.clients, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Tokens returns the tokens currently available to key. Unknown clients
// have a full bucket.
func (r *RateLimiter) Tokens(key string) float64 {
	r.mu.Lock()
	c, ok := r.clients[key]
	now := r.now()
	r.mu.Unlock()

	if !ok {
		return float64(r.burst)
	}
	return c.limiter.TokensAt(now)
}
