package ratelimiter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock returns a fixed time that tests advance by hand.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(rps, burst uint) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	r := New(rps, burst)
	r.now = clock.now
	return r, clock
}

func TestNew(t *testing.T) {
	tests := []struct {
		name              string
		requestsPerSecond uint
		burst             uint
		wantBurst         int
	}{
		{"standard rate", 100, 200, 200},
		{"low rate", 1, 2, 2},
		{"zero burst defaults to rate", 10, 0, 10},
		{"unlimited (zero rate)", 0, 0, unlimitedRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.requestsPerSecond, tt.burst)
			require.NotNil(t, limiter)
			assert.Equal(t, tt.wantBurst, limiter.burst)
		})
	}
}

func TestAllow_EnforcesBurstPerClient(t *testing.T) {
	r, _ := newTestLimiter(10, 5)

	for i := 0; i < 5; i++ {
		assert.True(t, r.Allow("10.0.0.1"), "request %d should be allowed (within burst)", i)
	}
	assert.False(t, r.Allow("10.0.0.1"), "request beyond burst should be rejected")

	// Another client has its own bucket.
	assert.True(t, r.Allow("10.0.0.2"))
	assert.Equal(t, 2, r.Len())
}

func TestAllow_Refills(t *testing.T) {
	r, clock := newTestLimiter(10, 1)

	require.True(t, r.Allow("c"))
	require.False(t, r.Allow("c"))

	clock.advance(100 * time.Millisecond)
	assert.True(t, r.Allow("c"))
}

func TestAllow_Unlimited(t *testing.T) {
	r, _ := newTestLimiter(0, 0)
	for i := 0; i < 10_000; i++ {
		require.True(t, r.Allow("c"))
	}
}

func TestPrune(t *testing.T) {
	r, clock := newTestLimiter(10, 10)

	r.Allow("old")
	clock.advance(2 * time.Minute)
	r.Allow("new")

	assert.Equal(t, 1, r.Prune(time.Minute))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 0, r.Prune(time.Minute))
}

func TestTokens(t *testing.T) {
	r, _ := newTestLimiter(10, 3)

	assert.Equal(t, 3.0, r.Tokens("unknown"))
	r.Allow("c")
	assert.InDelta(t, 2.0, r.Tokens("c"), 0.001)
}

func TestConcurrentAllow(t *testing.T) {
	r, _ := newTestLimiter(1, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}
