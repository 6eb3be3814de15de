package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/config"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  5,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.66": true},
		EndpointConfigs: []EndpointConfig{
			{Path: "/optimize", Method: "POST", Limit: 2, Window: time.Hour, Burst: 2},
		},
	}
}

func TestTokenBucket_Take(t *testing.T) {
	c := newClock()
	bucket := newTokenBucket(3, 1.0, c.Now())

	for i := 0; i < 3; i++ {
		allowed, _, _, _ := bucket.take(c.Now())
		assert.True(t, allowed, "request %d", i+1)
	}
	allowed, remaining, reset, retryAfter := bucket.take(c.Now())
	assert.False(t, allowed)
	assert.Zero(t, remaining)
	assert.Equal(t, c.Now().Add(3*time.Second), reset)
	assert.Equal(t, time.Second, retryAfter)

	c.Advance(time.Second)
	allowed, _, _, _ = bucket.take(c.Now())
	assert.True(t, allowed, "one token refilled")
}

func TestTokenBucket_NeverExceedsCapacity(t *testing.T) {
	c := newClock()
	bucket := newTokenBucket(2, 10, c.Now())
	c.Advance(time.Hour)

	_, remaining, _, _ := bucket.take(c.Now())
	assert.Equal(t, 1, remaining)
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	c := newClock()
	l := NewLimiter(testConfig(), WithClock(c.Now))
	defer l.Stop()

	for i := 0; i < 2; i++ {
		allowed, info := l.Allow("192.0.2.1", "/optimize", "POST")
		require.True(t, allowed)
		assert.Equal(t, 2, info.Limit)
	}
	allowed, info := l.Allow("192.0.2.1", "/optimize", "POST")
	assert.False(t, allowed)
	assert.InDelta(t, (30 * time.Minute).Seconds(), info.RetryAfter.Seconds(), 0.01)

	// Other endpoints and other clients have their own buckets.
	allowed, info = l.Allow("192.0.2.1", "/analyze", "POST")
	assert.True(t, allowed)
	assert.Equal(t, 5, info.Limit)
	allowed, _ = l.Allow("192.0.2.2", "/optimize", "POST")
	assert.True(t, allowed)
}

func TestLimiter_Lists(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 20; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/optimize", "POST")
		require.True(t, allowed, "whitelisted")
	}
	allowed, _ := l.Allow("10.0.0.66", "/health", "GET")
	assert.False(t, allowed, "blacklisted clients are refused everywhere")
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false})
	defer l.Stop()

	for i := 0; i < 100; i++ {
		allowed, info := l.Allow("192.0.2.1", "/optimize", "POST")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
	assert.Zero(t, l.Len())
}

func TestLimiter_UnlimitedOperationalEndpoints(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	for _, path := range []string{"/health", "/metrics"} {
		for i := 0; i < 50; i++ {
			allowed, _ := l.Allow("192.0.2.1", path, "GET")
			require.True(t, allowed, path)
		}
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	c := newClock()
	l := NewLimiter(testConfig(), WithClock(c.Now))
	defer l.Stop()

	l.Allow("192.0.2.1", "/optimize", "POST")
	c.Advance(30 * time.Minute)
	l.Allow("192.0.2.2", "/optimize", "POST")
	require.Equal(t, 2, l.Len())

	c.Advance(45 * time.Minute)
	l.cleanupBuckets()
	assert.Equal(t, 1, l.Len(), "only the bucket idle for over an hour is removed")
}

func TestLimiter_Concurrent(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})
	defer l.Stop()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("192.0.2.9", "/analyze", "POST"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.InDelta(t, 50, allowed.Load(), 1)
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(nil)
	assert.NotPanics(t, func() {
		l.Stop()
		l.Stop()
	})
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/analyze", Method: "POST", Limit: 1},
		{Path: "/admin/", Method: "POST", Limit: 2},
		{Path: "/admin/reset", Method: "POST", Limit: 3},
	}

	tests := []struct {
		path, method string
		want         int
		found        bool
	}{
		{"/analyze", "POST", 1, true},
		{"/analyze", "GET", 0, false},
		{"/admin/reset", "POST", 3, true},
		{"/admin/other", "POST", 2, true},
		{"/health", "GET", 0, true},
		{"/unknown", "POST", 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if !tt.found {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Limit)
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.RateLimitConfig{
		Enabled:       true,
		AnalyzeLimit:  30,
		OptimizeLimit: 10,
		DefaultLimit:  500,
		DefaultWindow: time.Minute,
		Whitelist:     []string{"127.0.0.1, ::1", " "},
	})

	assert.True(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"127.0.0.1": true, "::1": true}, cfg.Whitelist)
	assert.Empty(t, cfg.Blacklist)

	analyze := MatchEndpoint("/analyze", "POST", cfg.EndpointConfigs)
	require.NotNil(t, analyze)
	assert.Equal(t, 30, analyze.Limit)
	assert.Equal(t, 3, analyze.Burst)

	optimize := MatchEndpoint("/optimize", "POST", cfg.EndpointConfigs)
	require.NotNil(t, optimize)
	assert.Equal(t, 1, optimize.Burst)

	assert.False(t, FromConfig(config.RateLimitConfig{Enabled: false}).Enabled)
}
