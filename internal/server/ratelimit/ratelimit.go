// Package ratelimit provides token-bucket rate limiting for the HTTP API.
package ratelimit

import (
	"sync"
	"time"
)

// bucket is a token bucket. Tokens refill continuously at refillRate per
// second up to capacity.
type bucket struct {
	mu         sync.Mutex
	capacity   int
	refillRate float64
	tokens     float64
	lastRefill time.Time
}

func newBucket(capacity int, refillRate float64) *bucket {
	return &bucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

func (b *bucket) refillLocked() {
	now := time.Now()
	b.tokens = min(float64(b.capacity), b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now
}

// take consumes one token if available.
func (b *bucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}

// status reports remaining tokens and when the bucket will be full again.
func (b *bucket) status() (remaining int, resetTime time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	remaining = int(b.tokens)
	resetTime = b.lastRefill
	if b.tokens < float64(b.capacity) {
		secondsUntilFull := (float64(b.capacity) - b.tokens) / b.refillRate
		resetTime = b.lastRefill.Add(time.Duration(secondsUntilFull * float64(time.Second)))
	}
	return remaining, resetTime
}

// Info describes the rate limit decision for one request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter rate-limits clients per endpoint. Each client+endpoint+method
// combination gets its own bucket; idle buckets are evicted periodically.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	access  map[string]time.Time
	config  *Config

	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
}

// NewLimiter creates a limiter. A nil config falls back to defaults.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
			Whitelist:       make(map[string]bool),
			Blacklist:       make(map[string]bool),
		}
	}

	l := &Limiter{
		buckets: make(map[string]*bucket),
		access:  make(map[string]time.Time),
		config:  config,
	}
	if config.Enabled && config.CleanupInterval > 0 {
		l.cleanupTicker = time.NewTicker(config.CleanupInterval)
		l.cleanupStop = make(chan struct{})
		go l.cleanupLoop()
	}
	return l
}

// Allow decides whether a request from clientID against endpoint/method
// may proceed.
func (l *Limiter) Allow(clientID, endpoint, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	ec := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if ec == nil {
		ec = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	}
	if ec.Limit <= 0 {
		// Unlimited endpoint, e.g. health checks.
		return true, Info{Allowed: true}
	}

	key := clientID + ":" + endpoint + ":" + method
	b := l.bucketFor(key, ec)

	l.mu.Lock()
	l.access[key] = time.Now()
	l.mu.Unlock()

	allowed := b.take()
	remaining, resetTime := b.status()

	var retryAfter time.Duration
	if !allowed {
		if retryAfter = time.Until(resetTime); retryAfter < 0 {
			retryAfter = 0
		}
	}
	return allowed, Info{
		Allowed:    allowed,
		Limit:      ec.Limit,
		Remaining:  remaining,
		ResetTime:  resetTime,
		RetryAfter: retryAfter,
	}
}

func (l *Limiter) bucketFor(key string, ec *EndpointConfig) *bucket {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	capacity := ec.Burst
	if capacity <= 0 {
		capacity = ec.Limit
	}
	b = newBucket(capacity, float64(ec.Limit)/ec.Window.Seconds())

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.buckets[key]; ok {
		return existing
	}
	l.buckets[key] = b
	return b
}

func (l *Limiter) cleanupLoop() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.evictIdle()
		case <-l.cleanupStop:
			return
		}
	}
}

// evictIdle drops buckets unused for over an hour.
func (l *Limiter) evictIdle() {
	cutoff := time.Now().Add(-1 * time.Hour)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, last := range l.access {
		if last.Before(cutoff) {
			delete(l.buckets, key)
			delete(l.access, key)
		}
	}
}

// Stop terminates the cleanup goroutine.
func (l *Limiter) Stop() {
	if l.cleanupTicker != nil {
		l.cleanupTicker.Stop()
	}
	if l.cleanupStop != nil {
		close(l.cleanupStop)
	}
}
