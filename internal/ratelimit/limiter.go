// Package ratelimit provides per-client token bucket limiting for the fake
// notes server, where each client is identified by its session token or, for
// anonymous calls, its remote address.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the rate limiting configuration.
type Config struct {
	AuthenticatedRPS   float64       // Requests per second for callers with a session token
	AuthenticatedBurst int           // Burst size for callers with a session token
	AnonymousRPS       float64       // Requests per second keyed by remote address
	AnonymousBurst     int           // Burst size keyed by remote address
	CleanupInterval    time.Duration // How often to clean up idle limiters
}

// DefaultConfig is generous enough for a full catalog run against one server.
var DefaultConfig = Config{
	AuthenticatedRPS:   50,
	AuthenticatedBurst: 100,
	AnonymousRPS:       20,
	AnonymousBurst:     40,
	CleanupInterval:    10 * time.Minute,
}

type limiterEntry struct {
	limiter       *rate.Limiter
	lastUsed      time.Time
	authenticated bool
}

// RateLimiter manages per-client rate limiting.
type RateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	config   Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRateLimiter creates a new rate limiter with the given configuration.
// It starts a background goroutine for cleanup; call Stop to release it.
func NewRateLimiter(config Config) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		config:   config,
		stopCh:   make(chan struct{}),
	}

	rl.wg.Add(1)
	go rl.cleanupLoop()

	return rl
}

// Allow checks if a request from the given client is allowed.
func (rl *RateLimiter) Allow(clientKey string, authenticated bool) bool {
	return rl.GetLimiter(clientKey, authenticated).Allow()
}

// GetLimiter returns the limiter for the given client, creating one if
// necessary. A client that switches between anonymous and authenticated
// gets a fresh limiter with the matching limits.
func (rl *RateLimiter) GetLimiter(clientKey string, authenticated bool) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[clientKey]
	if exists && entry.authenticated == authenticated {
		entry.lastUsed = time.Now()
		return entry.limiter
	}

	rps, burst := rl.config.AnonymousRPS, rl.config.AnonymousBurst
	if authenticated {
		rps, burst = rl.config.AuthenticatedRPS, rl.config.AuthenticatedBurst
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	rl.limiters[clientKey] = &limiterEntry{
		limiter:       limiter,
		lastUsed:      time.Now(),
		authenticated: authenticated,
	}
	return limiter
}

// Cleanup removes limiters that have been idle for longer than the cleanup interval.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.config.CleanupInterval)
	for key, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) cleanupLoop() {
	defer rl.wg.Done()

	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine and waits for it to finish.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
	rl.wg.Wait()
}

// Len returns the number of active limiters.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
