package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// =============================================================================
// Generators for property-based testing
// =============================================================================

func clientKeyGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`(tok|ip):[a-z0-9]{8,32}`)
}

func lowRefillConfig(anonBurst, authBurst int) Config {
	return Config{
		AuthenticatedRPS:   0.001,
		AuthenticatedBurst: authBurst,
		AnonymousRPS:       0.001,
		AnonymousBurst:     anonBurst,
		CleanupInterval:    time.Hour,
	}
}

// =============================================================================
// Property: Requests within the burst succeed
// =============================================================================

func testRateLimiter_RequestsWithinLimit(t *rapid.T) {
	config := Config{
		AuthenticatedRPS:   100,
		AuthenticatedBurst: 200,
		AnonymousRPS:       50,
		AnonymousBurst:     100,
		CleanupInterval:    time.Hour,
	}
	rl := NewRateLimiter(config)
	defer rl.Stop()

	key := clientKeyGenerator().Draw(t, "key")
	authenticated := rapid.Bool().Draw(t, "authenticated")
	burst := config.AnonymousBurst
	if authenticated {
		burst = config.AuthenticatedBurst
	}

	n := rapid.IntRange(1, burst/2).Draw(t, "n")
	for i := 0; i < n; i++ {
		if !rl.Allow(key, authenticated) {
			t.Fatalf("request %d of %d should have been allowed (burst %d)", i+1, n, burst)
		}
	}
}

func TestRateLimiter_RequestsWithinLimit(t *testing.T) {
	rapid.Check(t, testRateLimiter_RequestsWithinLimit)
}

// =============================================================================
// Property: Requests beyond the burst are blocked
// =============================================================================

func testRateLimiter_ExceedingLimitBlocked(t *rapid.T) {
	anon := rapid.IntRange(1, 10).Draw(t, "anonBurst")
	auth := rapid.IntRange(1, 20).Draw(t, "authBurst")
	config := lowRefillConfig(anon, auth)
	rl := NewRateLimiter(config)
	defer rl.Stop()

	key := clientKeyGenerator().Draw(t, "key")
	authenticated := rapid.Bool().Draw(t, "authenticated")
	burst := anon
	if authenticated {
		burst = auth
	}

	for i := 0; i < burst; i++ {
		rl.Allow(key, authenticated)
	}
	if rl.Allow(key, authenticated) {
		t.Fatalf("request beyond burst of %d should have been blocked", burst)
	}
}

func TestRateLimiter_ExceedingLimitBlocked(t *testing.T) {
	rapid.Check(t, testRateLimiter_ExceedingLimitBlocked)
}

// =============================================================================
// Property: Different clients have independent limits
// =============================================================================

func testRateLimiter_ClientIndependence(t *rapid.T) {
	config := lowRefillConfig(5, 10)
	rl := NewRateLimiter(config)
	defer rl.Stop()

	key1 := clientKeyGenerator().Draw(t, "key1")
	key2 := clientKeyGenerator().Filter(func(s string) bool { return s != key1 }).Draw(t, "key2")

	for i := 0; i < config.AnonymousBurst; i++ {
		rl.Allow(key1, false)
	}
	if rl.Allow(key1, false) {
		t.Fatal("key1 should be blocked after exhausting burst")
	}
	if !rl.Allow(key2, false) {
		t.Fatal("key2 should still be allowed; limits are per client")
	}
}

func TestRateLimiter_ClientIndependence(t *testing.T) {
	rapid.Check(t, testRateLimiter_ClientIndependence)
}

// =============================================================================
// Property: Idle limiters get cleaned up after CleanupInterval
// =============================================================================

func testRateLimiter_IdleLimiterCleanup(t *rapid.T) {
	cleanupInterval := 10 * time.Millisecond
	config := DefaultConfig
	config.CleanupInterval = cleanupInterval

	rl := NewRateLimiter(config)
	defer rl.Stop()

	numClients := rapid.IntRange(2, 10).Draw(t, "numClients")
	for i := 0; i < numClients; i++ {
		rl.Allow(clientKeyGenerator().Draw(t, "key"), false)
	}
	if rl.Len() == 0 {
		t.Fatal("expected some limiters to be created")
	}

	time.Sleep(cleanupInterval + 5*time.Millisecond)
	rl.Cleanup()

	if got := rl.Len(); got != 0 {
		t.Fatalf("expected all idle limiters to be cleaned up, got %d remaining", got)
	}
}

func TestRateLimiter_IdleLimiterCleanup(t *testing.T) {
	rapid.Check(t, testRateLimiter_IdleLimiterCleanup)
}

// =============================================================================
// Property: Limiter is safe for concurrent use
// =============================================================================

func testRateLimiter_ConcurrentAccess(t *rapid.T) {
	config := Config{
		AuthenticatedRPS:   10000,
		AuthenticatedBurst: 20000,
		AnonymousRPS:       1000,
		AnonymousBurst:     2000,
		CleanupInterval:    time.Hour,
	}
	rl := NewRateLimiter(config)
	defer rl.Stop()

	numClients := rapid.IntRange(5, 20).Draw(t, "numClients")
	numGoroutines := rapid.IntRange(5, 20).Draw(t, "numGoroutines")
	perGoroutine := rapid.IntRange(10, 50).Draw(t, "perGoroutine")

	keys := make([]string, numClients)
	for i := range keys {
		keys[i] = clientKeyGenerator().Draw(t, "key")
	}

	var wg sync.WaitGroup
	var total atomic.Int64
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for r := 0; r < perGoroutine; r++ {
				rl.Allow(keys[(g+r)%numClients], true)
				total.Add(1)
			}
		}(g)
	}
	wg.Wait()

	if got, want := total.Load(), int64(numGoroutines*perGoroutine); got != want {
		t.Fatalf("processed %d requests, want %d", got, want)
	}
	if rl.Len() > numClients {
		t.Fatalf("limiter count %d exceeds client count %d", rl.Len(), numClients)
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rapid.Check(t, testRateLimiter_ConcurrentAccess)
}

// =============================================================================
// Middleware
// =============================================================================

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	if key, auth := ClientKey(r); key != "ip:10.1.2.3" || auth {
		t.Fatalf("anonymous key mismatch: %q %v", key, auth)
	}
	r.Header.Set("X-Auth-Token", "abc")
	if key, auth := ClientKey(r); key != "tok:abc" || !auth {
		t.Fatalf("token key mismatch: %q %v", key, auth)
	}
}

func TestMiddleware_Returns429AfterBurst(t *testing.T) {
	rl := NewRateLimiter(lowRefillConfig(2, 2))
	defer rl.Stop()

	var limited int
	h := Middleware(rl, func(w http.ResponseWriter, r *http.Request) {
		limited++
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
		if i == 2 && rec.Header().Get("Retry-After") != "1" {
			t.Fatalf("missing Retry-After on limited response")
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence: %v", codes)
	}
	if limited != 1 {
		t.Fatalf("onLimited called %d times, want 1", limited)
	}
}
