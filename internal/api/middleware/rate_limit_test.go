package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_ExhaustsAndRefills(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4:login", 3) {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4:login", 3) {
		t.Fatal("Expected fourth request to be limited")
	}
	if !rl.Allow("5.6.7.8:login", 3) {
		t.Error("Expected other clients to have their own bucket")
	}

	now = now.Add(20 * time.Second)
	if !rl.Allow("1.2.3.4:login", 3) {
		t.Error("Expected one token after 20 seconds")
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	rl.Allow("idle", 5)
	now = now.Add(bucketIdleTTL + time.Minute)
	rl.Allow("fresh", 5)

	if _, ok := rl.store.Load("idle"); ok {
		t.Error("Expected idle bucket to be swept")
	}
	if _, ok := rl.store.Load("fresh"); !ok {
		t.Error("Expected fresh bucket to remain")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewRateLimiter()
	handler := RateLimit(rl, "login", 1)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := NewRateLimiter()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("shared", 10) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 10 {
		t.Errorf("Expected exactly 10 allowed, got %d", allowed)
	}
}
