package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	apperr "dzemat/internal/pkg/errors"
)

const (
	bucketIdleTTL = 10 * time.Minute
	sweepInterval = time.Minute
)

// RateLimiter is a per-key token bucket refilled once a minute. Idle
// buckets are swept during Allow, so no background goroutine is needed.
type RateLimiter struct {
	store     *sync.Map // map[string]*Bucket
	mu        sync.Mutex
	lastSweep time.Time
	now       func() time.Time
}

type Bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
	mu         sync.Mutex
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{store: &sync.Map{}, lastSweep: time.Now(), now: time.Now}
}

func (rl *RateLimiter) Allow(key string, limit int) bool {
	now := rl.now()
	rl.sweep(now)

	val, _ := rl.store.LoadOrStore(key, &Bucket{
		tokens:     limit,
		lastRefill: now,
		lastAccess: now,
	})

	bucket := val.(*Bucket)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.lastAccess = now

	// Rate is limit / 60 seconds
	refillRate := float64(limit) / 60.0
	refillTokens := int(now.Sub(bucket.lastRefill).Seconds() * refillRate)
	if refillTokens > 0 {
		bucket.tokens += refillTokens
		if bucket.tokens > limit {
			bucket.tokens = limit
		}
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	if now.Sub(rl.lastSweep) < sweepInterval {
		rl.mu.Unlock()
		return
	}
	rl.lastSweep = now
	rl.mu.Unlock()

	rl.store.Range(func(key, value interface{}) bool {
		bucket := value.(*Bucket)
		bucket.mu.Lock()
		if now.Sub(bucket.lastAccess) > bucketIdleTTL {
			rl.store.Delete(key)
		}
		bucket.mu.Unlock()
		return true
	})
}

// RateLimit limits requests per client address for one route family.
func RateLimit(rl *RateLimiter, name string, perMinute int) func(http.HandlerFunc) http.HandlerFunc {
	if perMinute <= 0 {
		perMinute = 20
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(clientIP(r)+":"+name, perMinute) {
				w.Header().Set("Retry-After", "60")
				apperr.WriteError(w, http.StatusTooManyRequests, apperr.ErrCodeRateLimitExceeded, "Too many attempts, try again later", nil)
				return
			}
			next(w, r)
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
