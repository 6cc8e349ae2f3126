package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/utils"
)

// RateLimitConfig configures a per-client-IP token bucket.
type RateLimitConfig struct {
	Burst             int // bucket capacity
	RefillPerIPPerMin int
	MaxEntries        int // sweep idle buckets early once this many exist, 0 = unbounded
	SweepInterval     time.Duration
	IdleTTL           time.Duration
	TrustProxy        bool     // resolve IP from proxy headers when true
	Exempt            []string // IPs/CIDRs that are never limited

	now func() time.Time
}

type bucket struct {
	mu       sync.Mutex
	tokens   float64
	lastRef  time.Time
	lastSeen time.Time
}

type limiter struct {
	cfg      RateLimitConfig
	exempt   *utils.IPMatcher
	rate     float64 // tokens per second
	capacity float64

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	cfg.Burst = max(cfg.Burst, 1)
	cfg.RefillPerIPPerMin = max(cfg.RefillPerIPPerMin, 1)
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &limiter{
		cfg:       cfg,
		exempt:    utils.NewIPMatcher(cfg.Exempt),
		rate:      float64(cfg.RefillPerIPPerMin) / 60.0,
		capacity:  float64(cfg.Burst),
		buckets:   make(map[string]*bucket, 256),
		lastSweep: cfg.now(),
	}
}

func (l *limiter) bucketFor(key string, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.cfg.SweepInterval ||
		(l.cfg.MaxEntries > 0 && len(l.buckets) >= l.cfg.MaxEntries) {
		l.sweepLocked(now)
	}
	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: l.capacity, lastRef: now, lastSeen: now}
		l.buckets[key] = b
	}
	return b
}

// allow takes one token for key. On refusal it reports how many seconds until one is available.
func (l *limiter) allow(key string, now time.Time) (ok bool, remaining int, retryAfter int) {
	b := l.bucketFor(key, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.lastRef).Seconds(); elapsed > 0 {
		b.tokens = min(l.capacity, b.tokens+elapsed*l.rate)
		b.lastRef = now
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, int(b.tokens), 0
	}
	return false, 0, max(1, int(math.Ceil((1-b.tokens)/l.rate)))
}

func (l *limiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.cfg.IdleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit rejects requests with 429 once a client IP has drained its bucket.
// Exempt clients pass through without touching a bucket.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return rateLimit(newLimiter(cfg))
}

func rateLimit(l *limiter) func(http.Handler) http.Handler {
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := utils.ClientIP(r, l.cfg.TrustProxy)
			if !l.exempt.IsEmpty() && l.exempt.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}
			ok, remaining, retry := l.allow(key, l.cfg.now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			if !ok {
				h.Set("Retry-After", strconv.Itoa(retry))
				h.Set("X-RateLimit-Remaining", "0")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}
