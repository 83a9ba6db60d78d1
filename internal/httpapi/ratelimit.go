package httpapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/AdguardTeam/golibs/netutil"
)

type RateLimitConfig struct {
	PerMinute int
	Burst     int

	// TrustedProxies are the peers allowed to name the client in
	// X-Forwarded-For.  Nil trusts no one.
	TrustedProxies netutil.SubnetSet
}

// RateLimiter is a per-client-IP token bucket applied to state-changing
// requests.  Reads are not limited.
type RateLimiter struct {
	limiter *tokenLimiter
	proxies netutil.SubnetSet
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiter: newTokenLimiter(cfg.PerMinute, cfg.Burst),
		proxies: cfg.TrustedProxies,
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r, l.proxies)
		if ip != "" && !l.limiter.allow(ip) {
			w.Header().Set(httphdr.RetryAfter, strconv.Itoa(l.limiter.retryAfterSeconds()))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type tokenLimiter struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	bucket map[string]*bucket
	now    func() time.Time

	lastEvict time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newTokenLimiter(perMinute, burst int) *tokenLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 20
	}
	return &tokenLimiter{
		rate:   float64(perMinute) / 60.0,
		burst:  float64(burst),
		bucket: make(map[string]*bucket),
		now:    time.Now,
	}
}

func (l *tokenLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	b, ok := l.bucket[key]
	if !ok {
		l.bucket[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}
	elapsed := now.Sub(b.last).Seconds()
	b.tokens = min(l.burst, b.tokens+elapsed*l.rate)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// evict drops buckets that have refilled completely, so that the map does
// not grow with every client ever seen.
func (l *tokenLimiter) evict(now time.Time) {
	if now.Sub(l.lastEvict) < time.Minute {
		return
	}
	l.lastEvict = now

	full := time.Duration(l.burst / l.rate * float64(time.Second))
	for key, b := range l.bucket {
		if now.Sub(b.last) > full {
			delete(l.bucket, key)
		}
	}
}

func (l *tokenLimiter) retryAfterSeconds() int {
	return max(1, int(1/l.rate+0.5))
}
