package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/chatadmin/admin-console/internal/audit"
)

const (
	// Standard API: 60 requests/minute per IP
	rateLimitStandardPerMin = 60
	rateLimitStandardBurst  = 60
	// GET requests: 120 requests/minute per IP
	rateLimitGetPerMin = 120
	rateLimitGetBurst  = 120
	// Command execution and restarts: 10 requests/minute per IP
	rateLimitStrictPerMin = 10
	rateLimitStrictBurst  = 10
)

type rateLimitTier int

const (
	tierStrict rateLimitTier = iota
	tierGet
	tierStandard
)

func (t rateLimitTier) perMinute() int {
	switch t {
	case tierStrict:
		return rateLimitStrictPerMin
	case tierGet:
		return rateLimitGetPerMin
	default:
		return rateLimitStandardPerMin
	}
}

func (t rateLimitTier) burst() int {
	switch t {
	case tierStrict:
		return rateLimitStrictBurst
	case tierGet:
		return rateLimitGetBurst
	default:
		return rateLimitStandardBurst
	}
}

func tierForRequest(r *http.Request) rateLimitTier {
	path := strings.ToLower(strings.TrimSuffix(r.URL.Path, "/"))
	if strings.HasSuffix(path, "/kubectl/execute") || strings.HasSuffix(path, "/restart") {
		return tierStrict
	}
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return tierGet
	}
	return tierStandard
}

type limiterKey struct {
	ip   string
	tier rateLimitTier
}

// RateLimiter holds per-IP token buckets per tier.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[limiterKey]*rate.Limiter
	now      func() time.Time
}

// NewRateLimiter returns an empty limiter set.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[limiterKey]*rate.Limiter), now: time.Now}
}

func (l *RateLimiter) limiter(ip string, t rateLimitTier) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := limiterKey{ip, t}
	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(float64(t.perMinute())/60.0), t.burst())
	l.limiters[key] = lim
	return lim
}

func isExempt(path string) bool {
	return path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/healthz/")
}

// Middleware limits requests per client IP: 120/min for reads, 60/min for
// writes, 10/min for command execution and deployment restarts.
// Health and metrics endpoints are exempt. Rejections get 429 with Retry-After.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		tier := tierForRequest(r)
		limiter := l.limiter(audit.ClientIP(r), tier)
		now := l.now()
		reservation := limiter.ReserveN(now, 1)
		limitHeader := strconv.Itoa(tier.perMinute())

		if delay := reservation.DelayFrom(now); !reservation.OK() || delay > 0 {
			reservation.CancelAt(now)
			retryAfter := int(delay.Seconds()) + 1
			if !reservation.OK() || retryAfter > 60 {
				retryAfter = 60
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", limitHeader)
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many requests. Please retry later."}`))
			return
		}

		remaining := int(limiter.TokensAt(now))
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", limitHeader)
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}
