package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrymomot/krustie/core/handler"
)

// RateLimitConfig configures the rate limiting middleware.
// Each key owns a token bucket holding up to Requests tokens that refills
// completely over Window.
type RateLimitConfig struct {
	// Requests is the bucket capacity per key (default: 100)
	Requests int `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	// Window is the time needed to refill an empty bucket (default: 1m)
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	// IdleTimeout evicts buckets of keys not seen for this long (default: 10m)
	IdleTimeout time.Duration `env:"RATE_LIMIT_IDLE_TIMEOUT" envDefault:"10m"`
	// SetHeaders determines whether to include rate limit information in response headers
	SetHeaders bool `env:"RATE_LIMIT_HEADERS" envDefault:"true"`

	// Skip defines a function to skip middleware execution for specific requests
	Skip func(req *handler.Request) bool
	// KeyExtractor defines how to extract the rate limiting key (default: client IP)
	KeyExtractor func(req *handler.Request, res *handler.Response) string
	// ErrorHandler renders the rejection (default: 429 Too Many Requests)
	ErrorHandler func(req *handler.Request, res *handler.Response, retryAfter time.Duration)
	// Clock returns the current time (default: time.Now)
	Clock func() time.Time
}

// RateLimiter is a per-key token bucket middleware. It is safe for concurrent use.
type RateLimiter struct {
	cfg   RateLimitConfig
	limit rate.Limit

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit creates a rate limiting middleware keyed by client IP.
// When a key runs out of tokens the request is answered with 429 and the
// pipeline ends.
//
// Usage:
//
//	var cfg middleware.RateLimitConfig
//	config.MustLoad(&cfg)
//	r.Use(middleware.RateLimit(cfg))
func RateLimit(cfg RateLimitConfig) *RateLimiter {
	if cfg.Requests <= 0 {
		cfg.Requests = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 10 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.KeyExtractor == nil {
		cfg.KeyExtractor = func(req *handler.Request, res *handler.Response) string {
			if ip, ok := GetClientIP(res); ok {
				return ip
			}
			return req.PeerIP()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(req *handler.Request, res *handler.Response, retryAfter time.Duration) {
			res.Status(http.StatusTooManyRequests).Text(http.StatusText(http.StatusTooManyRequests))
		}
	}

	return &RateLimiter{
		cfg:       cfg,
		limit:     rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		visitors:  make(map[string]*visitor),
		lastSweep: cfg.Clock(),
	}
}

// Process implements handler.Middleware.
func (l *RateLimiter) Process(req *handler.Request, res *handler.Response) handler.Result {
	if l.cfg.Skip != nil && l.cfg.Skip(req) {
		return handler.Next
	}

	now := l.cfg.Clock()
	key := l.cfg.KeyExtractor(req, res)

	allowed, tokens := l.take(key, now)

	if l.cfg.SetHeaders {
		l.setHeaders(res, now, tokens)
	}

	if allowed {
		return handler.Next
	}

	retryAfter := l.until(1, tokens)
	res.SetHeader("Retry-After", strconv.Itoa(max(1, int(math.Ceil(retryAfter.Seconds())))))
	l.cfg.ErrorHandler(req, res, retryAfter)
	return handler.End
}

// Len returns the number of tracked keys.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// take consumes one token for key and returns the tokens left afterwards.
func (l *RateLimiter) take(key string, now time.Time) (bool, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.cfg.IdleTimeout {
		l.sweep(now)
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.cfg.Requests)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	return allowed, v.limiter.TokensAt(now)
}

// sweep drops idle buckets. Callers hold l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.cfg.IdleTimeout {
			delete(l.visitors, key)
		}
	}
	l.lastSweep = now
}

// until returns how long it takes to accumulate n tokens starting from tokens.
func (l *RateLimiter) until(n, tokens float64) time.Duration {
	missing := n - tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / float64(l.limit) * float64(time.Second))
}

// setHeaders adds the X-RateLimit-* headers.
// X-RateLimit-Reset is the unix time at which the bucket is full again.
func (l *RateLimiter) setHeaders(res *handler.Response, now time.Time, tokens float64) {
	remaining := max(0, int(math.Floor(tokens)))
	reset := now.Add(l.until(float64(l.cfg.Requests), tokens))

	res.SetHeader("X-RateLimit-Limit", strconv.Itoa(l.cfg.Requests))
	res.SetHeader("X-RateLimit-Remaining", strconv.Itoa(remaining))
	resetUnix := reset.Unix()
	if reset.Nanosecond() > 0 {
		resetUnix++
	}
	res.SetHeader("X-RateLimit-Reset", strconv.FormatInt(resetUnix, 10))
}
