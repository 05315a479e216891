// Package ratelimit provides the request-shaping middleware for the API:
// per-client token buckets, a concurrency cap and an IP whitelist that
// bypasses both.
package ratelimit

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// pruneAfter is how long an idle client's bucket survives before the
// janitor drops it
const pruneAfter = time.Hour

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out a token bucket per client IP and prunes idle ones
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	logger  zerolog.Logger
}

// NewRateLimiter creates a rate limiter and starts its janitor
func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientBucket),
		logger:  zerolog.New(os.Stdout).With().Timestamp().Str("component", "ratelimit").Logger(),
	}
	go rl.janitor()
	return rl
}

// Middleware returns a gin handler enforcing rps/burst per client IP. A
// rejected request gets a 429 with Retry-After.
func (rl *RateLimiter) Middleware(rps int, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		bucket := rl.bucketFor(ip, rps, burst)

		if !bucket.Allow() {
			rl.logger.Warn().Str("ip", ip).Str("path", c.Request.URL.Path).Msg("Rate limit exceeded")
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rps))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(bucket.Tokens())))
		c.Next()
	}
}

func (rl *RateLimiter) bucketFor(ip string, rps int, burst int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		rl.clients[ip] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(pruneAfter)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		for ip, b := range rl.clients {
			if time.Since(b.lastSeen) > pruneAfter {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Throttler caps the number of requests handled concurrently. Requests
// beyond the cap are rejected immediately rather than queued, so slow
// WebDAV transfers cannot pile up behind each other.
type Throttler struct {
	slots  chan struct{}
	logger zerolog.Logger
}

// NewThrottler creates a throttler with the given concurrency cap
func NewThrottler(maxConcurrent int) *Throttler {
	return &Throttler{
		slots:  make(chan struct{}, maxConcurrent),
		logger: zerolog.New(os.Stdout).With().Timestamp().Str("component", "ratelimit").Logger(),
	}
}

// Middleware returns a gin handler that holds a slot for the request's
// duration
func (t *Throttler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		select {
		case t.slots <- struct{}{}:
			defer func() { <-t.slots }()
			c.Next()
		default:
			t.logger.Warn().Str("path", c.Request.URL.Path).Msg("Concurrency cap reached")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Server overloaded, please try again later",
			})
			c.Abort()
		}
	}
}

// IPWhitelist holds the set of client IPs that bypass shaping entirely
type IPWhitelist struct {
	mu  sync.RWMutex
	ips map[string]struct{}
}

func NewIPWhitelist() *IPWhitelist {
	return &IPWhitelist{ips: make(map[string]struct{})}
}

func (w *IPWhitelist) Add(ip string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ips[ip] = struct{}{}
}

func (w *IPWhitelist) Remove(ip string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.ips, ip)
}

func (w *IPWhitelist) Contains(ip string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.ips[ip]
	return ok
}

// Config holds the shaping settings taken from the service configuration
type Config struct {
	Enabled           bool
	RequestsPerSecond int
	Burst             int
	MaxConcurrent     int
	WhitelistedIPs    []string
}

// Manager chains whitelist, throttling and rate limiting into a single
// middleware for the API group
type Manager struct {
	config    *Config
	whitelist *IPWhitelist
	chain     gin.HandlerFunc
}

// NewManager builds the middleware chain once so per-request work is just
// the whitelist check and the two shaping steps
func NewManager(config *Config) *Manager {
	m := &Manager{
		config:    config,
		whitelist: NewIPWhitelist(),
	}
	if !config.Enabled {
		return m
	}

	for _, ip := range config.WhitelistedIPs {
		m.whitelist.Add(ip)
	}

	throttle := NewThrottler(config.MaxConcurrent).Middleware()
	limit := NewRateLimiter().Middleware(config.RequestsPerSecond, config.Burst)

	m.chain = func(c *gin.Context) {
		if m.whitelist.Contains(c.ClientIP()) {
			c.Next()
			return
		}
		throttle(c)
		if c.IsAborted() {
			return
		}
		limit(c)
	}
	return m
}

// Middleware returns the combined shaping middleware, or a no-op when
// shaping is disabled
func (m *Manager) Middleware() gin.HandlerFunc {
	if m.chain == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return m.chain
}
