// Package ratelimit throttles state-changing requests per client IP with a
// fixed one-minute window.
package ratelimit

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// Methods lists the HTTP methods that count against the limit.
	Methods []string
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost},
	}
}

// Limiter tracks request counts per client.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	limit   int
	methods map[string]bool
	hits    atomic.Int64
	now     func() time.Time

	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientWindow struct {
	start    time.Time
	requests int
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// NewLimiter starts a limiter and its background cleanup. Call Stop to end it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if len(config.Methods) == 0 {
		config.Methods = def.Methods
	}

	rl := &Limiter{
		clients:     make(map[string]*clientWindow),
		limit:       config.RequestsPerMinute,
		methods:     make(map[string]bool, len(config.Methods)),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	for _, m := range config.Methods {
		rl.methods[m] = true
	}
	go rl.startCleanup(config.CleanupInterval)
	return rl
}

// Allow counts a request from clientIP and reports whether it is within the limit.
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[clientIP]
	if !ok || now.Sub(c.start) >= window {
		rl.clients[clientIP] = &clientWindow{start: now, requests: 1}
		return true
	}
	c.requests++
	if c.requests > rl.limit {
		rl.hits.Add(1)
		return false
	}
	return true
}

// Middleware rejects over-limit requests with 429. Methods outside the
// configured set pass through uncounted.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.methods[r.Method] && !rl.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *Limiter) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries drops clients whose window closed long ago.
func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-10 * window)
	n := 0
	for ip, c := range rl.clients {
		if c.start.Before(cutoff) {
			delete(rl.clients, ip)
			n++
		}
	}
	return n
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.hits.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() { close(rl.stopCleanup) })
}
