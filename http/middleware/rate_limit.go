package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// APIKeyHeader identifies a client for rate limiting. Requests without it
// are keyed by remote IP.
const APIKeyHeader = "X-API-Key"

// sweepThreshold 超过该数量的窗口后，写入时顺带清理过期窗口
const sweepThreshold = 1024

// Backend 限流计数后端
type Backend interface {
	// Increment counts one request for key in the current window and
	// returns the count so far and when the window resets.
	Increment(key string, window time.Duration) (count int, reset time.Time, err error)
}

type counter struct {
	count int
	reset time.Time
}

// MemoryBackend 进程内固定窗口计数
type MemoryBackend struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

// NewMemoryBackend 创建进程内限流后端
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// Increment 增加计数
func (b *MemoryBackend) Increment(key string, window time.Duration) (int, time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	c, ok := b.counters[key]
	if !ok || !now.Before(c.reset) {
		if len(b.counters) >= sweepThreshold {
			b.sweep(now)
		}
		c = &counter{reset: now.Add(window)}
		b.counters[key] = c
	}
	c.count++
	return c.count, c.reset, nil
}

func (b *MemoryBackend) sweep(now time.Time) {
	for k, c := range b.counters {
		if !now.Before(c.reset) {
			delete(b.counters, k)
		}
	}
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Rate is the number of requests allowed per Window. Zero disables the limiter.
	Rate   int
	Window time.Duration
	// OnLimited writes the rejection. Headers are already set.
	OnLimited http.HandlerFunc
}

// RateLimitMiddleware rejects a client's requests once it exceeds
// cfg.Rate within the current window. A backend error also rejects.
func RateLimitMiddleware(backend Backend, cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.OnLimited == nil {
		cfg.OnLimited = writeLimited
	}
	return func(next http.Handler) http.Handler {
		if cfg.Rate <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count, reset, err := backend.Increment("rate:"+ClientKey(r), cfg.Window)
			remaining := max(cfg.Rate-count, 0)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Rate))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if err != nil || count > cfg.Rate {
				retry := max(int(time.Until(reset).Seconds()+0.5), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				cfg.OnLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey returns the API key header, or the remote IP without port.
func ClientKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return "key:" + key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func writeLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":"rate limit exceeded"}}`, http.StatusTooManyRequests)
}
