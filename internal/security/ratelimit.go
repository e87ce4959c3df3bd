// Package security holds the in-process fallback rate limiter the API drops
// to when redis is unavailable.
package security

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterStore hands out one token bucket per client address and drops
// buckets idle past the ttl.
type LimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	ttl      time.Duration
}

type clientLimiter struct {
	bucket  *rate.Limiter
	lastHit time.Time
}

func NewLimiterStore(limit rate.Limit, burst int, ttl time.Duration) *LimiterStore {
	return &LimiterStore{
		limiters: make(map[string]*clientLimiter),
		limit:    limit,
		burst:    burst,
		ttl:      ttl,
	}
}

// Allow consumes one token for ip. Idle buckets are swept inline; the store
// stays small enough that a scan per hit beats a cleanup ticker.
func (s *LimiterStore) Allow(ip string) bool {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range s.limiters {
		if now.Sub(v.lastHit) > s.ttl {
			delete(s.limiters, k)
		}
	}

	cl, ok := s.limiters[ip]
	if !ok {
		cl = &clientLimiter{
			bucket:  rate.NewLimiter(s.limit, s.burst),
			lastHit: now,
		}
		s.limiters[ip] = cl
	}

	cl.lastHit = now
	return cl.bucket.Allow()
}

// ClientIPFromRequest returns the socket peer address. The fallback limiter
// keys on this rather than forwarded headers: every distinct key allocates a
// bucket, and headers are spoofable.
func ClientIPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
