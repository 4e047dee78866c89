package security

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterStore hands out one token bucket per client key (normally the
// client IP). Entries that have not been hit for ttl are dropped so the
// map cannot grow without bound.
type LimiterStore struct {
	mu          sync.Mutex
	limiters    map[string]*clientLimiter
	limit       rate.Limit
	burst       int
	ttl         time.Duration
	lastCleanup time.Time
}

type clientLimiter struct {
	lim     *rate.Limiter
	lastHit time.Time
}

func NewLimiterStore(limit rate.Limit, burst int, ttl time.Duration) *LimiterStore {
	return &LimiterStore{
		limiters:    make(map[string]*clientLimiter),
		limit:       limit,
		burst:       burst,
		ttl:         ttl,
		lastCleanup: time.Now(),
	}
}

func (s *LimiterStore) Allow(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// amortized cleanup: scan at most once per ttl
	if now.Sub(s.lastCleanup) > s.ttl {
		for k, v := range s.limiters {
			if now.Sub(v.lastHit) > s.ttl {
				delete(s.limiters, k)
			}
		}
		s.lastCleanup = now
	}

	cl, ok := s.limiters[key]
	if !ok {
		cl = &clientLimiter{
			lim: rate.NewLimiter(s.limit, s.burst),
		}
		s.limiters[key] = cl
	}

	cl.lastHit = now
	return cl.lim.Allow()
}

func ClientIPFromRequest(r *http.Request) string {
	// prefer RemoteAddr to avoid trusting spoofable headers by default
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
