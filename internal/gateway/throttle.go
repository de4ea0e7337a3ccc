package gateway

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle is a per-client token bucket applied to every request. It
// keeps abusive clients off the server as a whole; the askai budget is
// enforced separately per session.
type Throttle struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	trustForwarded bool

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewThrottle keys clients by ClientIP; trustForwarded is passed through.
func NewThrottle(rps float64, burst int, trustForwarded bool) *Throttle {
	return &Throttle{
		rps:            rate.Limit(rps),
		burst:          burst,
		now:            time.Now,
		trustForwarded: trustForwarded,
		visitors:       make(map[string]*visitor),
	}
}

func (t *Throttle) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Prune forgets clients idle for longer than idle and returns how many
// were dropped.
func (t *Throttle) Prune(idle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-idle)
	n := 0
	for ip, v := range t.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(t.visitors, ip)
			n++
		}
	}
	return n
}

// Middleware rejects over-limit clients with 429. onLimited may be nil.
func (t *Throttle) Middleware(skipPaths map[string]struct{}, onLimited func()) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skipPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if !t.allow(ClientIP(r, t.trustForwarded)) {
				if onLimited != nil {
					onLimited()
				}
				w.Header().Set("Retry-After", "1")
				WriteError(w, http.StatusTooManyRequests, "throttled", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP from a request. X-Forwarded-For and
// X-Real-IP are honored only when trustForwarded is set, since any client
// can send them.
func ClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if ip := forwardedIP(r); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func forwardedIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}
