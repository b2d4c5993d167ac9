// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/metrics"
	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key (client IP, email).
// It is safe for concurrent use.
type Limiter struct {
	name  string
	every rate.Limit
	burst int
	idle  time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	lastGC  time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// New creates a limiter that allows perWindow events per window for each key,
// with the whole allowance available as a burst.
func New(name string, perWindow int, window time.Duration) *Limiter {
	if perWindow < 1 {
		perWindow = 1
	}
	return &Limiter{
		name:    name,
		every:   rate.Every(window / time.Duration(perWindow)),
		burst:   perWindow,
		idle:    2 * window,
		buckets: make(map[string]*bucket),
		lastGC:  time.Now(),
	}
}

// Allow reports whether an event for key may happen now.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	l.gcLocked(now)
	l.mu.Unlock()

	if !b.lim.AllowN(now, 1) {
		metrics.RateLimitRejected.WithLabelValues(l.name).Inc()
		return false
	}
	return true
}

// Reset forgets key, restoring its full allowance.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

// gcLocked drops buckets idle long enough to have refilled.
func (l *Limiter) gcLocked(now time.Time) {
	if now.Sub(l.lastGC) < l.idle {
		return
	}
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.idle {
			delete(l.buckets, k)
		}
	}
	l.lastGC = now
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter throttles login attempts per client IP and per account.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows ipPerMinute attempts per IP per minute and
// five attempts per email every five minutes.
func NewLoginLimiter(ipPerMinute int) *LoginLimiter {
	if ipPerMinute < 1 {
		ipPerMinute = 10
	}
	return &LoginLimiter{
		ip:    New("login_ip", ipPerMinute, time.Minute),
		email: New("login_email", 5, 5*time.Minute),
	}
}

// Check reports whether a login attempt should proceed, and if not, why.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, "too many login attempts, wait a minute before trying again"
	}
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		if !ll.email.Allow(key) {
			return false, "too many login attempts for this account, wait a few minutes"
		}
	}
	return true, ""
}

// ResetEmail clears the per-account allowance after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		ll.email.Reset(key)
	}
}
