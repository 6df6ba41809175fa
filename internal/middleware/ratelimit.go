// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SherPsu/cms-blog/internal/metrics"
)

// RateLimiter throttles login and registration attempts. Each client IP
// gets a sliding window of attempts per path, so failed logins do not use
// up the registration budget.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	attempts map[string][]time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows limit attempts per client and path within window.
// A background sweep drops idle clients until Stop is called.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		attempts: make(map[string][]time.Time),
		stop:     make(chan struct{}),
	}
	go rl.sweep(5 * time.Minute)
	return rl
}

// Stop ends the background sweep. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.prune()
		case <-rl.stop:
			return
		}
	}
}

// recent returns the attempts in ts that are still inside the window.
func (rl *RateLimiter) recent(ts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

// allow records an attempt for key and reports whether it is within the
// limit. Rejected attempts are not recorded. When rejected, retry is how
// long until the oldest attempt leaves the window.
func (rl *RateLimiter) allow(key string) (ok bool, retry time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	ts := rl.recent(rl.attempts[key], now)
	if len(ts) >= rl.limit {
		rl.attempts[key] = ts
		return false, ts[0].Add(rl.window).Sub(now)
	}
	rl.attempts[key] = append(ts, now)
	return true, 0
}

func (rl *RateLimiter) prune() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, ts := range rl.attempts {
		if ts = rl.recent(ts, now); len(ts) == 0 {
			delete(rl.attempts, key)
		} else {
			rl.attempts[key] = ts
		}
	}
}

// Middleware limits state-changing requests. Reads pass through so the
// login page can always be shown.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		ok, retry := rl.allow(clientIP(r) + " " + r.URL.Path)
		if !ok {
			secs := int(retry.Round(time.Second).Seconds())
			if secs < 1 {
				secs = 1
			}
			metrics.RateLimited.WithLabelValues(r.URL.Path).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, r, http.StatusTooManyRequests, "Too many attempts, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the caller's address. Proxy headers are trusted: the
// leftmost X-Forwarded-For entry wins, then X-Real-IP, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
