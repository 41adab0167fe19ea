package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"nflpickem/ingestion/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RequestLogger logs each request with zerolog and counts it by route and status.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.RecordHTTPRequest(route, strconv.Itoa(status))

			evt := log.Info()
			if status >= http.StatusInternalServerError {
				evt = log.Warn()
			}
			evt.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("route", route).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// RequireSecret rejects requests whose header does not match secret.
// An empty secret rejects everything.
func RequireSecret(header, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --------------------------------------------------------------------------
// Rate limiting middleware (IP-based token bucket)
// --------------------------------------------------------------------------

type ipLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(requestsPerWindow int, window time.Duration) *ipLimiter {
	burst := requestsPerWindow / 2
	if burst < 1 {
		burst = 1
	}
	return &ipLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(float64(requestsPerWindow) / window.Seconds()),
		burst:    burst,
		idle:     window,
		now:      time.Now,
	}
}

// getLimiter returns the bucket for ip. A bucket idle for a full window has
// refilled, so it is dropped and recreated on demand.
func (l *ipLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		for key, entry := range l.limiters {
			if now.Sub(entry.lastSeen) >= l.idle {
				delete(l.limiters, key)
			}
		}
		l.lastSweep = now
	}

	if entry, exists := l.limiters[ip]; exists {
		entry.lastSeen = now
		return entry.limiter
	}
	limiter := rate.NewLimiter(l.rate, l.burst)
	l.limiters[ip] = &limiterEntry{limiter: limiter, lastSeen: now}
	return limiter
}

// RateLimitMiddleware returns middleware that rate-limits by client IP.
func RateLimitMiddleware(requestsPerWindow int, window time.Duration) func(http.Handler) http.Handler {
	limiter := newIPLimiter(requestsPerWindow, window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, _ := net.SplitHostPort(r.RemoteAddr)
			if ip == "" {
				ip = r.RemoteAddr
			}

			if !limiter.getLimiter(ip).Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
