package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterIdleAfter  = 10 * time.Minute
)

// GetRealIP returns the client address. With trustProxy set the first valid
// address from CF-Connecting-IP or X-Forwarded-For wins over RemoteAddr.
func GetRealIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("CF-Connecting-IP"))); ip != nil {
			return ip.String()
		}

		first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// clientLimiters keeps one token bucket per client address.
type clientLimiters struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(count int, window time.Duration) *clientLimiters {
	return &clientLimiters{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(float64(count) / window.Seconds()),
		burst:   count,
	}
}

func (l *clientLimiters) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	cli, ok := l.clients[ip]
	if !ok {
		cli = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = cli
	}
	cli.lastSeen = now

	return cli.limiter
}

// sweep forgets clients idle for longer than maxIdle and returns how many were dropped.
func (l *clientLimiters) sweep(now time.Time, maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for ip, cli := range l.clients {
		if now.Sub(cli.lastSeen) > maxIdle {
			delete(l.clients, ip)
			dropped++
		}
	}

	return dropped
}

// retryAfter is the whole number of seconds until one token is available again.
func (l *clientLimiters) retryAfter() string {
	if l.limit <= 0 {
		return "60"
	}

	return strconv.Itoa(int(math.Ceil(1 / float64(l.limit))))
}

// RateLimitMiddleware caps live queries per client, since every request
// sends a datagram to the game server. Over the limit it answers 429.
func (s *Server) RateLimitMiddleware(next http.Handler) http.Handler {
	limiters := newClientLimiters(s.hardLimitCount, s.hardLimitWin)

	go func() {
		ticker := time.NewTicker(limiterSweepEvery)
		defer ticker.Stop()

		for {
			select {
			case <-s.shutdown:
				return
			case now := <-ticker.C:
				if n := limiters.sweep(now, limiterIdleAfter); n > 0 {
					log.Trace().Int("clients", n).Msg("Idle rate limit clients dropped")
				}
			}
		}
	}()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetRealIP(r, s.trustProxy)

		if !limiters.get(ip, time.Now()).Allow() {
			log.Debug().Str("ip", ip).Str("path", r.URL.Path).Msg("Rate limit hit")
			w.Header().Set("Retry-After", limiters.retryAfter())
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware writes one debug line per request with its status and duration.
func (s *Server) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("ip", GetRealIP(r, s.trustProxy)).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// AdminAuthMiddleware requires "Authorization: Bearer <token>".
// An empty token hides the wrapped endpoint behind 404.
func AdminAuthMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			http.NotFound(w, r)
			return
		}

		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
