// Package server implements the HTTP mode: live status listings of the configured
// game server, with rate limiting and optional snapshot recording.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/woozymasta/xsstat/internal/config"
	"github.com/woozymasta/xsstat/internal/game"
	"github.com/woozymasta/xsstat/internal/geoip"
	"github.com/woozymasta/xsstat/internal/models"
	"github.com/woozymasta/xsstat/internal/storage"
)

// New creates a new Server for cfg.Target. store and geo may be nil.
func New(store *storage.Repository, geo *geoip.Provider, cfg *config.Config) *Server {
	target := cfg.Target
	query := cfg.Query

	s := &Server{
		storage:        store,
		geoip:          geo,
		target:         target,
		authToken:      cfg.Server.AuthToken,
		workers:        cfg.Server.Workers,
		trustProxy:     cfg.Server.TrustProxy,
		hardLimitCount: cfg.RateLimit.HardLimitCount,
		hardLimitWin:   cfg.RateLimit.HardLimitWin,
		softLimitDur:   cfg.RateLimit.SoftLimitDur,

		queue:    make(chan models.Snapshot, 100),
		shutdown: make(chan struct{}),
	}

	s.fetch = func(ctx context.Context) ([]byte, error) {
		return game.QueryServer(ctx, target.Host, target.Port, query)
	}
	s.country = sync.OnceValue(func() string {
		ctx, cancel := context.WithTimeout(context.Background(), query.Timeout)
		defer cancel()
		return geo.LookupHost(ctx, target.Host)
	})

	return s
}

// StartWorkers starts the snapshot recording workers and the soft limit cache cleanup.
func (s *Server) StartWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	go s.gcSoftLimitCache()
}

// StopWorkers stops background goroutines after the queue is drained.
// Handlers still running afterwards drop their snapshots.
func (s *Server) StopWorkers() {
	s.queueMu.Lock()
	if s.stopped {
		s.queueMu.Unlock()
		return
	}
	s.stopped = true
	close(s.shutdown)
	close(s.queue)
	s.queueMu.Unlock()

	s.wg.Wait()
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/status", s.RateLimitMiddleware(http.HandlerFunc(s.handleStatus)))
	mux.Handle("GET /status", s.RateLimitMiddleware(http.HandlerFunc(s.handleListing)))
	mux.Handle("GET /api/history", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleHistory)))
	mux.Handle("GET /api/version", http.HandlerFunc(handleVersion))
	mux.Handle("GET /{$}", http.RedirectHandler("/status", http.StatusFound))

	return s.LoggingMiddleware(mux)
}

// gcSoftLimitCache periodically drops fingerprints older than the soft limit.
func (s *Server) gcSoftLimitCache() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			now := time.Now()
			s.seenCache.Range(func(key, value any) bool {
				if t, ok := value.(time.Time); !ok || now.Sub(t) > s.softLimitDur {
					s.seenCache.Delete(key)
				}
				return true
			})
		}
	}
}
