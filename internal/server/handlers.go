package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/xsstat/internal/game"
	"github.com/woozymasta/xsstat/internal/models"
	"github.com/woozymasta/xsstat/internal/render"
	"github.com/woozymasta/xsstat/internal/status"
	"github.com/woozymasta/xsstat/internal/vars"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// handleStatus performs a live query and returns the decoded listing as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	info, players, err := s.query(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	doc, err := render.NewDocument(info, players)
	if err != nil {
		respondError(w, err)
		return
	}
	doc.Country = s.country()

	s.enqueue(info, players, doc.Country)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

// handleListing performs a live query and returns the fixed width text listing.
func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	info, players, err := s.query(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	lines, err := render.Lines(info, players)
	if err != nil {
		respondError(w, err)
		return
	}

	s.enqueue(info, players, s.country())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(strings.Join(lines, "\n") + "\n"))
}

// handleHistory returns recorded snapshots of the target, newest first.
// Query params: ?limit=20
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		http.Error(w, "History disabled", http.StatusNotFound)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	snapshots, err := s.storage.ListSnapshots(s.target.Address(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch snapshots")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	if snapshots == nil {
		snapshots = []models.Snapshot{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshots)
}

// handleVersion returns build information.
func handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(vars.Info())
}

// query runs one getstatus exchange and decodes the reply.
func (s *Server) query(ctx context.Context) (*status.ServerInfo, []status.Player, error) {
	payload, err := s.fetch(ctx)
	if err != nil {
		log.Debug().Err(err).Str("address", s.target.Address()).Msg("Status query failed")
		return nil, nil, err
	}

	info, players, err := status.Decode(payload)
	if err != nil {
		log.Error().Err(err).Str("address", s.target.Address()).Msg("Failed to decode status response")
		return nil, nil, err
	}

	return info, players, nil
}

// enqueue hands a snapshot to the recording workers unless history is disabled
// or the same response was queued within the soft limit.
func (s *Server) enqueue(info *status.ServerInfo, players []status.Player, country string) {
	if s.storage == nil {
		return
	}

	snap := models.NewSnapshot(s.target.Address(), info, players, render.Leader(info.GameType(), players), time.Now())
	snap.CountryCode = country

	if val, ok := s.seenCache.Load(snap.Fingerprint); ok {
		if lastSeen, ok := val.(time.Time); ok && time.Since(lastSeen) < s.softLimitDur {
			log.Trace().Str("fingerprint", snap.Fingerprint).Msg("Dropped by soft limit hit")
			return
		}
	}
	s.seenCache.Store(snap.Fingerprint, time.Now())

	s.queueMu.RLock()
	defer s.queueMu.RUnlock()

	if s.stopped {
		log.Debug().Str("fingerprint", snap.Fingerprint).Msg("Workers stopped, snapshot dropped")
		return
	}

	select {
	case s.queue <- snap:
	default:
		log.Warn().Str("fingerprint", snap.Fingerprint).Msg("Queue full, snapshot dropped")
	}
}

// worker records queued snapshots until the queue is closed.
func (s *Server) worker() {
	defer s.wg.Done()

	for snap := range s.queue {
		inserted, err := s.storage.Record(snap)
		if err != nil {
			log.Error().Err(err).Msg("Failed to save snapshot to DB")
			continue
		}

		log.Debug().
			Str("address", snap.Address).
			Str("map", snap.MapName).
			Bool("inserted", inserted).
			Msg("Snapshot saved")
	}
}

// respondError maps query and decode failures to HTTP status codes.
func respondError(w http.ResponseWriter, err error) {
	code := http.StatusBadGateway
	switch {
	case errors.Is(err, game.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
