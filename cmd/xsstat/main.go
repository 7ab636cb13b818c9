// main is the entry point of xsstat.
// It queries a Xonotic server with getstatus and prints its player listing,
// or serves that listing over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/xsstat/internal/config"
	"github.com/woozymasta/xsstat/internal/fake"
	"github.com/woozymasta/xsstat/internal/game"
	"github.com/woozymasta/xsstat/internal/geoip"
	"github.com/woozymasta/xsstat/internal/logger"
	"github.com/woozymasta/xsstat/internal/maintenance"
	"github.com/woozymasta/xsstat/internal/models"
	"github.com/woozymasta/xsstat/internal/render"
	"github.com/woozymasta/xsstat/internal/server"
	"github.com/woozymasta/xsstat/internal/status"
	"github.com/woozymasta/xsstat/internal/storage"
)

func main() {
	cfg := config.Parse()

	closeLog := logger.Setup(cfg.Logger)
	code := run(cfg)
	closeLog()

	os.Exit(code)
}

func run(cfg *config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	geoProvider := openGeoIP(ctx, cfg.GeoIP)
	if geoProvider != nil {
		defer func() {
			if err := geoProvider.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing GeoIP provider")
			}
		}()
	}

	var store *storage.Repository
	if cfg.Storage.Path != "" {
		var err error
		store, err = storage.New(cfg.Storage.Path)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to initialize database")
			return 1
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing database")
			}
		}()
	}

	// data generation or database maintenance
	if store != nil && cfg.Storage.GenerateCount > 0 {
		fake.GenerateData(store, cfg.Target.Address(), cfg.Storage.GenerateCount)
		return 0
	} else if maintenance.Run(cfg, store, os.Stdout) {
		return 0
	}

	if cfg.Server.Enabled {
		return serve(ctx, cfg, store, geoProvider)
	}

	if err := queryOnce(ctx, cfg, store, geoProvider, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	return 0
}

// openGeoIP returns nil when country lookup is disabled or unavailable.
func openGeoIP(ctx context.Context, cfg config.GeoIP) *geoip.Provider {
	if cfg.Path == "" {
		return nil
	}

	if err := geoip.EnsureDB(ctx, cfg.Path, cfg.URL, cfg.Interval); err != nil {
		log.Warn().Err(err).Msg("GeoIP database unavailable, country detection disabled")
		return nil
	}

	provider, err := geoip.Open(cfg.Path)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		return nil
	}

	return provider
}

// queryOnce sends one getstatus request and writes the listing to w.
func queryOnce(ctx context.Context, cfg *config.Config, store *storage.Repository, geo *geoip.Provider, w io.Writer) error {
	target := cfg.Target

	payload, err := game.QueryServer(ctx, target.Host, target.Port, cfg.Query)
	if err != nil {
		return err
	}

	info, players, err := status.Decode(payload)
	if err != nil {
		var de *status.DecodeError
		if errors.As(err, &de) {
			log.Debug().Str("kind", de.Kind.Error()).Int("line", de.Line).Msg("Status response rejected")
		}
		return err
	}

	country := geo.LookupHost(ctx, target.Host)

	switch cfg.Output.Format {
	case config.FormatJSON:
		doc, err := render.NewDocument(info, players)
		if err != nil {
			return err
		}
		doc.Country = country

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return err
		}
	default:
		lines, err := render.Lines(info, players)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
			return err
		}
	}

	if store != nil {
		snap := models.NewSnapshot(target.Address(), info, players, render.Leader(info.GameType(), players), time.Now())
		snap.CountryCode = country
		if _, err := store.Record(snap); err != nil {
			log.Error().Err(err).Msg("Failed to save snapshot to DB")
		}
	}

	return nil
}

func serve(ctx context.Context, cfg *config.Config, store *storage.Repository, geo *geoip.Provider) int {
	srvHandler := server.New(store, geo, cfg)
	srvHandler.StartWorkers()

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srvHandler.Run(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Query.Timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	failed := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", cfg.Server.Address).
			Str("target", cfg.Target.Address()).
			Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	code := 0
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server...")
	case err := <-failed:
		log.Error().Err(err).Msg("Server failed")
		code = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop workers (wait queue done)
	srvHandler.StopWorkers()

	log.Info().Msg("Server exited")
	return code
}
