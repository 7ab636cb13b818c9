// Package maintenance provides history listing and cleanup tasks for the snapshot database.
package maintenance

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/xsstat/internal/config"
	"github.com/woozymasta/xsstat/internal/models"
	"github.com/woozymasta/xsstat/internal/storage"
)

// Run checks if any maintenance flags are set and executes the corresponding tasks.
// Returns true if a maintenance task was executed (indicating the program should exit).
func Run(cfg *config.Config, store *storage.Repository, w io.Writer) bool {
	if store == nil {
		return false
	}

	ran := false

	if cfg.Storage.PruneOlder > 0 {
		ran = true
		before := time.Now().Add(-cfg.Storage.PruneOlder)
		log.Info().Time("before", before).Msg("Pruning old snapshots...")

		count, err := store.PruneBefore(before)
		if err != nil {
			log.Error().Err(err).Msg("Failed to prune snapshots")
		} else {
			log.Info().Int64("deleted", count).Msg("Prune finished")
		}
	}

	if cfg.Storage.History > 0 {
		ran = true
		address := cfg.Target.Address()

		snapshots, err := store.ListSnapshots(address, cfg.Storage.History)
		if err != nil {
			log.Error().Err(err).Str("address", address).Msg("Failed to fetch snapshots")
			return true
		}

		if len(snapshots) == 0 {
			log.Info().Str("address", address).Msg("No snapshots recorded")
			return true
		}

		for _, s := range snapshots {
			_, _ = fmt.Fprintln(w, FormatSnapshot(s))
		}
	}

	return ran
}

// FormatSnapshot renders one history line:
// last seen, times seen, game type, map, players+spectators, leader and hostname.
func FormatSnapshot(s models.Snapshot) string {
	leader := s.Leader
	if leader == "" {
		leader = "-"
	}

	return fmt.Sprintf("%s %5dx %-5s %-20s %3d+%-3d %-20s %s",
		s.LastSeen.UTC().Format(time.RFC3339), s.Count, s.GameType, s.MapName,
		s.Players, s.Spectators, leader, s.Hostname)
}
