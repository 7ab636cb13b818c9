// Package fake generates synthetic getstatus responses and snapshot history for testing and development purposes.
package fake

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/xsstat/internal/models"
	"github.com/woozymasta/xsstat/internal/render"
	"github.com/woozymasta/xsstat/internal/status"
	"github.com/woozymasta/xsstat/internal/storage"
)

var (
	gameTypes = []string{"dm", "tdm", "ctf", "ca", "ka", "cts"}
	maps      = []string{"afterslime", "solarium", "stormkeep", "gasoline", "implosion", "bloodprison", "warfare"}
	versions  = []string{"0.8.2", "0.8.5", "0.8.6"}
	names     = []string{"Player", "^1Red^7Baron", "^x0f0Green", "^3[^7Clan^3]^7 Tag", "caret^^man", "日本語", "ＦＵＬＬ", "^4blue"}
)

// Options tunes a generated response. Zero values are picked randomly.
type Options struct {
	GameType   string
	MapName    string
	Players    int
	Spectators int
}

// Response builds a status response payload as a server would send it,
// without the out-of-band prefix.
func Response(rng *rand.Rand, opts Options) []byte {
	if opts.GameType == "" {
		opts.GameType = gameTypes[rng.Intn(len(gameTypes))]
	}
	if opts.MapName == "" {
		opts.MapName = maps[rng.Intn(len(maps))]
	}
	if opts.Players == 0 && opts.Spectators == 0 {
		opts.Players = rng.Intn(12)
		opts.Spectators = rng.Intn(3)
	}

	var b strings.Builder
	b.WriteString("statusResponse\n")
	fmt.Fprintf(&b, `\gamename\Xonotic\modname\data\hostname\^%dFake ^7Server #%d\mapname\%s`,
		rng.Intn(10), rng.Intn(1000), opts.MapName)
	fmt.Fprintf(&b, `\sv_maxclients\%d\clients\%d`, opts.Players+opts.Spectators+4, opts.Players+opts.Spectators)
	fmt.Fprintf(&b, `\qcstatus\%s:%s:P0:S%d:F%d:MXonotic::score!!`,
		opts.GameType, versions[rng.Intn(len(versions))], opts.Players+opts.Spectators, rng.Intn(10))
	b.WriteString("\n")

	for i := 0; i < opts.Players; i++ {
		fmt.Fprintf(&b, "%s %d \"%s\"\n", score(rng, opts.GameType), rng.Intn(250), names[rng.Intn(len(names))])
	}
	for i := 0; i < opts.Spectators; i++ {
		fmt.Fprintf(&b, "%d %d \"%s\"\n", status.SpectatorScore, rng.Intn(250), names[rng.Intn(len(names))])
	}

	return []byte(b.String())
}

func score(rng *rand.Rand, gameType string) string {
	if render.IsRace(gameType) {
		// 10% still running, otherwise 20s to 3min
		if rng.Float32() < 0.1 {
			return "0"
		}
		return fmt.Sprint(2000 + rng.Intn(16000))
	}

	// one protocol variant reports decimal scores
	if rng.Float32() < 0.2 {
		return fmt.Sprintf("%d.%02d", rng.Intn(60), rng.Intn(100))
	}
	return fmt.Sprint(rng.Intn(60) - 5)
}

// GenerateData records count snapshots of address built from generated
// responses, one every five minutes up to now.
func GenerateData(store *storage.Repository, address string, count int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now().Add(-time.Duration(count) * 5 * time.Minute)

	var opts Options
	for i := 0; i < count; i++ {
		// keep the same match for a while, like a real server
		if i%6 == 0 {
			opts = Options{}
		}

		info, players, err := status.Decode(Response(rng, opts))
		if err != nil {
			log.Warn().Err(err).Msg("Generated response does not decode")
			continue
		}
		opts.GameType, opts.MapName = info.GameType(), info.MapName()

		seen := start.Add(time.Duration(i) * 5 * time.Minute)
		snap := models.NewSnapshot(address, info, players, render.Leader(info.GameType(), players), seen)
		if _, err := store.Record(snap); err != nil {
			log.Warn().Err(err).Msg("Failed to generate fake snapshot")
		}
	}

	log.Info().Int("count", count).Str("address", address).Msg("Fake history generated")
}
