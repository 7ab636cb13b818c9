// Package models defines the data structures persisted by the history storage.
package models

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/woozymasta/xsstat/internal/status"
)

// Snapshot summarizes one decoded status response of a server.
// Consecutive identical responses collapse into one row with Count > 1.
type Snapshot struct {
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Address     string    `json:"address"`
	Hostname    string    `json:"hostname"`
	MapName     string    `json:"map_name"`
	GameType    string    `json:"game_type"`
	Version     string    `json:"version"`
	Mod         string    `json:"mod"`
	CountryCode string    `json:"country_code"`
	Leader      string    `json:"leader"`
	Fingerprint string    `json:"fingerprint"`
	ID          int64     `json:"id"`
	Count       int64     `json:"count"`
	Players     int       `json:"players"`
	Spectators  int       `json:"spectators"`
}

// NewSnapshot builds a Snapshot of address from a decoded response.
// leader is the sanitized name of the first player in listing order.
func NewSnapshot(address string, info *status.ServerInfo, players []status.Player, leader string, seen time.Time) Snapshot {
	s := Snapshot{
		FirstSeen:   seen.UTC(),
		LastSeen:    seen.UTC(),
		Address:     address,
		Hostname:    status.Sanitize(info.Hostname()),
		MapName:     info.MapName(),
		GameType:    info.GameType(),
		Version:     info.ServerVersion(),
		Mod:         info.Mod(),
		Leader:      leader,
		Fingerprint: Fingerprint(info, players),
		Count:       1,
	}

	for _, p := range players {
		if p.IsSpectating() {
			s.Spectators++
		} else {
			s.Players++
		}
	}

	return s
}

// Fingerprint hashes the parts of a response that a listing shows:
// hostname, map, game type and the roster with scores in slot order.
func Fingerprint(info *status.ServerInfo, players []status.Player) string {
	d := xxhash.New()
	write := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}

	write(info.Hostname())
	write(info.MapName())
	write(info.GameType())
	for _, p := range players {
		write(p.Name())
		write(strconv.Itoa(p.Score()))
	}

	return strconv.FormatUint(d.Sum64(), 16)
}
