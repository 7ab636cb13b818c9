// Package render orders decoded players and formats the fixed width listing.
package render

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/woozymasta/xsstat/internal/status"
	"golang.org/x/text/width"
)

// ModeRace is the game type whose scores are centisecond encoded race times.
const ModeRace = "cts"

// Display labels.
const (
	LabelSpectator = "Spectator"
	LabelRunning   = "Running"
)

const nameColumns = 32

// IsRace reports whether players of gameType are ranked by time.
func IsRace(gameType string) bool {
	return gameType == ModeRace
}

// ScoreField formats the score column of a points based mode.
func ScoreField(p status.Player) string {
	if p.IsSpectating() {
		return LabelSpectator
	}

	return strconv.Itoa(p.Score())
}

// TimeField formats the score column of a race mode.
func TimeField(p status.Player) (string, error) {
	switch {
	case p.IsSpectating():
		return LabelSpectator, nil
	case p.HasZeroScore():
		return LabelRunning, nil
	}

	return status.FormatTime(p.Score())
}

// Field dispatches to TimeField or ScoreField depending on gameType.
func Field(gameType string, p status.Player) (string, error) {
	if IsRace(gameType) {
		return TimeField(p)
	}

	return ScoreField(p), nil
}

// Sort returns a stably sorted copy of players. Race modes rank ascending
// by score, so spectators (-666) come first; all other modes rank descending.
func Sort(gameType string, players []status.Player) []status.Player {
	sorted := slices.Clone(players)

	if IsRace(gameType) {
		slices.SortStableFunc(sorted, func(a, b status.Player) int {
			return cmp.Compare(a.Score(), b.Score())
		})
	} else {
		slices.SortStableFunc(sorted, func(a, b status.Player) int {
			return cmp.Compare(b.Score(), a.Score())
		})
	}

	return sorted
}

// Row formats one listing line: ping, name and the score or time field.
func Row(p status.Player, field string) string {
	return fmt.Sprintf("%3d %s %10s", p.Ping(), FitName(p.Name(), nameColumns), field)
}

// Lines renders hostname, map name and one row per player.
func Lines(info *status.ServerInfo, players []status.Player) ([]string, error) {
	lines := make([]string, 0, len(players)+2)
	lines = append(lines, info.Hostname(), info.MapName())

	for _, p := range Sort(info.GameType(), players) {
		field, err := Field(info.GameType(), p)
		if err != nil {
			return nil, fmt.Errorf("player %q: %w", p.Name(), err)
		}
		lines = append(lines, Row(p, field))
	}

	return lines, nil
}

// FitName truncates s to at most columns terminal cells and pads it with
// spaces to exactly columns cells. Wide runes take two cells.
func FitName(s string, columns int) string {
	var b strings.Builder
	used := 0

	for _, r := range s {
		w := RuneWidth(r)
		if used+w > columns {
			break
		}
		b.WriteRune(r)
		used += w
	}

	b.WriteString(strings.Repeat(" ", columns-used))

	return b.String()
}

// RuneWidth returns 2 for East Asian wide and fullwidth runes, 1 otherwise.
func RuneWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// Leader returns the name of the best ranked active player, or "" if nobody
// has a score yet. Spectators and, in race modes, running players are skipped.
func Leader(gameType string, players []status.Player) string {
	for _, p := range Sort(gameType, players) {
		if p.IsSpectating() || (IsRace(gameType) && p.Score() <= 0) {
			continue
		}

		return p.Name()
	}

	return ""
}
