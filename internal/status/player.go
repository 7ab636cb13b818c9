package status

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// SpectatorScore is the score a server reports for a spectating client.
const SpectatorScore = -666

// Player is one entry of the status response player list. It is immutable.
type Player struct {
	rawScore string
	name     string
	rawName  []byte
	score    int
	ping     int
}

// NewPlayer builds a Player from the tokens of one player record.
// rawScore may carry a fractional part, which is truncated.
func NewPlayer(rawScore string, ping int, rawName []byte) (Player, error) {
	score, err := parseScore(rawScore)
	if err != nil {
		return Player{}, err
	}

	if ping < 0 {
		return Player{}, newError(ErrMalformedPlayerRecord, -1, "negative ping %d", ping)
	}

	return Player{
		rawScore: rawScore,
		score:    score,
		ping:     ping,
		rawName:  bytes.Clone(rawName),
		name:     Sanitize(Text(rawName)),
	}, nil
}

// RawScore returns the score token exactly as received.
func (p Player) RawScore() string { return p.rawScore }

// Score returns the integer score.
func (p Player) Score() int { return p.score }

// Ping returns the latency in milliseconds.
func (p Player) Ping() int { return p.ping }

// RawName returns a copy of the transmitted name bytes, color markup included.
func (p Player) RawName() []byte { return bytes.Clone(p.rawName) }

// Name returns the display name with color markup removed.
func (p Player) Name() string { return p.name }

// IsSpectating reports whether the score carries the spectator sentinel.
func (p Player) IsSpectating() bool { return p.score == SpectatorScore }

// HasZeroScore reports a playing client without a recorded score yet.
func (p Player) HasZeroScore() bool { return p.score == 0 }

func parseScore(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, newError(ErrMalformedPlayerRecord, -1, "score %q is not a number", raw)
	}

	f = math.Trunc(f)
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, newError(ErrMalformedPlayerRecord, -1, "score %q out of range", raw)
	}

	return int(f), nil
}

// Text decodes b as UTF-8, replacing invalid sequences with U+FFFD.
func Text(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
