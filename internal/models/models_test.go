package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/xsstat/internal/status"
)

func decode(t *testing.T, data string) (*status.ServerInfo, []status.Player) {
	t.Helper()

	info, players, err := status.Decode([]byte(data))
	require.NoError(t, err)

	return info, players
}

const header = "statusResponse\n\\hostname\\^1Red ^7Server\\mapname\\solarium\\qcstatus\\dm:0.8.6:P0:S2:F5:MXonotic::score!!\n"

func TestNewSnapshot(t *testing.T) {
	info, players := decode(t, header+"12 30 \"one\"\n-666 0 \"two\"\n3 40 \"three\"\n")
	seen := time.Date(2026, 10, 14, 12, 0, 0, 0, time.FixedZone("CEST", 7200))

	s := NewSnapshot("127.0.0.1:26000", info, players, "one", seen)

	assert.Equal(t, "Red Server", s.Hostname)
	assert.Equal(t, "solarium", s.MapName)
	assert.Equal(t, "dm", s.GameType)
	assert.Equal(t, "Xonotic", s.Mod)
	assert.Equal(t, 2, s.Players)
	assert.Equal(t, 1, s.Spectators)
	assert.Equal(t, int64(1), s.Count)
	assert.Equal(t, time.UTC, s.LastSeen.Location())
	assert.True(t, seen.Equal(s.FirstSeen))
	assert.NotEmpty(t, s.Fingerprint)
}

func TestFingerprint(t *testing.T) {
	a1, p1 := decode(t, header+"12 30 \"one\"\n")
	a2, p2 := decode(t, header+"12 99 \"one\"\n")
	b, pb := decode(t, header+"13 30 \"one\"\n")

	// ping changes are not part of the fingerprint
	assert.Equal(t, Fingerprint(a1, p1), Fingerprint(a2, p2))
	assert.NotEqual(t, Fingerprint(a1, p1), Fingerprint(b, pb))
}
