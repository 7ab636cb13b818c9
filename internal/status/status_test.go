package status

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const qcstatusDM = "dm:0.8.6:P0:S2:F5:MXonotic::score!!"

func payload(info string, players ...string) []byte {
	var b strings.Builder
	b.WriteString("statusResponse\n")
	b.WriteString(info)
	b.WriteString("\n")
	for _, p := range players {
		b.WriteString(p)
		b.WriteString("\n")
	}

	return []byte(b.String())
}

func infoBlock(hostname, mapname, qcstatus string) string {
	return fmt.Sprintf(`\gamename\Xonotic\hostname\%s\mapname\%s\qcstatus\%s\sv_maxclients\16`, hostname, mapname, qcstatus)
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"^1Red^^Name^x1af": "Red^Name",
		"":                 "",
		"plain":            "plain",
		"^x12":             "^x12",
		"^xABCname":        "name",
		"^7^3two^9":        "two",
		"trailing^":        "trailing^",
		"^^^^":             "^^",
		"日本^2語":            "日本語",
	}

	for in, want := range tests {
		assert.Equal(t, want, Sanitize(in), "Sanitize(%q)", in)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	corpus := []string{
		"^1Red^^Name^x1af", "", "^", "^^", "^x", "^xfff^x000", "a^b^c",
		"^3[^7Clan^3]^7 Player", "^^x", "name^^", "^x1Z2",
	}

	for _, in := range corpus {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestSanitizeEscapedCaretBeforeDigit(t *testing.T) {
	// an escaped caret followed by a digit renders as a literal color code,
	// which a second pass treats as markup
	assert.Equal(t, "^1", Sanitize("^^1"))
	assert.Equal(t, "", Sanitize(Sanitize("^^1")))
}

func TestFormatTime(t *testing.T) {
	tests := map[int]string{
		1:       "0:00.01",
		99:      "0:00.99",
		100:     "0:01.00",
		500:     "0:05.00",
		1200:    "0:12.00",
		6000:    "1:00.00",
		12345:   "2:03.45",
		359999:  "59:59.99",
		360000:  "1:00:00.00",
		366101:  "1:01:01.01",
		8999999: "24:59:59.99",
	}

	for score, want := range tests {
		got, err := FormatTime(score)
		require.NoError(t, err)
		assert.Equal(t, want, got, "FormatTime(%d)", score)
	}
}

func TestFormatTimeRoundTrip(t *testing.T) {
	pattern := regexp.MustCompile(`^(\d+:)?([0-5]?\d:)?[0-5]\d\.\d{2}$`)
	minutesPattern := regexp.MustCompile(`^(\d+):([0-5]\d)\.(\d{2})$`)

	for score := 1; score < 360000; score += 37 {
		got, err := FormatTime(score)
		require.NoError(t, err)
		require.Regexp(t, pattern, got)

		m := minutesPattern.FindStringSubmatch(got)
		require.NotNil(t, m, got)
		mins, _ := strconv.Atoi(m[1])
		secs, _ := strconv.Atoi(m[2])
		cs, _ := strconv.Atoi(m[3])
		require.Equal(t, score, (mins*60+secs)*100+cs)
	}
}

func TestFormatTimeNegative(t *testing.T) {
	_, err := FormatTime(-5)
	require.ErrorIs(t, err, ErrInvalidScore)

	_, err = FormatTime(SpectatorScore)
	require.ErrorIs(t, err, ErrInvalidScore)
}

func TestNewPlayer(t *testing.T) {
	p, err := NewPlayer("12.75", 48, []byte("^1Red^^Name"))
	require.NoError(t, err)
	assert.Equal(t, "12.75", p.RawScore())
	assert.Equal(t, 12, p.Score())
	assert.Equal(t, 48, p.Ping())
	assert.Equal(t, "Red^Name", p.Name())
	assert.Equal(t, []byte("^1Red^^Name"), p.RawName())
	assert.False(t, p.IsSpectating())
	assert.False(t, p.HasZeroScore())

	neg, err := NewPlayer("-2.9", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, -2, neg.Score())

	spec, err := NewPlayer("-666", 0, []byte("spec"))
	require.NoError(t, err)
	assert.True(t, spec.IsSpectating())

	zero, err := NewPlayer("0", 10, []byte("zero"))
	require.NoError(t, err)
	assert.True(t, zero.HasZeroScore())

	_, err = NewPlayer("abc", 10, nil)
	require.ErrorIs(t, err, ErrMalformedPlayerRecord)

	_, err = NewPlayer("NaN", 10, nil)
	require.ErrorIs(t, err, ErrMalformedPlayerRecord)

	_, err = NewPlayer("1", -1, nil)
	require.ErrorIs(t, err, ErrMalformedPlayerRecord)
}

func TestPlayerRawNameIsCopied(t *testing.T) {
	raw := []byte("name")
	p, err := NewPlayer("1", 1, raw)
	require.NoError(t, err)

	raw[0] = 'X'
	got := p.RawName()
	got[1] = 'Y'

	assert.Equal(t, []byte("name"), p.RawName())
	assert.Equal(t, "name", p.Name())
}

func TestPlayerInvalidUTF8Name(t *testing.T) {
	p, err := NewPlayer("1", 1, []byte("bad\xffname"))
	require.NoError(t, err)
	assert.Equal(t, "bad\uFFFDname", p.Name())
}

func TestDecode(t *testing.T) {
	data := payload(
		infoBlock("^1My ^7Server", "stormkeep", qcstatusDM),
		`10 25 "^2alpha"`,
		`-666 0 "spec tator"`,
		`25.5 100 "beta"`,
	)

	info, players, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, []byte("statusResponse"), info.StatusResponse())
	assert.Equal(t, "^1My ^7Server", info.Hostname())
	assert.Equal(t, "stormkeep", info.MapName())
	assert.Equal(t, "dm", info.GameType())
	assert.Equal(t, "0.8.6", info.ServerVersion())
	assert.Equal(t, "Xonotic", info.Mod())

	v, ok := info.Value("sv_maxclients")
	require.True(t, ok)
	assert.Equal(t, []byte("16"), v)
	_, ok = info.Value("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"gamename", "hostname", "mapname", "qcstatus", "sv_maxclients"}, info.Keys())

	require.Len(t, players, 3)
	assert.Equal(t, "alpha", players[0].Name())
	assert.Equal(t, 10, players[0].Score())
	assert.Equal(t, 25, players[0].Ping())
	assert.Equal(t, "spec tator", players[1].Name())
	assert.True(t, players[1].IsSpectating())
	assert.Equal(t, 25, players[2].Score())
	assert.Equal(t, "25.5", players[2].RawScore())
}

func TestDecodeNoPlayers(t *testing.T) {
	info, players, err := Decode(payload(infoBlock("srv", "map", qcstatusDM)))
	require.NoError(t, err)
	assert.Equal(t, "srv", info.Hostname())
	assert.Empty(t, players)

	// without trailing newline
	_, players, err = Decode([]byte("statusResponse\n" + infoBlock("srv", "map", qcstatusDM)))
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		kind error
		line int
	}{
		{
			name: "odd info block",
			data: []byte("\n\\hostname\\srv\\mapname\n"),
			kind: ErrMalformedInfoBlock,
			line: 1,
		},
		{
			name: "no info line",
			data: []byte("statusResponse"),
			kind: ErrMalformedInfoBlock,
			line: -1,
		},
		{
			name: "missing hostname",
			data: payload(`\mapname\m\qcstatus\` + qcstatusDM),
			kind: ErrMalformedInfoBlock,
			line: 1,
		},
		{
			name: "missing qcstatus",
			data: payload(`\hostname\h\mapname\m`),
			kind: ErrMalformedQcStatus,
			line: 1,
		},
		{
			name: "short qcstatus",
			data: payload(infoBlock("h", "m", "dm:0.8.6:P0:S2")),
			kind: ErrMalformedQcStatus,
			line: 1,
		},
		{
			name: "unquoted name",
			data: payload(infoBlock("h", "m", qcstatusDM), `10 20 "ok"`, `10 20 bad`),
			kind: ErrMalformedPlayerRecord,
			line: 3,
		},
		{
			name: "unterminated name",
			data: payload(infoBlock("h", "m", qcstatusDM), `10 20 "bad`),
			kind: ErrMalformedPlayerRecord,
			line: 2,
		},
		{
			name: "non numeric ping",
			data: payload(infoBlock("h", "m", qcstatusDM), `10 x "name"`),
			kind: ErrMalformedPlayerRecord,
			line: 2,
		},
		{
			name: "non numeric score",
			data: payload(infoBlock("h", "m", qcstatusDM), `ten 20 "name"`),
			kind: ErrMalformedPlayerRecord,
			line: 2,
		},
		{
			name: "missing ping",
			data: payload(infoBlock("h", "m", qcstatusDM), `10 "name"`),
			kind: ErrMalformedPlayerRecord,
			line: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, players, err := Decode(tt.data)
			require.ErrorIs(t, err, tt.kind)
			assert.Nil(t, info)
			assert.Nil(t, players)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.line, de.Line)
		})
	}
}

func TestDecodeEmptyMod(t *testing.T) {
	info, _, err := Decode(payload(infoBlock("h", "m", "cts:0.8.6:P0:S2:F5:")))
	require.NoError(t, err)
	assert.Equal(t, "cts", info.GameType())
	assert.Equal(t, "", info.Mod())
}

func TestDecodeReplacesInvalidKeyBytes(t *testing.T) {
	info, _, err := Decode(payload(infoBlock("h", "m", qcstatusDM) + "\\k\xff\\v"))
	require.NoError(t, err)

	v, ok := info.Value("k\uFFFD")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}
