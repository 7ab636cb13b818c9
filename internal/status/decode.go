// Package status decodes DarkPlaces/Xonotic getstatus responses into server and player data.
package status

import (
	"bytes"
	"errors"
	"strconv"
)

const (
	lineHeader = 0
	lineInfo   = 1
)

var (
	newline   = []byte{'\n'}
	backslash = []byte{'\\'}
	colon     = []byte{':'}
	space     = []byte{' '}
	quote     = []byte{'"'}
)

// Decode splits a status response payload into its server info and player list.
// The payload starts at the statusResponse header line. Players are returned
// in server slot order. On error neither info nor players are returned.
func Decode(payload []byte) (*ServerInfo, []Player, error) {
	segments := bytes.Split(payload, newline)
	if len(segments) < 2 {
		return nil, nil, newError(ErrMalformedInfoBlock, -1, "payload has no info block line")
	}

	fields, err := parseInfoBlock(segments[lineInfo])
	if err != nil {
		return nil, nil, err
	}

	for _, key := range []string{KeyHostname, KeyMapName} {
		if _, ok := fields[key]; !ok {
			return nil, nil, newError(ErrMalformedInfoBlock, lineInfo, "missing required key %q", key)
		}
	}

	info := &ServerInfo{
		fields: fields,
		header: bytes.Clone(segments[lineHeader]),
	}
	if err := parseQcStatus(info); err != nil {
		return nil, nil, err
	}

	var records [][]byte
	if len(segments) > 2 {
		// the last segment follows the final newline and is not a record
		records = segments[2 : len(segments)-1]
	}

	players := make([]Player, 0, len(records))
	for i, rec := range records {
		p, err := parsePlayer(rec)
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				de.Line = i + 2
			}
			return nil, nil, err
		}
		players = append(players, p)
	}

	return info, players, nil
}

// parseInfoBlock reads a \key\value\key\value info string. The token in
// front of the first backslash is ignored.
func parseInfoBlock(block []byte) (map[string][]byte, error) {
	tokens := bytes.Split(block, backslash)
	if (len(tokens)-1)%2 != 0 {
		return nil, newError(ErrMalformedInfoBlock, lineInfo, "odd number of key/value tokens (%d)", len(tokens)-1)
	}

	fields := make(map[string][]byte, len(tokens)/2)
	for i := 2; i < len(tokens); i += 2 {
		fields[Text(tokens[i-1])] = bytes.Clone(tokens[i])
	}

	return fields, nil
}

// parseQcStatus fills the game type, version and mod from the
// colon separated qcstatus value, e.g. "cts:0.8.6:P0:S3:F8:MXonotic::score!!".
func parseQcStatus(info *ServerInfo) error {
	raw, ok := info.fields[KeyQcStatus]
	if !ok {
		return newError(ErrMalformedQcStatus, lineInfo, "missing %q key", KeyQcStatus)
	}

	parts := bytes.Split(raw, colon)
	if len(parts) < 6 {
		return newError(ErrMalformedQcStatus, lineInfo, "expected at least 6 fields, got %d", len(parts))
	}

	info.gameType = Text(parts[0])
	info.serverVersion = Text(parts[1])
	if mod := []rune(Text(parts[5])); len(mod) > 0 {
		info.mod = string(mod[1:])
	}

	return nil
}

// parsePlayer reads one `score ping "name"` record.
func parsePlayer(rec []byte) (Player, error) {
	quoted := bytes.Split(rec, quote)
	if len(quoted) < 3 {
		return Player{}, newError(ErrMalformedPlayerRecord, -1, "missing quoted name in %q", rec)
	}

	tokens := bytes.Split(rec, space)
	if len(tokens) < 2 {
		return Player{}, newError(ErrMalformedPlayerRecord, -1, "missing score or ping in %q", rec)
	}

	ping, err := strconv.Atoi(string(tokens[1]))
	if err != nil {
		return Player{}, newError(ErrMalformedPlayerRecord, -1, "ping %q is not an integer", tokens[1])
	}

	return NewPlayer(string(tokens[0]), ping, quoted[1])
}
