package status

import (
	"bytes"
	"sort"
)

// Server info keys the decoder requires.
const (
	KeyHostname = "hostname"
	KeyMapName  = "mapname"
	KeyQcStatus = "qcstatus"
)

// ServerInfo is the decoded server info block of a status response.
// Required fields are validated by Decode and exposed through typed accessors,
// every other key is kept as raw bytes.
type ServerInfo struct {
	fields        map[string][]byte
	header        []byte
	gameType      string
	serverVersion string
	mod           string
}

// StatusResponse returns the header line of the payload verbatim.
func (s *ServerInfo) StatusResponse() []byte { return bytes.Clone(s.header) }

// Hostname returns the server name, color markup included.
func (s *ServerInfo) Hostname() string { return Text(s.fields[KeyHostname]) }

// MapName returns the current map.
func (s *ServerInfo) MapName() string { return Text(s.fields[KeyMapName]) }

// GameType returns the game mode tag from qcstatus, e.g. "dm" or "cts".
func (s *ServerInfo) GameType() string { return s.gameType }

// ServerVersion returns the version field from qcstatus.
func (s *ServerInfo) ServerVersion() string { return s.serverVersion }

// Mod returns the mod name from qcstatus.
func (s *ServerInfo) Mod() string { return s.mod }

// Value returns a copy of the raw value stored under key.
func (s *ServerInfo) Value(key string) ([]byte, bool) {
	v, ok := s.fields[key]
	if !ok {
		return nil, false
	}

	return bytes.Clone(v), true
}

// Keys returns all info keys in lexical order.
func (s *ServerInfo) Keys() []string {
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
