package render

import "github.com/woozymasta/xsstat/internal/status"

// Document is the JSON view of one decoded status response.
type Document struct {
	Hostname string       `json:"hostname"`
	Name     string       `json:"name"`
	Map      string       `json:"map"`
	GameType string       `json:"gametype"`
	Version  string       `json:"version"`
	Mod      string       `json:"mod"`
	Country  string       `json:"country,omitempty"`
	Players  []PlayerView `json:"players"`
}

// PlayerView is a player row of Document.
type PlayerView struct {
	Name      string `json:"name"`
	RawName   string `json:"raw_name"`
	RawScore  string `json:"raw_score"`
	Display   string `json:"display"`
	Score     int    `json:"score"`
	Ping      int    `json:"ping"`
	Spectator bool   `json:"spectator"`
}

// NewDocument builds a Document with players in listing order.
func NewDocument(info *status.ServerInfo, players []status.Player) (Document, error) {
	doc := Document{
		Hostname: info.Hostname(),
		Name:     status.Sanitize(info.Hostname()),
		Map:      info.MapName(),
		GameType: info.GameType(),
		Version:  info.ServerVersion(),
		Mod:      info.Mod(),
		Players:  make([]PlayerView, 0, len(players)),
	}

	for _, p := range Sort(info.GameType(), players) {
		field, err := Field(info.GameType(), p)
		if err != nil {
			return Document{}, err
		}

		doc.Players = append(doc.Players, PlayerView{
			Name:      p.Name(),
			RawName:   status.Text(p.RawName()),
			RawScore:  p.RawScore(),
			Display:   field,
			Score:     p.Score(),
			Ping:      p.Ping(),
			Spectator: p.IsSpectating(),
		})
	}

	return doc, nil
}
