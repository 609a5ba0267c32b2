package gw2

import "encoding/json"

// TokenInfo is the /v2/tokeninfo response.
type TokenInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Account is the /v2/account response. Guilds holds GW2 guild UUIDs.
type Account struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	World  int      `json:"world"`
	Guilds []string `json:"guilds"`
}

// GuildInfo is the /v2/guild/:id response.
type GuildInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

// Label renders the guild as "Name [TAG]".
func (g GuildInfo) Label() string {
	if g.Tag != "" {
		return g.Name + " [" + g.Tag + "]"
	}
	return g.Name
}

// GuildMember is one row of /v2/guild/:id/members.
type GuildMember struct {
	Name   string `json:"name"`
	Rank   string `json:"rank"`
	Joined string `json:"joined"`
}

// GuildLogEntry is one row of /v2/guild/:id/log. Raw preserves the full
// entry for audit storage; the typed fields are the ones every entry
// kind shares.
type GuildLogEntry struct {
	ID   int64  `json:"id"`
	Time string `json:"time"`
	Type string `json:"type"`
	User string `json:"user"`

	Raw json.RawMessage `json:"-"`
}

// Match is a /v2/wvw/matches entry. Tier is derived from the match id
// ("1-3" means NA tier 3) when the payload does not carry one.
type Match struct {
	ID            string           `json:"id"`
	StartTime     string           `json:"start_time"`
	EndTime       string           `json:"end_time"`
	Worlds        map[string]int   `json:"worlds"`
	AllWorlds     map[string][]int `json:"all_worlds"`
	VictoryPoints map[string]int   `json:"victory_points"`
}

// Tier extracts the numeric tier from the match id, 0 when unparseable.
func (m Match) Tier() int {
	for i := 0; i < len(m.ID); i++ {
		if m.ID[i] == '-' {
			tier := 0
			for _, r := range m.ID[i+1:] {
				if r < '0' || r > '9' {
					return 0
				}
				tier = tier*10 + int(r-'0')
			}
			return tier
		}
	}
	return 0
}
