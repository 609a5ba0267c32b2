// Package sheets reads the community-maintained WvW alliance roster
// spreadsheet, one tab per team world.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode"
)

const defaultSheetID = "1Txjpcet-9FDVek6uJ0N3OciwgbpE0cfWozUK7ATfWx4"

// Alliance is one roster row: an alliance name and its member guilds.
type Alliance struct {
	Name   string
	Guilds []string
}

// Roster is one tab's worth of alliances plus the solo-guild section
// at the bottom.
type Roster struct {
	Alliances  []Alliance
	SoloGuilds []string
}

type Client struct {
	http    *http.Client
	baseURL string

	mu    sync.Mutex
	cache map[string]Roster
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/gviz/tq", defaultSheetID),
		cache:   make(map[string]Roster),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Roster fetches and parses one tab, caching per process run. A tab
// that cannot be fetched caches empty so one bad tab does not retry on
// every poll.
func (c *Client) Roster(ctx context.Context, tab string) (Roster, error) {
	c.mu.Lock()
	if cached, ok := c.cache[tab]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	q := url.Values{}
	q.Set("tqx", "out:csv")
	q.Set("sheet", tab)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Roster{}, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return Roster{}, fmt.Errorf("roster fetch: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		c.store(tab, Roster{})
		return Roster{}, fmt.Errorf("roster fetch %q: status %d", tab, res.StatusCode)
	}

	roster, err := ParseRoster(res.Body)
	if err != nil {
		c.store(tab, Roster{})
		return Roster{}, err
	}
	c.store(tab, roster)
	return roster, nil
}

func (c *Client) store(tab string, roster Roster) {
	c.mu.Lock()
	c.cache[tab] = roster
	c.mu.Unlock()
}

// ParseRoster reads a tab exported as CSV. The first row is a header;
// column A is the alliance name, column B its guilds one per line. A
// row whose text contains "solo" switches to collecting solo guilds
// from both columns.
func ParseRoster(r io.Reader) (Roster, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return Roster{}, fmt.Errorf("parse roster csv: %w", err)
	}
	if len(rows) <= 1 {
		return Roster{}, nil
	}

	var roster Roster
	inSolo := false
	for _, row := range rows[1:] {
		first, second := "", ""
		if len(row) > 0 {
			first = strings.TrimSpace(row[0])
		}
		if len(row) > 1 {
			second = strings.TrimSpace(row[1])
		}
		if first == "" && second == "" {
			continue
		}
		if isSoloHeader(first) || isSoloHeader(second) {
			inSolo = true
			continue
		}
		if inSolo {
			roster.SoloGuilds = append(roster.SoloGuilds, splitLines(first)...)
			roster.SoloGuilds = append(roster.SoloGuilds, splitLines(second)...)
			continue
		}
		if first == "" {
			continue
		}
		roster.Alliances = append(roster.Alliances, Alliance{
			Name:   first,
			Guilds: splitLines(second),
		})
	}
	return roster, nil
}

// Merge combines rosters from several worlds, deduplicating alliances
// by name and solo guilds by spelling while keeping first-seen order.
func Merge(rosters ...Roster) Roster {
	var merged Roster
	allianceIdx := map[string]int{}
	soloSeen := map[string]bool{}
	for _, roster := range rosters {
		for _, alliance := range roster.Alliances {
			idx, ok := allianceIdx[alliance.Name]
			if !ok {
				allianceIdx[alliance.Name] = len(merged.Alliances)
				merged.Alliances = append(merged.Alliances, Alliance{Name: alliance.Name})
				idx = len(merged.Alliances) - 1
			}
			existing := &merged.Alliances[idx]
			for _, guild := range alliance.Guilds {
				if !contains(existing.Guilds, guild) {
					existing.Guilds = append(existing.Guilds, guild)
				}
			}
		}
		for _, guild := range roster.SoloGuilds {
			if !soloSeen[guild] {
				soloSeen[guild] = true
				merged.SoloGuilds = append(merged.SoloGuilds, guild)
			}
		}
	}
	return merged
}

// isSoloHeader matches "Solo guilds", "SOLO", decorated variants and so
// on: letters only, case-folded, substring match.
func isSoloHeader(value string) bool {
	if value == "" {
		return false
	}
	var sb strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	normalized := strings.ToLower(strings.Join(strings.Fields(sb.String()), " "))
	return strings.Contains(normalized, "solo")
}

func splitLines(value string) []string {
	var out []string
	for _, line := range strings.Split(value, "\n") {
		if cleaned := strings.TrimSpace(line); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
