package gw2

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

func (c *Client) TokenInfo(ctx context.Context, key string) (*TokenInfo, error) {
	var dto TokenInfo
	if err := c.doJSON(ctx, "/tokeninfo", key, nil, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

func (c *Client) Account(ctx context.Context, key string) (*Account, error) {
	var dto Account
	if err := c.doJSON(ctx, "/account", key, nil, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// CharacterNames lists the account's character names.
func (c *Client) CharacterNames(ctx context.Context, key string) ([]string, error) {
	var names []string
	if err := c.doJSON(ctx, "/characters", key, nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Guild fetches public name/tag details for a GW2 guild UUID.
func (c *Client) Guild(ctx context.Context, guildID string) (*GuildInfo, error) {
	var dto GuildInfo
	if err := c.doJSON(ctx, fmt.Sprintf("/guild/%s", guildID), "", nil, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// SearchGuild resolves a guild name to candidate UUIDs.
func (c *Client) SearchGuild(ctx context.Context, name string) ([]string, error) {
	q := url.Values{}
	q.Set("name", name)
	var ids []string
	if err := c.doJSON(ctx, "/guild/search", "", q, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GuildMembers needs a leader key for the guild.
func (c *Client) GuildMembers(ctx context.Context, key, guildID string) ([]GuildMember, error) {
	var members []GuildMember
	if err := c.doJSON(ctx, fmt.Sprintf("/guild/%s/members", guildID), key, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// GuildLog returns guild log entries newer than since (0 fetches the
// full window the API keeps). Each entry keeps its raw JSON alongside
// the shared fields.
func (c *Client) GuildLog(ctx context.Context, key, guildID string, since int64) ([]GuildLogEntry, error) {
	q := url.Values{}
	if since > 0 {
		q.Set("since", strconv.FormatInt(since, 10))
	}
	var raws []json.RawMessage
	if err := c.doJSON(ctx, fmt.Sprintf("/guild/%s/log", guildID), key, q, &raws); err != nil {
		return nil, err
	}
	entries := make([]GuildLogEntry, 0, len(raws))
	for _, raw := range raws {
		var entry GuildLogEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		entry.Raw = raw
		entries = append(entries, entry)
	}
	return entries, nil
}

// WvWGuildWorlds maps GW2 guild UUID (lowercased) to its assigned WvW
// world, merged across the NA and EU assignment endpoints.
func (c *Client) WvWGuildWorlds(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	for _, region := range []string{"na", "eu"} {
		var payload map[string]json.Number
		if err := c.doJSON(ctx, "/wvw/guilds/"+region, "", nil, &payload); err != nil {
			return nil, err
		}
		for guildID, worldID := range payload {
			id, err := worldID.Int64()
			if err != nil {
				continue
			}
			out[strings.ToLower(strings.TrimSpace(guildID))] = int(id)
		}
	}
	return out, nil
}

// Matches fetches the given match ids (for example "1-1".."1-4").
func (c *Client) Matches(ctx context.Context, ids []string) ([]Match, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	var matches []Match
	if err := c.doJSON(ctx, "/wvw/matches", "", q, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// MatchForWorld fetches the match a world is currently fighting in.
func (c *Client) MatchForWorld(ctx context.Context, worldID int) (*Match, error) {
	q := url.Values{}
	q.Set("world", strconv.Itoa(worldID))
	var match Match
	if err := c.doJSON(ctx, "/wvw/matches", "", q, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

