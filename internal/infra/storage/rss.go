package storage

import "strings"

// RssFeedConfig is one feed subscription plus its dedup watermark
// (rss_feeds.json).
type RssFeedConfig struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	ChannelID Snowflake `json:"channel_id"`

	LastEntryID          string `json:"last_entry_id,omitempty"`
	LastEntryPublishedAt string `json:"last_entry_published_at,omitempty"`
}

func (m *Manager) GetRSSFeeds(guildID string) ([]RssFeedConfig, error) {
	var feeds []RssFeedConfig
	if _, err := m.readJSON(guildID, "rss_feeds.json", &feeds); err != nil {
		return nil, err
	}
	return feeds, nil
}

func (m *Manager) SaveRSSFeeds(guildID string, feeds []RssFeedConfig) error {
	if feeds == nil {
		feeds = []RssFeedConfig{}
	}
	return m.writeJSON(guildID, "rss_feeds.json", feeds)
}

func (m *Manager) FindRSSFeed(guildID, name string) (RssFeedConfig, error) {
	feeds, err := m.GetRSSFeeds(guildID)
	if err != nil {
		return RssFeedConfig{}, err
	}
	for _, feed := range feeds {
		if strings.EqualFold(feed.Name, name) {
			return feed, nil
		}
	}
	return RssFeedConfig{}, ErrNotFound
}

func (m *Manager) UpsertRSSFeed(guildID string, feed RssFeedConfig) error {
	feeds, err := m.GetRSSFeeds(guildID)
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range feeds {
		if strings.EqualFold(existing.Name, feed.Name) {
			feeds[i] = feed
			replaced = true
			break
		}
	}
	if !replaced {
		feeds = append(feeds, feed)
	}
	return m.SaveRSSFeeds(guildID, feeds)
}

func (m *Manager) DeleteRSSFeed(guildID, name string) (bool, error) {
	feeds, err := m.GetRSSFeeds(guildID)
	if err != nil {
		return false, err
	}
	remaining := feeds[:0]
	for _, feed := range feeds {
		if !strings.EqualFold(feed.Name, name) {
			remaining = append(remaining, feed)
		}
	}
	if len(remaining) == len(feeds) {
		return false, nil
	}
	return true, m.SaveRSSFeeds(guildID, remaining)
}
