package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCRUD(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.UpsertBuild("1", BuildRecord{
		BuildID:    "power-firebrand",
		Name:       "Power Firebrand",
		Profession: "Guardian",
		ChatCode:   "[&DQEQ...]",
	}))

	// Lookup is case-insensitive on the slug.
	build, err := m.FindBuild("1", "Power-Firebrand")
	require.NoError(t, err)
	assert.Equal(t, "Power Firebrand", build.Name)

	_, err = m.FindBuild("1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Upsert replaces instead of duplicating.
	build.Name = "Power Firebrand v2"
	require.NoError(t, m.UpsertBuild("1", build))
	builds, err := m.GetBuilds("1")
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, "Power Firebrand v2", builds[0].Name)

	deleted, err := m.DeleteBuild("1", "POWER-FIREBRAND")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = m.DeleteBuild("1", "power-firebrand")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRSSFeedCRUD(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.UpsertRSSFeed("1", RssFeedConfig{
		Name:      "GW2 News",
		URL:       "https://example.com/feed",
		ChannelID: "123",
	}))

	feed, err := m.FindRSSFeed("1", "gw2 news")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/feed", feed.URL)

	// Watermark updates keep the single entry.
	feed.LastEntryID = "abc"
	require.NoError(t, m.UpsertRSSFeed("1", feed))
	feeds, err := m.GetRSSFeeds("1")
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "abc", feeds[0].LastEntryID)

	deleted, err := m.DeleteRSSFeed("1", "GW2 NEWS")
	require.NoError(t, err)
	assert.True(t, deleted)

	feeds, err = m.GetRSSFeeds("1")
	require.NoError(t, err)
	assert.Empty(t, feeds)
}

func TestSaveAuditGW2APIKeysNormalizesNames(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.SaveAuditGW2APIKeys("1", map[string]string{
		" Leader ": "KEY-1",
		"officer":  " KEY-2 ",
		"":         "dropped",
		"blank":    "  ",
	}))

	keys, err := m.GetAuditGW2APIKeys("1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"leader": "KEY-1", "officer": "KEY-2"}, keys)
}

func TestArcDpsStatusRoundTrip(t *testing.T) {
	m := newTestManager(t)

	_, found, err := m.GetArcDpsStatus("1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.SaveArcDpsStatus("1", ArcDpsStatus{
		LastCheckedAt: "2025-08-20T10:00:00Z",
		LastUpdatedAt: "2025-08-12T09:30:00Z",
	}))

	status, found, err := m.GetArcDpsStatus("1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2025-08-12T09:30:00Z", status.LastUpdatedAt)
}
