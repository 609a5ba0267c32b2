package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditStoreDiscordEvents(t *testing.T) {
	m := newTestManager(t)
	store, err := m.AuditStore("1")
	require.NoError(t, err)

	require.NoError(t, store.AddDiscordEvent(DiscordEvent{
		CreatedAt: "2025-08-20T10:00:00Z",
		EventType: "member_join",
		UserID:    "111",
		UserName:  "zara",
	}))
	require.NoError(t, store.AddDiscordEvent(DiscordEvent{
		CreatedAt: "2025-08-21T10:00:00Z",
		EventType: "message_delete",
		UserID:    "111",
		UserName:  "zara",
		Details:   "hello",
	}))

	// Exact id match, newest first.
	events, err := store.QueryDiscordEvents("111", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "message_delete", events[0].EventType)
	assert.Equal(t, "member_join", events[1].EventType)

	// Name substring match.
	events, err = store.QueryDiscordEvents("zar", 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = store.QueryDiscordEvents("nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAuditStoreGW2Events(t *testing.T) {
	m := newTestManager(t)
	store, err := m.AuditStore("1")
	require.NoError(t, err)

	require.NoError(t, store.AddGW2Event(GW2Event{
		LogID:     42,
		CreatedAt: "2025-08-20T10:00:00Z",
		EventType: "joined",
		User:      "Player.1234",
	}))

	events, err := store.QueryGW2Events("player", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(42), events[0].LogID)
	assert.Equal(t, "joined", events[0].EventType)
}

func TestAuditStoreWatermark(t *testing.T) {
	m := newTestManager(t)
	store, err := m.AuditStore("1")
	require.NoError(t, err)

	_, found, err := store.GW2LastLogID()
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetGW2LastLogID(99))
	require.NoError(t, store.SetGW2LastLogID(120))

	id, found, err := store.GW2LastLogID()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(120), id)
}

func TestAuditStoresIsolatedPerGuild(t *testing.T) {
	m := newTestManager(t)
	first, err := m.AuditStore("1")
	require.NoError(t, err)
	second, err := m.AuditStore("2")
	require.NoError(t, err)

	require.NoError(t, first.AddDiscordEvent(DiscordEvent{
		CreatedAt: "2025-08-20T10:00:00Z",
		EventType: "member_join",
		UserID:    "111",
	}))

	events, err := second.QueryDiscordEvents("111", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
