package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleKey(name string) APIKeyRecord {
	return APIKeyRecord{
		Name:        name,
		Key:         "XXXX-1111-2222-3333",
		AccountName: "Player.1234",
		Permissions: []string{"account", "guilds"},
		GuildIDs:    []string{"AAAA-BBBB", "cccc-dddd"},
		Characters:  []string{"Zara"},
	}
}

func TestAPIKeyUpsertAndFind(t *testing.T) {
	m := newTestManager(t)
	store := m.APIKeys()

	require.NoError(t, store.Upsert("guild", "user", sampleKey("Main")))

	record, err := store.Find("guild", "user", "main")
	require.NoError(t, err)
	assert.Equal(t, "Main", record.Name)
	assert.Equal(t, "Player.1234", record.AccountName)
	assert.Equal(t, []string{"account", "guilds"}, record.Permissions)
	// Guild memberships come back normalised and sorted.
	assert.Equal(t, []string{"aaaa-bbbb", "cccc-dddd"}, record.GuildIDs)
	assert.NotEmpty(t, record.CreatedAt)

	_, err = store.Find("guild", "user", "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAPIKeyUpsertReplacesByName(t *testing.T) {
	m := newTestManager(t)
	store := m.APIKeys()

	require.NoError(t, store.Upsert("guild", "user", sampleKey("Main")))

	updated := sampleKey("MAIN")
	updated.Key = "YYYY-4444-5555-6666"
	updated.GuildIDs = []string{"eeee-ffff"}
	require.NoError(t, store.Upsert("guild", "user", updated))

	records, err := store.UserKeys("guild", "user")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "YYYY-4444-5555-6666", records[0].Key)
	assert.Equal(t, []string{"eeee-ffff"}, records[0].GuildIDs)
}

func TestAPIKeyDelete(t *testing.T) {
	m := newTestManager(t)
	store := m.APIKeys()

	require.NoError(t, store.Upsert("guild", "user", sampleKey("Main")))

	deleted, err := store.Delete("guild", "user", "MAIN")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete("guild", "user", "Main")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAPIKeysScopedPerGuildAndUser(t *testing.T) {
	m := newTestManager(t)
	store := m.APIKeys()

	require.NoError(t, store.Upsert("guild-a", "user-1", sampleKey("Main")))
	require.NoError(t, store.Upsert("guild-b", "user-1", sampleKey("Main")))
	require.NoError(t, store.Upsert("guild-a", "user-2", sampleKey("Alt")))

	records, err := store.UserKeys("guild-a", "user-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	all, err := store.All()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAllGW2GuildIDs(t *testing.T) {
	m := newTestManager(t)
	store := m.APIKeys()

	first := sampleKey("Main")
	first.GuildIDs = []string{"aaaa"}
	second := sampleKey("Alt")
	second.GuildIDs = []string{"bbbb", "AAAA"}
	require.NoError(t, store.Upsert("guild", "user-1", first))
	require.NoError(t, store.Upsert("guild", "user-2", second))

	ids, err := store.AllGW2GuildIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaa", "bbbb"}, ids)
}

func TestGuildLabels(t *testing.T) {
	m := newTestManager(t)
	store := m.APIKeys()

	require.NoError(t, store.UpsertGuildDetails(map[string]GuildDetail{
		"AAAA": {Name: "The Unquiet", Tag: "UQ"},
		"bbbb": {Name: "Solo Crew"},
	}))

	labels, err := store.GuildLabels([]string{"aaaa", "bbbb", "missing"})
	require.NoError(t, err)
	assert.Equal(t, "The Unquiet [UQ]", labels["aaaa"])
	assert.Equal(t, "Solo Crew", labels["bbbb"])
	assert.NotContains(t, labels, "missing")
}

func TestSplitGuildLabel(t *testing.T) {
	name, tag := splitGuildLabel("The Unquiet [UQ]")
	assert.Equal(t, "The Unquiet", name)
	assert.Equal(t, "UQ", tag)

	name, tag = splitGuildLabel("Solo Crew")
	assert.Equal(t, "Solo Crew", name)
	assert.Empty(t, tag)
}

func TestSortedPermissions(t *testing.T) {
	out := SortedPermissions([]string{" Guilds ", "account", "ACCOUNT", "", "wvw"})
	assert.Equal(t, []string{"account", "guilds", "wvw"}, out)
}
