package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestGetConfigDefaults(t *testing.T) {
	m := newTestManager(t)

	cfg, err := m.GetConfig("1")
	require.NoError(t, err)
	assert.NotNil(t, cfg.ModeratorRoleIDs)
	assert.Empty(t, cfg.ModeratorRoleIDs)
	assert.Equal(t, "UTC", cfg.Comp.Timezone)
	assert.NotNil(t, cfg.Comp.Signups)
}

func TestConfigRoundTripNormalizes(t *testing.T) {
	m := newTestManager(t)

	day := 9 // out of range
	cfg, err := m.GetConfig("1")
	require.NoError(t, err)
	cfg.AllianceGuildID = " 4BBB52AA-D768-4FC6-8EDE-C299F2822F0F "
	cfg.AlliancePredictionDay = &day
	cfg.AlliancePredictionTime = "not a clock"
	cfg.Comp.Timezone = "Mars/Olympus_Mons"
	cfg.Comp.Classes = []CompClassConfig{{Name: "Firebrand", Count: 2}}
	cfg.Comp.Signups = map[string][]string{
		"Firebrand": {"111"},
		"Scourge":   {"222"}, // no longer a configured class
	}
	require.NoError(t, m.SaveConfig("1", cfg))

	got, err := m.GetConfig("1")
	require.NoError(t, err)
	assert.Equal(t, "4bbb52aa-d768-4fc6-8ede-c299f2822f0f", got.AllianceGuildID)
	assert.Nil(t, got.AlliancePredictionDay)
	assert.Empty(t, got.AlliancePredictionTime)
	assert.Equal(t, "UTC", got.Comp.Timezone)
	assert.Equal(t, []string{"111"}, got.Comp.Signups["Firebrand"])
	assert.NotContains(t, got.Comp.Signups, "Scourge")
}

func TestGetConfigCoercesNumericSnowflakes(t *testing.T) {
	m := newTestManager(t)

	// An older document shape: IDs stored as JSON numbers.
	dir := filepath.Join(m.root, "guild_1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	doc := `{
		"moderator_role_ids": [123456789, "987654321", "junk"],
		"build_channel_id": 555
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(doc), 0o644))

	cfg, err := m.GetConfig("1")
	require.NoError(t, err)
	assert.Equal(t, SnowflakeList{"123456789", "987654321"}, cfg.ModeratorRoleIDs)
	assert.Equal(t, Snowflake("555"), cfg.BuildChannelID)
}

func TestGetConfigCorruptDocumentDegradesToDefaults(t *testing.T) {
	m := newTestManager(t)

	dir := filepath.Join(m.root, "guild_1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0o644))

	cfg, err := m.GetConfig("1")
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Comp.Timezone)
}

func TestNormalizeTimezone(t *testing.T) {
	assert.Equal(t, "Europe/Berlin", NormalizeTimezone(" Europe/Berlin "))
	assert.Equal(t, "America/New_York", NormalizeTimezone("America/New York"))
	assert.Equal(t, "UTC", NormalizeTimezone(""))
	assert.Equal(t, "UTC", NormalizeTimezone("Mars/Olympus_Mons"))
}

func TestNormalizeGuildID(t *testing.T) {
	assert.Equal(t, "abc-def", NormalizeGuildID("  ABC-DEF "))
	assert.Equal(t, "", NormalizeGuildID("   "))
}

func TestGuildIDsListsSeededGuilds(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SaveConfig("20", GuildConfig{}))
	require.NoError(t, m.SaveConfig("10", GuildConfig{}))
	assert.Equal(t, []string{"10", "20"}, m.GuildIDs())
}
