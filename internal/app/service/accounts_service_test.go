package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

func TestComputeRoleChanges(t *testing.T) {
	mapped := map[string]storage.Snowflake{
		"aaaa": "100", // member, role missing -> add
		"bbbb": "200", // not a member, role held -> remove
		"cccc": "300", // member, role held -> no change
	}
	memberships := map[string]bool{"aaaa": true, "cccc": true}
	current := []string{"200", "300", "999"} // 999 is unmanaged

	toAdd, toRemove := ComputeRoleChanges(mapped, memberships, current)
	assert.Equal(t, []string{"100"}, toAdd)
	assert.Equal(t, []string{"200"}, toRemove)
}

func TestComputeRoleChangesNeverTouchesUnmappedRoles(t *testing.T) {
	toAdd, toRemove := ComputeRoleChanges(
		map[string]storage.Snowflake{"aaaa": "100"},
		map[string]bool{},
		[]string{"999"})
	assert.Empty(t, toAdd)
	assert.Empty(t, toRemove)
}

func TestDefaultKeyName(t *testing.T) {
	assert.Equal(t, "Player.1234", DefaultKeyName("Player.1234", nil))
	assert.Equal(t, "Player.1234 (2)", DefaultKeyName("Player.1234", []string{"player.1234"}))
	assert.Equal(t, "Player.1234 (3)",
		DefaultKeyName("Player.1234", []string{"Player.1234", "PLAYER.1234 (2)"}))
	assert.Equal(t, "API Key", DefaultKeyName("  ", nil))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "********", MaskKey("12345678"))
	assert.Equal(t, "ABCD…WXYZ", MaskKey("ABCD-1234-5678-WXYZ"))
	assert.Equal(t, "", MaskKey(""))
}

func TestLooksLikeUUID(t *testing.T) {
	assert.True(t, looksLikeUUID("4BBB52AA-D768-4FC6-8EDE-C299F2822F0F"))
	assert.True(t, looksLikeUUID("4bbb52aa-d768-4fc6-8ede-c299f2822f0f"))
	assert.False(t, looksLikeUUID("not-a-uuid"))
	assert.False(t, looksLikeUUID("4BBB52AA-D768-4FC6-8EDE-C299F2822F0"))
}

func TestMissingPermissions(t *testing.T) {
	assert.Empty(t, missingPermissions([]string{"account", "characters", "guilds", "wvw", "inventories"}))
	assert.Equal(t, []string{"guilds", "wvw"}, missingPermissions([]string{"account", "characters"}))
}

func TestNormalizeCharacters(t *testing.T) {
	out := normalizeCharacters([]string{" Zara ", "alba", "Zara", ""})
	assert.Equal(t, []string{"Zara", "alba"}, out)
}
