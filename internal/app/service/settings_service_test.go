package service

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

func newSettingsService(t *testing.T) (*SettingsService, *storage.Manager) {
	t.Helper()
	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewSettingsService(store, slog.Default()), store
}

func TestModeratorRoleLifecycle(t *testing.T) {
	svc, store := newSettingsService(t)

	msg, err := svc.AddModeratorRole("1", "100")
	require.NoError(t, err)
	assert.Contains(t, msg, "<@&100>")

	msg, err = svc.AddModeratorRole("1", "100")
	require.NoError(t, err)
	assert.Contains(t, msg, "already")

	cfg, err := store.GetConfig("1")
	require.NoError(t, err)
	assert.Equal(t, storage.SnowflakeList{"100"}, cfg.ModeratorRoleIDs)

	msg, err = svc.RemoveModeratorRole("1", "100")
	require.NoError(t, err)
	assert.Contains(t, msg, "no longer")

	msg, err = svc.RemoveModeratorRole("1", "100")
	require.NoError(t, err)
	assert.Contains(t, msg, "not a moderator role")
}

func TestSetBuildChannel(t *testing.T) {
	svc, store := newSettingsService(t)

	_, err := svc.SetBuildChannel("1", "555")
	require.NoError(t, err)

	cfg, err := store.GetConfig("1")
	require.NoError(t, err)
	assert.Equal(t, storage.Snowflake("555"), cfg.BuildChannelID)
}

func TestShowSummarisesConfig(t *testing.T) {
	svc, store := newSettingsService(t)

	cfg, err := store.GetConfig("1")
	require.NoError(t, err)
	cfg.BuildChannelID = "555"
	require.NoError(t, store.SaveConfig("1", cfg))

	out, err := svc.Show("1")
	require.NoError(t, err)
	assert.Contains(t, out, "None (admins only)")
	assert.Contains(t, out, "<#555>")
	assert.Contains(t, out, "Not configured")
}
