package service

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

func newCompsService(t *testing.T) (*CompsService, *storage.Manager) {
	t.Helper()
	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewCompsService(store, nil, slog.Default()), store
}

func scheduledComp() storage.CompConfig {
	day := 4 // Friday
	return storage.CompConfig{
		ChannelID: "123",
		PostDay:   &day,
		PostTime:  "19:30",
		Timezone:  "UTC",
		Classes:   []storage.CompClassConfig{{Name: "Firebrand", Count: 2}},
	}
}

func TestCompDue(t *testing.T) {
	comp := scheduledComp()
	// 2025-08-22 is a Friday.
	friday := time.Date(2025, 8, 22, 19, 30, 0, 0, time.UTC)

	assert.True(t, CompDue(comp, friday))
	assert.False(t, CompDue(comp, friday.Add(time.Minute)), "only the exact minute fires")
	assert.False(t, CompDue(comp, friday.AddDate(0, 0, 1)), "wrong weekday")
}

func TestCompDueRespectsTimezone(t *testing.T) {
	comp := scheduledComp()
	comp.Timezone = "Europe/Berlin"
	comp.PostTime = "20:00"
	// 18:00 UTC == 20:00 CEST on 2025-08-22.
	assert.True(t, CompDue(comp, time.Date(2025, 8, 22, 18, 0, 0, 0, time.UTC)))
	assert.False(t, CompDue(comp, time.Date(2025, 8, 22, 20, 0, 0, 0, time.UTC)))
}

func TestCompDueSkipsSameLocalDate(t *testing.T) {
	comp := scheduledComp()
	friday := time.Date(2025, 8, 22, 19, 30, 0, 0, time.UTC)
	comp.LastPostAt = friday.Add(-time.Hour).Format(time.RFC3339)
	assert.False(t, CompDue(comp, friday))

	comp.LastPostAt = friday.AddDate(0, 0, -7).Format(time.RFC3339)
	assert.True(t, CompDue(comp, friday))
}

func TestCompDueRequiresFullConfig(t *testing.T) {
	now := time.Date(2025, 8, 22, 19, 30, 0, 0, time.UTC)

	comp := scheduledComp()
	comp.ChannelID = ""
	assert.False(t, CompDue(comp, now))

	comp = scheduledComp()
	comp.PostDay = nil
	assert.False(t, CompDue(comp, now))

	comp = scheduledComp()
	comp.Classes = nil
	assert.False(t, CompDue(comp, now))
}

func TestWeekdayIndex(t *testing.T) {
	assert.Equal(t, 0, weekdayIndex(time.Monday))
	assert.Equal(t, 4, weekdayIndex(time.Friday))
	assert.Equal(t, 6, weekdayIndex(time.Sunday))
}

func TestParseClassDefinition(t *testing.T) {
	classes, err := ParseClassDefinition("Scourge:4, firebrand:2, Spellbreaker")
	require.NoError(t, err)
	require.Len(t, classes, 3)
	// Sorted by name.
	assert.Equal(t, storage.CompClassConfig{Name: "Firebrand", Count: 2}, classes[0])
	assert.Equal(t, storage.CompClassConfig{Name: "Scourge", Count: 4}, classes[1])
	assert.Equal(t, storage.CompClassConfig{Name: "Spellbreaker", Count: 1}, classes[2])
}

func TestParseClassDefinitionRejectsUnknownAndDuplicates(t *testing.T) {
	_, err := ParseClassDefinition("Paladin:2")
	assert.Error(t, err)

	_, err = ParseClassDefinition("Scourge, scourge:2")
	assert.Error(t, err)

	_, err = ParseClassDefinition("Scourge:0")
	assert.Error(t, err)

	_, err = ParseClassDefinition("  ,  ")
	assert.Error(t, err)
}

func TestCompPresetRoundTrip(t *testing.T) {
	svc, store := newCompsService(t)

	_, err := svc.SetClasses("1", "Firebrand:2, Scourge:4")
	require.NoError(t, err)

	msg, err := svc.SavePreset("1", "Zerg")
	require.NoError(t, err)
	assert.Contains(t, msg, "Zerg")

	// Swap to a different line-up and sign someone onto a class the
	// preset will bring back.
	_, err = svc.SetClasses("1", "Firebrand:1, Spellbreaker:1")
	require.NoError(t, err)
	_, err = svc.Signup("1", "7", "Firebrand")
	require.NoError(t, err)

	msg, err = svc.UsePreset("1", "zerg")
	require.NoError(t, err)
	assert.Contains(t, msg, "Firebrand ×2")
	assert.Contains(t, msg, "Scourge ×4")

	cfg, err := store.GetConfig("1")
	require.NoError(t, err)
	assert.Equal(t, []storage.CompClassConfig{
		{Name: "Firebrand", Count: 2},
		{Name: "Scourge", Count: 4},
	}, cfg.Comp.Classes)
	// Signups survive for classes the preset keeps; dropped classes
	// lose theirs.
	assert.Equal(t, []string{"7"}, cfg.Comp.Signups["Firebrand"])
	assert.NotContains(t, cfg.Comp.Signups, "Spellbreaker")

	list, err := svc.ListPresets("1")
	require.NoError(t, err)
	assert.Contains(t, list, "Zerg")
	assert.Contains(t, list, "Firebrand ×2, Scourge ×4")

	msg, err = svc.DeletePreset("1", "ZERG")
	require.NoError(t, err)
	assert.Contains(t, msg, "Deleted preset")
}

func TestCompPresetEdgeCases(t *testing.T) {
	svc, _ := newCompsService(t)

	// No classes defined yet.
	msg, err := svc.SavePreset("1", "Zerg")
	require.NoError(t, err)
	assert.Contains(t, msg, "/comp classes")

	_, err = svc.SavePreset("1", "  ")
	assert.Error(t, err)

	msg, err = svc.UsePreset("1", "Zerg")
	require.NoError(t, err)
	assert.Contains(t, msg, "No preset")

	msg, err = svc.DeletePreset("1", "Zerg")
	require.NoError(t, err)
	assert.Contains(t, msg, "No preset")

	list, err := svc.ListPresets("1")
	require.NoError(t, err)
	assert.Contains(t, list, "No presets stored")
}

func TestFormatSignups(t *testing.T) {
	assert.Equal(t, "​", FormatSignups(nil))
	assert.Equal(t, "• <@1>\n• <@2>", FormatSignups([]string{"1", "2"}))

	var many []string
	for i := 0; i < 18; i++ {
		many = append(many, fmt.Sprintf("%d", i))
	}
	out := FormatSignups(many)
	assert.Contains(t, out, "…and 3 more")
	assert.NotContains(t, out, "<@15>")
}
