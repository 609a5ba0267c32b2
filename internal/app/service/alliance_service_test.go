package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gw2tools/gw2-tools-bot/internal/gw2"
	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
	"github.com/gw2tools/gw2-tools-bot/internal/sheets"
)

func TestExtractTeams(t *testing.T) {
	match := gw2.Match{
		ID: "1-2",
		AllWorlds: map[string][]int{
			"red":   {1003, 1103},
			"green": {1001},
			"blue":  {1002},
		},
		VictoryPoints: map[string]int{"green": 50, "blue": 60, "red": 70},
	}

	teams := ExtractTeams(match)
	require.Len(t, teams, 3)
	assert.Equal(t, MatchTeam{Color: "green", WorldIDs: []int{1001}, VictoryPoints: 50}, teams[0])
	assert.Equal(t, MatchTeam{Color: "blue", WorldIDs: []int{1002}, VictoryPoints: 60}, teams[1])
	assert.Equal(t, MatchTeam{Color: "red", WorldIDs: []int{1003, 1103}, VictoryPoints: 70}, teams[2])
}

func TestExtractTeamsFallsBackToMainWorlds(t *testing.T) {
	match := gw2.Match{
		ID:     "1-1",
		Worlds: map[string]int{"green": 1001, "blue": 1002, "red": 1003},
	}
	teams := ExtractTeams(match)
	require.Len(t, teams, 3)
	assert.Equal(t, []int{1002}, teams[1].WorldIDs)
}

func TestPredictTiers(t *testing.T) {
	matches := []gw2.Match{
		{
			ID:            "1-1",
			AllWorlds:     map[string][]int{"green": {1001}, "blue": {1002}, "red": {1003}},
			VictoryPoints: map[string]int{"green": 100, "blue": 90, "red": 80},
		},
		{
			ID:            "1-2",
			AllWorlds:     map[string][]int{"green": {2001}, "blue": {2002}, "red": {2003}},
			VictoryPoints: map[string]int{"green": 50, "blue": 60, "red": 70},
		},
	}

	predictions := PredictTiers(matches)
	require.Len(t, predictions, 2)

	// Tier 1: its winner stays green, its loser drops; the tier 2
	// winner moves up as red.
	tier1 := predictions[0]
	assert.Equal(t, 1, tier1.Tier)
	require.Len(t, tier1.Teams, 3)
	assert.Equal(t, MatchTeam{Color: "green", WorldIDs: []int{1001}, VictoryPoints: 100}, tier1.Teams[0])
	assert.Equal(t, MatchTeam{Color: "blue", WorldIDs: []int{1002}, VictoryPoints: 90}, tier1.Teams[1])
	assert.Equal(t, MatchTeam{Color: "red", WorldIDs: []int{2003}, VictoryPoints: 70}, tier1.Teams[2])

	// Tier 2 (bottom): the tier 1 loser drops in as green, the tier 2
	// middle keeps blue, the tier 2 loser stays as red.
	tier2 := predictions[1]
	assert.Equal(t, 2, tier2.Tier)
	require.Len(t, tier2.Teams, 3)
	assert.Equal(t, MatchTeam{Color: "green", WorldIDs: []int{1003}, VictoryPoints: 80}, tier2.Teams[0])
	assert.Equal(t, MatchTeam{Color: "blue", WorldIDs: []int{2002}, VictoryPoints: 60}, tier2.Teams[1])
	assert.Equal(t, MatchTeam{Color: "red", WorldIDs: []int{2001}, VictoryPoints: 50}, tier2.Teams[2])
}

func TestFormatAllianceList(t *testing.T) {
	roster := sheets.Roster{
		Alliances: []sheets.Alliance{
			{Name: "First Alliance", Guilds: []string{"Guild A", "Guild B"}},
		},
		SoloGuilds: []string{"Lone Wolves"},
	}
	want := strings.Join([]string{
		"**First Alliance**",
		"• Guild A",
		"• Guild B",
		"",
		"**Solo Guilds**",
		"• Lone Wolves",
	}, "\n")
	assert.Equal(t, want, FormatAllianceList(roster))

	assert.Equal(t, "No roster data found.", FormatAllianceList(sheets.Roster{}))
}

func TestFormatAllianceListTrimsToFieldBudget(t *testing.T) {
	var roster sheets.Roster
	for i := 0; i < 30; i++ {
		roster.Alliances = append(roster.Alliances, sheets.Alliance{
			Name:   "Alliance With A Rather Long Name",
			Guilds: []string{"Some Guild Name Here", "Another Guild Name"},
		})
	}
	roster.SoloGuilds = []string{"Lone Wolves"}

	out := FormatAllianceList(roster)
	assert.LessOrEqual(t, len(out), 1000)
	assert.True(t, strings.HasSuffix(out, "…"))
	assert.Contains(t, out, "**Solo Guilds**", "solo guilds survive the trim")
}

func pacific(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return loc
}

func TestPredictionDueNow(t *testing.T) {
	loc := pacific(t)
	cfg := storage.GuildConfig{} // defaults: Friday, 09:00 / 19:30

	// 2025-08-22 is a Friday.
	assert.False(t, predictionDueNow(cfg, time.Date(2025, 8, 22, 8, 59, 0, 0, loc)))
	assert.True(t, predictionDueNow(cfg, time.Date(2025, 8, 22, 9, 0, 0, 0, loc)))
	assert.True(t, predictionDueNow(cfg, time.Date(2025, 8, 22, 12, 0, 0, 0, loc)))
	assert.False(t, predictionDueNow(cfg, time.Date(2025, 8, 21, 12, 0, 0, 0, loc)), "wrong day")

	// Once reset time passes on a shared day the prediction window is
	// closed.
	assert.False(t, predictionDueNow(cfg, time.Date(2025, 8, 22, 19, 30, 0, 0, loc)))

	// Already posted today.
	cfg.AllianceLastPredictionAt = time.Date(2025, 8, 22, 9, 5, 0, 0, loc).UTC().Format(time.RFC3339)
	assert.False(t, predictionDueNow(cfg, time.Date(2025, 8, 22, 10, 0, 0, 0, loc)))
}

func TestCurrentDueNow(t *testing.T) {
	loc := pacific(t)
	cfg := storage.GuildConfig{}

	assert.False(t, currentDueNow(cfg, time.Date(2025, 8, 22, 19, 29, 0, 0, loc)))
	assert.True(t, currentDueNow(cfg, time.Date(2025, 8, 22, 19, 30, 0, 0, loc)))

	cfg.AllianceLastActualAt = time.Date(2025, 8, 22, 19, 31, 0, 0, loc).UTC().Format(time.RFC3339)
	assert.False(t, currentDueNow(cfg, time.Date(2025, 8, 22, 20, 0, 0, 0, loc)))
}

func TestPostedToday(t *testing.T) {
	loc := pacific(t)
	now := time.Date(2025, 8, 22, 20, 0, 0, 0, loc)

	assert.False(t, postedToday("", now))
	assert.False(t, postedToday("not a timestamp", now))
	assert.True(t, postedToday(time.Date(2025, 8, 22, 9, 0, 0, 0, loc).UTC().Format(time.RFC3339), now))
	assert.False(t, postedToday(time.Date(2025, 8, 21, 9, 0, 0, 0, loc).UTC().Format(time.RFC3339), now))
}

func TestClockReached(t *testing.T) {
	now := time.Date(2025, 8, 22, 19, 30, 0, 0, time.UTC)
	assert.True(t, clockReached(now, "19:30"))
	assert.True(t, clockReached(now, "09:00"))
	assert.False(t, clockReached(now, "19:31"))
	assert.False(t, clockReached(now, "bogus"))
}

func TestTitleColor(t *testing.T) {
	assert.Equal(t, "Green", titleColor("green"))
	assert.Equal(t, "", titleColor(""))
}
