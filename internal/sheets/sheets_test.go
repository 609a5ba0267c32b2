package sheets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rosterCSV = `"Alliance","Guilds"
"First Alliance","Guild A
Guild B"
"Second Alliance","Guild C"
"","ignored without a name"
"~~ Solo Guilds ~~",""
"Lone Wolves","Night Owls
Day Owls"
`

func TestParseRoster(t *testing.T) {
	roster, err := ParseRoster(strings.NewReader(rosterCSV))
	require.NoError(t, err)

	require.Len(t, roster.Alliances, 2)
	assert.Equal(t, Alliance{Name: "First Alliance", Guilds: []string{"Guild A", "Guild B"}}, roster.Alliances[0])
	assert.Equal(t, Alliance{Name: "Second Alliance", Guilds: []string{"Guild C"}}, roster.Alliances[1])

	// After the solo header both columns collect guilds.
	assert.Equal(t, []string{"Lone Wolves", "Night Owls", "Day Owls"}, roster.SoloGuilds)
}

func TestParseRosterHeaderOnly(t *testing.T) {
	roster, err := ParseRoster(strings.NewReader(`"Alliance","Guilds"` + "\n"))
	require.NoError(t, err)
	assert.Empty(t, roster.Alliances)
	assert.Empty(t, roster.SoloGuilds)
}

func TestIsSoloHeader(t *testing.T) {
	assert.True(t, isSoloHeader("Solo Guilds"))
	assert.True(t, isSoloHeader("*** SOLO ***"))
	assert.False(t, isSoloHeader("First Alliance"))
	assert.False(t, isSoloHeader(""))
}

func TestMerge(t *testing.T) {
	a := Roster{
		Alliances:  []Alliance{{Name: "First", Guilds: []string{"A", "B"}}},
		SoloGuilds: []string{"Lone Wolves"},
	}
	b := Roster{
		Alliances: []Alliance{
			{Name: "First", Guilds: []string{"B", "C"}},
			{Name: "Second", Guilds: []string{"D"}},
		},
		SoloGuilds: []string{"Lone Wolves", "Night Owls"},
	}

	merged := Merge(a, b)
	require.Len(t, merged.Alliances, 2)
	assert.Equal(t, Alliance{Name: "First", Guilds: []string{"A", "B", "C"}}, merged.Alliances[0])
	assert.Equal(t, Alliance{Name: "Second", Guilds: []string{"D"}}, merged.Alliances[1])
	assert.Equal(t, []string{"Lone Wolves", "Night Owls"}, merged.SoloGuilds)
}
