package arcdps

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const releaseIndex = `<html><body><table>
<tr><th>Name</th><th>Last modified</th></tr>
<tr class="odd"><td class="indexcolname"><a href="d3d11.dll">d3d11.dll</a></td>
<td class="indexcollastmod">2025-08-12 09:30  </td></tr>
<tr class="even"><td class="indexcolname"><a href="d3d9.dll">d3d9.dll</a></td>
<td class="indexcollastmod">2025-06-01 11:00</td></tr>
</table></body></html>`

func TestParseReleaseTime(t *testing.T) {
	released, err := ParseReleaseTime(strings.NewReader(releaseIndex))
	require.NoError(t, err)
	assert.Equal(t, "2025-08-12T09:30:00Z", released.Format("2006-01-02T15:04:05Z07:00"))
}

func TestParseReleaseTimeMissingCell(t *testing.T) {
	_, err := ParseReleaseTime(strings.NewReader("<html><body>nothing</body></html>"))
	assert.Error(t, err)
}

const changelog = `<html><body>
<b>changes</b><br>
aug.12.2025: fixed crash on map change<br>
aug.12.2025: improved squad parsing<br>
aug.03.2025: older entry<br>
<b>downloads</b><br>
aug.12.2025: not part of the changes section<br>
</body></html>`

func TestParseChanges(t *testing.T) {
	date, entries, err := ParseChanges(strings.NewReader(changelog))
	require.NoError(t, err)
	assert.Equal(t, "aug.12.2025", date)
	assert.Equal(t, []string{"fixed crash on map change", "improved squad parsing"}, entries)
}

func TestParseChangesStopsAtNextHeader(t *testing.T) {
	// The newest date sits right before the next bold header.
	input := `<html><body>
<b>changes</b><br>
aug.12.2025: only entry<br>
<b>contact</b><br>
aug.13.2025: unrelated<br>
</body></html>`
	date, entries, err := ParseChanges(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "aug.12.2025", date)
	assert.Equal(t, []string{"only entry"}, entries)
}

func TestParseChangesNoSection(t *testing.T) {
	_, _, err := ParseChanges(strings.NewReader("<html><body><b>downloads</b></body></html>"))
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "August 12, 2025", FormatDate("aug.12.2025"))
	assert.Equal(t, "January 2, 2026", FormatDate("Jan.2.2026"))
	assert.Equal(t, "something else", FormatDate("something else"))
	assert.Equal(t, "", FormatDate(""))
}
