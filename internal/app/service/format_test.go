package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTablePlaceholder(t *testing.T) {
	out := FormatTable([]string{"A", "B"}, nil, "nothing here", true)
	assert.Equal(t, "nothing here", out)
}

func TestFormatTableAlignment(t *testing.T) {
	out := FormatTable(
		[]string{"Name", "URL"},
		[][]string{{"gw2", "https://example.com/feed"}},
		"-", false)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "+==="))
	assert.Contains(t, lines[1], "| Name")
	assert.Contains(t, lines[3], "https://example.com/feed")
	assert.True(t, strings.HasPrefix(lines[4], "+---"))

	// Every line has the same width.
	for _, line := range lines[1:] {
		assert.Equal(t, len(lines[0]), len(line))
	}
}

func TestFormatTableAlignsMultibyteCells(t *testing.T) {
	out := FormatTable(
		[]string{"Name", "Account"},
		[][]string{
			{"Zoé", "Übermensch.1234"},
			{"Plain", "ascii.5678"},
		},
		"-", false)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)
	// Accented names are shorter in runes than in bytes; every line
	// still renders at the same visible width.
	width := len([]rune(lines[0]))
	for _, line := range lines[1:] {
		assert.Equal(t, width, len([]rune(line)), line)
	}
}

func TestFormatTableCodeBlock(t *testing.T) {
	out := FormatTable([]string{"A"}, [][]string{{"x"}}, "-", true)
	assert.True(t, strings.HasPrefix(out, "```\n"))
	assert.True(t, strings.HasSuffix(out, "\n```"))
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "none", FormatList(nil, "none"))
	assert.Equal(t, "- a\n- b", FormatList([]string{"a", "b"}, "none"))
}

func TestFormatCSV(t *testing.T) {
	data, err := FormatCSV([]string{"a", "b"}, [][]string{{"1", "two, three"}})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\"two, three\"\n", string(data))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	out := TruncateText("this is a long sentence", 10)
	assert.True(t, strings.HasSuffix(out, "…"))
	assert.LessOrEqual(t, len([]rune(out)), 10)
}
