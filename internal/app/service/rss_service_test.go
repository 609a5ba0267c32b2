package service

import (
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedItems(ids ...string) []*gofeed.Item {
	items := make([]*gofeed.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, &gofeed.Item{GUID: id, Title: "post " + id})
	}
	return items
}

func TestEntryIdentifier(t *testing.T) {
	assert.Equal(t, "guid", EntryIdentifier(&gofeed.Item{GUID: "guid", Link: "link", Title: "title"}))
	assert.Equal(t, "link", EntryIdentifier(&gofeed.Item{Link: "link", Title: "title"}))
	assert.Equal(t, "title", EntryIdentifier(&gofeed.Item{Title: "title"}))
	assert.Equal(t, "", EntryIdentifier(&gofeed.Item{}))
}

func TestResolveNewEntriesOldestFirst(t *testing.T) {
	// Feed order is newest first: c, b, a. Watermark at a.
	items := feedItems("c", "b", "a")
	got := ResolveNewEntries(items, "a")
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].GUID)
	assert.Equal(t, "c", got[1].GUID)
}

func TestResolveNewEntriesWatermarkDiscardsOlder(t *testing.T) {
	// The watermark sits in the middle: entries below it are stale even
	// if the feed reordered.
	items := feedItems("c", "b", "stale")
	got := ResolveNewEntries(items, "b")
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].GUID)
}

func TestResolveNewEntriesNoWatermark(t *testing.T) {
	items := feedItems("b", "a")
	got := ResolveNewEntries(items, "")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].GUID)
}

func TestResolveNewEntriesUpToDate(t *testing.T) {
	items := feedItems("b", "a")
	assert.Empty(t, ResolveNewEntries(items, "b"))
}

func TestCleanSummary(t *testing.T) {
	out := CleanSummary("<p>Hello &amp; <b>world</b></p>", 400)
	assert.Equal(t, "Hello & world", out)

	long := "<p>word word word word word</p>"
	capped := CleanSummary(long, 10)
	assert.NotEmpty(t, capped)
	assert.LessOrEqual(t, len([]rune(capped)), 10)
}
