// Package forum follows the official Guild Wars 2 forum feed for game
// update notes.
package forum

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const defaultFeedURL = "https://en-forum.guildwars2.com/discover/6.xml"

// The forum CDN rejects obviously non-browser clients.
var requestHeaders = map[string]string{
	"Accept":          "application/rss+xml, application/xml;q=0.9, */*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Entry is one game-update-notes post from the feed. ID prefers the
// comment id so edits to the thread do not re-trigger; LegacyIDs keeps
// the guid/url spellings older watermarks may have stored.
type Entry struct {
	ID          string
	Title       string
	URL         string
	CommentID   string
	PublishedAt string
	Summary     string
	LegacyIDs   []string
}

type Client struct {
	http    *http.Client
	feedURL string
	parser  *gofeed.Parser
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithFeedURL(u string) Option {
	return func(c *Client) { c.feedURL = u }
}

func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		feedURL: defaultFeedURL,
		parser:  gofeed.NewParser(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Entries fetches the discover feed and keeps only update-notes posts,
// newest first (feed order).
func (c *Client) Entries(ctx context.Context) ([]Entry, error) {
	body, err := c.fetch(ctx, c.feedURL)
	if err != nil {
		return nil, err
	}
	feed, err := c.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse update notes feed: %w", err)
	}
	var entries []Entry
	for _, item := range feed.Items {
		entry, ok := parseItem(item)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Body fetches the linked thread and renders the specific comment as
// markdown. Entries without a comment id have no stable anchor, so
// callers fall back to the feed summary.
func (c *Client) Body(ctx context.Context, entry Entry) (string, error) {
	if entry.CommentID == "" {
		return "", nil
	}
	body, err := c.fetch(ctx, entry.URL)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", err
	}
	content := doc.Find(fmt.Sprintf("#comment-%s_wrap", entry.CommentID)).
		Find(`[data-role="commentContent"]`).First()
	if content.Length() == 0 {
		return "", nil
	}
	return renderContent(content), nil
}

func (c *Client) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	for name, value := range requestHeaders {
		req.Header.Set(name, value)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("forum fetch: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("forum fetch %s: status %d", target, res.StatusCode)
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func parseItem(item *gofeed.Item) (Entry, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" || !strings.Contains(strings.ToLower(title), "game update notes") {
		return Entry{}, false
	}
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return Entry{}, false
	}

	commentID := ""
	if parsed, err := url.Parse(link); err == nil {
		commentID = parsed.Query().Get("comment")
	}

	guid := strings.TrimSpace(item.GUID)
	if guid == "" {
		guid = link
	}

	entryID := commentID
	if entryID == "" {
		entryID = guid
	}

	var legacy []string
	for _, candidate := range []string{guid, link} {
		if candidate != "" && candidate != entryID {
			legacy = append(legacy, candidate)
		}
	}
	if commentID != "" {
		legacy = append(legacy, "comment="+commentID, "/comment/"+commentID)
	}
	legacy = dedupe(legacy)

	publishedAt := ""
	if item.PublishedParsed != nil {
		publishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
	}

	return Entry{
		ID:          entryID,
		Title:       title,
		URL:         link,
		CommentID:   commentID,
		PublishedAt: publishedAt,
		Summary:     renderDescription(item.Description),
		LegacyIDs:   legacy,
	}, true
}

// ResolveNewEntries walks the feed (newest first) and collects entries
// strictly newer than the stored watermark, returned oldest first so
// posts go out in publication order. Matching the stored id, one of an
// entry's legacy ids, or falling at or before the stored timestamp all
// end the walk.
func ResolveNewEntries(entries []Entry, lastID, lastPublishedAt string) []Entry {
	cutoff := parseTimestamp(lastPublishedAt)

	var collected []Entry
	for _, entry := range entries {
		if lastID != "" && matchesID(entry, lastID) {
			break
		}
		published := parseTimestamp(entry.PublishedAt)
		if !cutoff.IsZero() && !published.IsZero() && !published.After(cutoff) {
			break
		}
		collected = append(collected, entry)
	}

	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected
}

func matchesID(entry Entry, id string) bool {
	if entry.ID == id {
		return true
	}
	for _, legacy := range entry.LegacyIDs {
		if legacy == id {
			return true
		}
	}
	return false
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// Truncate caps a description at limit runes, appending an ellipsis
// when anything was cut.
func Truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimRight(string(runes[:limit-1]), " \n") + "…"
}

var bulletPattern = regexp.MustCompile(`^(\s*)[*+]\s+`)

func renderDescription(descriptionHTML string) string {
	if strings.TrimSpace(descriptionHTML) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(descriptionHTML))
	if err != nil {
		return ""
	}
	return renderContent(doc.Selection)
}

func renderContent(content *goquery.Selection) string {
	content.Find("script, style, img").Remove()
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		BulletListMarker: "-",
	})
	markdown := converter.Convert(content)
	return cleanMarkdown(markdown)
}

// cleanMarkdown collapses runs of blank lines and settles on "-" as
// the one bullet marker.
func cleanMarkdown(text string) string {
	var cleaned []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) != "" {
			cleaned = append(cleaned, line)
			blank = false
			continue
		}
		if !blank {
			cleaned = append(cleaned, "")
		}
		blank = true
	}
	result := strings.TrimSpace(strings.Join(cleaned, "\n"))
	if result == "" {
		return result
	}

	lines := strings.Split(result, "\n")
	for i, line := range lines {
		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			lines[i] = m[1] + "- " + line[len(m[0]):]
		}
	}
	return strings.Join(lines, "\n")
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, value := range values {
		if seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}
