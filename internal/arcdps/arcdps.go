// Package arcdps watches the deltaconnected.com release listing and
// changelog for new ArcDPS builds.
package arcdps

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	defaultReleaseURL   = "https://www.deltaconnected.com/arcdps/x64/"
	defaultChangelogURL = "https://www.deltaconnected.com/arcdps/"

	// The release index renders apache mod_autoindex timestamps.
	releaseTimeLayout = "2006-01-02 15:04"
)

type Client struct {
	http         *http.Client
	releaseURL   string
	changelogURL string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithReleaseURL(u string) Option {
	return func(c *Client) { c.releaseURL = u }
}

func WithChangelogURL(u string) Option {
	return func(c *Client) { c.changelogURL = u }
}

func New(opts ...Option) *Client {
	c := &Client{
		http:         &http.Client{Timeout: 15 * time.Second},
		releaseURL:   defaultReleaseURL,
		changelogURL: defaultChangelogURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ReleaseURL is the public download location, used when rendering
// notifications.
func (c *Client) ReleaseURL() string { return c.releaseURL }

// LatestReleaseTime scrapes the release index for the d3d11 build's
// last-modified timestamp (UTC).
func (c *Client) LatestReleaseTime(ctx context.Context) (time.Time, error) {
	body, err := c.fetch(ctx, c.releaseURL)
	if err != nil {
		return time.Time{}, err
	}
	defer body.Close()
	return ParseReleaseTime(body)
}

// LatestChanges scrapes the changelog for the newest dated entries.
// The returned date keeps the site's own "Aug.12.2025" spelling.
func (c *Client) LatestChanges(ctx context.Context) (string, []string, error) {
	body, err := c.fetch(ctx, c.changelogURL)
	if err != nil {
		return "", nil, err
	}
	defer body.Close()
	return ParseChanges(body)
}

func (c *Client) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arcdps fetch: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("arcdps fetch %s: status %d", url, res.StatusCode)
	}
	return res.Body, nil
}

// ParseReleaseTime reads the first autoindex row and its last-modified
// cell.
func ParseReleaseTime(r io.Reader) (time.Time, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return time.Time{}, err
	}
	cell := doc.Find("tr.odd td.indexcollastmod").First()
	text := strings.TrimSpace(cell.Text())
	if text == "" {
		return time.Time{}, fmt.Errorf("release listing has no last-modified cell")
	}
	parsed, err := time.Parse(releaseTimeLayout, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("unexpected release timestamp %q: %w", text, err)
	}
	return parsed.UTC(), nil
}

// ParseChanges walks the siblings of the <b>changes</b> header. Lines
// look like "aug.12.2025: fixed crash on map change"; only entries for
// the newest date are collected, and the next bold header ends the
// section.
func ParseChanges(r io.Reader) (string, []string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", nil, err
	}

	var header *html.Node
	doc.Find("b").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(s.Text()), "changes") {
			header = s.Nodes[0]
			return false
		}
		return true
	})
	if header == nil {
		return "", nil, fmt.Errorf("changelog has no changes section")
	}

	var latestDate string
	var entries []string
	for node := header.NextSibling; node != nil; node = node.NextSibling {
		var text string
		switch {
		case node.Type == html.TextNode:
			text = node.Data
		case node.Type == html.ElementNode && node.Data == "br":
			continue
		case node.Type == html.ElementNode && node.Data == "b":
			return latestDate, entries, nil
		case node.Type == html.ElementNode:
			text = nodeText(node)
		default:
			continue
		}

		text = strings.TrimSpace(strings.ReplaceAll(text, " ", " "))
		date, description, ok := strings.Cut(text, ":")
		if !ok {
			continue
		}
		date = strings.TrimSpace(date)
		description = strings.TrimSpace(description)
		if description == "" {
			continue
		}
		if latestDate == "" {
			latestDate = date
		}
		if date != latestDate {
			break
		}
		entries = append(entries, description)
	}
	return latestDate, entries, nil
}

// FormatDate converts the changelog's "Aug.12.2025" spelling into
// "August 12, 2025", passing through anything it cannot parse.
func FormatDate(value string) string {
	if value == "" {
		return value
	}
	sanitized := strings.ReplaceAll(value, " ", "")
	parsed, err := time.Parse("Jan.2.2006", sanitized)
	if err != nil {
		return value
	}
	return parsed.Format("January 2, 2006")
}

func nodeText(node *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return strings.Join(strings.Fields(sb.String()), " ")
}
