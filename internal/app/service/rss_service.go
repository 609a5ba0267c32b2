package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mmcdole/gofeed"

	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

type RSSService struct {
	store      *storage.Manager
	parser     *gofeed.Parser
	production bool
	log        *slog.Logger
	notifier   Notifier
}

func NewRSSService(store *storage.Manager, notifier Notifier, production bool, log *slog.Logger) *RSSService {
	return &RSSService{
		store:      store,
		parser:     gofeed.NewParser(),
		production: production,
		log:        log,
		notifier:   notifier,
	}
}

// SetFeed subscribes (or re-points) a named feed. The newest entry is
// stored as the watermark so only future posts notify.
func (s *RSSService) SetFeed(ctx context.Context, guildID, name, feedURL, channelID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("the feed needs a name")
	}

	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return "", fmt.Errorf("could not read the feed at %s: %w", feedURL, err)
	}

	config := storage.RssFeedConfig{
		Name:      name,
		URL:       feedURL,
		ChannelID: storage.Snowflake(channelID),
	}
	if len(feed.Items) > 0 {
		latest := feed.Items[0]
		config.LastEntryID = EntryIdentifier(latest)
		if latest.PublishedParsed != nil {
			config.LastEntryPublishedAt = latest.PublishedParsed.UTC().Format(time.RFC3339)
		}
	}
	if err := s.store.UpsertRSSFeed(guildID, config); err != nil {
		return "", err
	}
	return fmt.Sprintf("Watching **%s** (%s) in <#%s>. Existing posts were skipped.", name, feedURL, channelID), nil
}

func (s *RSSService) DeleteFeed(guildID, name string) (string, error) {
	deleted, err := s.store.DeleteRSSFeed(guildID, name)
	if err != nil {
		return "", err
	}
	if !deleted {
		return fmt.Sprintf("No feed named **%s**.", name), nil
	}
	return fmt.Sprintf("Stopped watching **%s**.", name), nil
}

func (s *RSSService) ListFeeds(guildID string) (string, error) {
	feeds, err := s.store.GetRSSFeeds(guildID)
	if err != nil {
		return "", err
	}
	rows := make([][]string, 0, len(feeds))
	for _, feed := range feeds {
		lastPost := feed.LastEntryPublishedAt
		if lastPost == "" {
			lastPost = "-"
		}
		rows = append(rows, []string{feed.Name, feed.URL, "#" + string(feed.ChannelID), lastPost})
	}
	return FormatTable([]string{"Name", "URL", "Channel", "Last post"}, rows, "No feeds configured.", true), nil
}

// TestFeed posts the newest entry immediately. Refused in production.
func (s *RSSService) TestFeed(ctx context.Context, guildID, name string) (string, error) {
	if s.production {
		return "Feed test posts are disabled in production.", nil
	}
	feedConfig, err := s.store.FindRSSFeed(guildID, name)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Sprintf("No feed named **%s**.", name), nil
	}
	if err != nil {
		return "", err
	}
	feed, err := s.parser.ParseURLWithContext(feedConfig.URL, ctx)
	if err != nil {
		return "", fmt.Errorf("could not read the feed: %w", err)
	}
	if len(feed.Items) == 0 {
		return "The feed has no entries.", nil
	}
	embed := EntryEmbed(feedConfig, feed, feed.Items[0])
	if _, err := s.notifier.SendEmbed(string(feedConfig.ChannelID), embed); err != nil {
		return "", fmt.Errorf("post test entry: %w", err)
	}
	return fmt.Sprintf("Posted the newest entry of **%s**.", feedConfig.Name), nil
}

// Run polls every guild's feeds on the given interval.
func (s *RSSService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollAll(ctx)
		}
	}
}

func (s *RSSService) pollAll(ctx context.Context) {
	for _, guildID := range s.store.GuildIDs() {
		feeds, err := s.store.GetRSSFeeds(guildID)
		if err != nil {
			s.log.Error("rss poll: load feeds", "guild", guildID, "err", err)
			continue
		}
		for _, feedConfig := range feeds {
			updated, err := s.pollFeed(ctx, feedConfig)
			if err != nil {
				s.log.Warn("rss poll failed", "guild", guildID, "feed", feedConfig.Name, "err", err)
				continue
			}
			if updated != nil {
				if err := s.store.UpsertRSSFeed(guildID, *updated); err != nil {
					s.log.Error("rss poll: save watermark", "guild", guildID, "feed", feedConfig.Name, "err", err)
				}
			}
		}
	}
}

// pollFeed posts new entries oldest first, advancing the watermark per
// posted entry so a mid-batch failure does not re-post earlier ones.
func (s *RSSService) pollFeed(ctx context.Context, feedConfig storage.RssFeedConfig) (*storage.RssFeedConfig, error) {
	feed, err := s.parser.ParseURLWithContext(feedConfig.URL, ctx)
	if err != nil {
		return nil, err
	}
	newEntries := ResolveNewEntries(feed.Items, feedConfig.LastEntryID)
	if len(newEntries) == 0 {
		return nil, nil
	}

	changed := false
	for _, item := range newEntries {
		embed := EntryEmbed(feedConfig, feed, item)
		if _, err := s.notifier.SendEmbed(string(feedConfig.ChannelID), embed); err != nil {
			if changed {
				return &feedConfig, err
			}
			return nil, err
		}
		feedConfig.LastEntryID = EntryIdentifier(item)
		if item.PublishedParsed != nil {
			feedConfig.LastEntryPublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
		}
		changed = true
	}
	return &feedConfig, nil
}

// EntryIdentifier picks the most stable id a feed offers.
func EntryIdentifier(item *gofeed.Item) string {
	for _, candidate := range []string{item.GUID, item.Link, item.Title} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// ResolveNewEntries returns entries newer than the watermark, oldest
// first. Walking the feed oldest-to-newest, seeing the watermark
// discards everything collected so far: entries older than it are
// stale even if the feed reordered.
func ResolveNewEntries(items []*gofeed.Item, lastEntryID string) []*gofeed.Item {
	var collected []*gofeed.Item
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		id := EntryIdentifier(item)
		if id == "" {
			continue
		}
		if lastEntryID != "" && id == lastEntryID {
			collected = collected[:0]
			continue
		}
		collected = append(collected, item)
	}
	return collected
}

// CleanSummary strips markup, unescapes entities and caps the text at
// maxLength runes.
func CleanSummary(summary string, maxLength int) string {
	text := htmlTagRe.ReplaceAllString(summary, "")
	text = strings.TrimSpace(html.UnescapeString(text))
	return TruncateText(text, maxLength)
}

// EntryEmbed renders one feed item.
func EntryEmbed(feedConfig storage.RssFeedConfig, feed *gofeed.Feed, item *gofeed.Item) *discordgo.MessageEmbed {
	title := item.Title
	if title == "" {
		title = "New update"
	}
	link := item.Link
	if link == "" {
		link = feedConfig.URL
	}

	embed := &discordgo.MessageEmbed{
		Title: title,
		URL:   link,
		Color: BrandColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "RSS feed: " + feedConfig.Name,
		},
	}
	if summary := CleanSummary(firstNonEmpty(item.Description, item.Content), 400); summary != "" {
		embed.Description = summary
	}

	feedTitle := feedConfig.Name
	feedLink := feedConfig.URL
	if feed != nil {
		if feed.Title != "" {
			feedTitle = feed.Title
		}
		if feed.Link != "" {
			feedLink = feed.Link
		}
	}
	embed.Author = &discordgo.MessageEmbedAuthor{Name: feedTitle, URL: feedLink}

	if item.PublishedParsed != nil {
		embed.Timestamp = item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if item.Image != nil && item.Image.URL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: item.Image.URL}
	}

	var details []string
	if item.Published != "" {
		details = append(details, "**Published:** "+item.Published)
	}
	if item.Author != nil && item.Author.Name != "" {
		details = append(details, "**Author:** "+item.Author.Name)
	}
	if len(item.Categories) > 0 {
		details = append(details, "**Tags:** "+TruncateText(strings.Join(item.Categories, ", "), 800))
	}
	if len(details) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Details",
			Value: TruncateText(strings.Join(details, "\n"), 1024),
		})
	}
	return embed
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
