package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gw2tools/gw2-tools-bot/internal/forum"
	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

const updateNotesThumbnail = "https://wiki.guildwars2.com/images/thumb/c/cd/" +
	"Visions_of_Eternity_logo.png/244px-Visions_of_Eternity_logo.png"

// ForumSource is implemented by internal/forum.Client.
type ForumSource interface {
	Entries(ctx context.Context) ([]forum.Entry, error)
	Body(ctx context.Context, entry forum.Entry) (string, error)
}

type UpdateNotesService struct {
	store      *storage.Manager
	source     ForumSource
	notifier   Notifier
	production bool
	log        *slog.Logger
}

func NewUpdateNotesService(store *storage.Manager, source ForumSource, notifier Notifier, production bool, log *slog.Logger) *UpdateNotesService {
	return &UpdateNotesService{store: store, source: source, notifier: notifier, production: production, log: log}
}

func (s *UpdateNotesService) SetChannel(guildID, channelID string) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	cfg.UpdateNotesChannelID = storage.Snowflake(channelID)
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("Game update notes will be posted to <#%s>.", channelID), nil
}

// Run polls the forum feed on the given interval.
func (s *UpdateNotesService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *UpdateNotesService) poll(ctx context.Context) {
	entries, err := s.source.Entries(ctx)
	if err != nil {
		s.log.Warn("update notes poll failed", "err", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	for _, guildID := range s.store.GuildIDs() {
		cfg, err := s.store.GetConfig(guildID)
		if err != nil {
			s.log.Error("update notes: load config", "guild", guildID, "err", err)
			continue
		}
		if cfg.UpdateNotesChannelID == "" {
			continue
		}

		status, found, err := s.store.GetUpdateNotesStatus(guildID)
		if err != nil {
			s.log.Error("update notes: load status", "guild", guildID, "err", err)
			continue
		}
		if !found || status.LastEntryID == "" {
			// First observation seeds the watermark silently.
			latest := entries[0]
			_ = s.store.SaveUpdateNotesStatus(guildID, storage.UpdateNotesStatus{
				LastEntryID:          latest.ID,
				LastEntryPublishedAt: latest.PublishedAt,
			})
			continue
		}

		newEntries := forum.ResolveNewEntries(entries, status.LastEntryID, status.LastEntryPublishedAt)
		for _, entry := range newEntries {
			if err := s.post(ctx, string(cfg.UpdateNotesChannelID), entry); err != nil {
				s.log.Warn("update notes post failed", "guild", guildID, "entry", entry.ID, "err", err)
				break
			}
			status.LastEntryID = entry.ID
			status.LastEntryPublishedAt = entry.PublishedAt
			if err := s.store.SaveUpdateNotesStatus(guildID, status); err != nil {
				s.log.Error("update notes: save status", "guild", guildID, "err", err)
			}
		}
	}
}

// Force posts the newest update-notes entry. Refused in production.
func (s *UpdateNotesService) Force(ctx context.Context, guildID string) (string, error) {
	if s.production {
		return "Test notifications are disabled in production.", nil
	}
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	if cfg.UpdateNotesChannelID == "" {
		return "Update-notes notifications are disabled for this server.", nil
	}
	entries, err := s.source.Entries(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch update notes feed: %w", err)
	}
	if len(entries) == 0 {
		return "The feed has no game update notes right now.", nil
	}
	if err := s.post(ctx, string(cfg.UpdateNotesChannelID), entries[0]); err != nil {
		return "", err
	}
	return fmt.Sprintf("Posted the newest update notes to <#%s>.", cfg.UpdateNotesChannelID), nil
}

func (s *UpdateNotesService) post(ctx context.Context, channelID string, entry forum.Entry) error {
	body, err := s.source.Body(ctx, entry)
	if err != nil {
		s.log.Debug("update notes body fetch failed", "entry", entry.ID, "err", err)
	}
	if body == "" {
		body = entry.Summary
	}
	_, err = s.notifier.SendEmbed(channelID, UpdateNotesEmbed(entry, body))
	return err
}

// UpdateNotesEmbed renders one forum entry, truncating the body at
// 4000 runes with a footer note.
func UpdateNotesEmbed(entry forum.Entry, body string) *discordgo.MessageEmbed {
	description := body
	if description == "" {
		description = "New Guild Wars 2 game update notes are available."
	}
	truncated := forum.Truncate(description, 4000)
	if truncated == "" {
		truncated = "New Guild Wars 2 game update notes are available."
	}

	footer := "Guild Wars 2 Forums – Game Update Notes"
	if truncated != description {
		footer += " (truncated)"
	}
	embed := &discordgo.MessageEmbed{
		Title:       entry.Title,
		URL:         entry.URL,
		Description: truncated,
		Color:       BrandColor,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: updateNotesThumbnail},
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}
	if entry.PublishedAt != "" {
		embed.Timestamp = entry.PublishedAt
	}
	return embed
}
