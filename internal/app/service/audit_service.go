package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

const auditQueryLimit = 20

type AuditService struct {
	store    *storage.Manager
	api      GW2API
	notifier Notifier
	log      *slog.Logger
}

func NewAuditService(store *storage.Manager, api GW2API, notifier Notifier, log *slog.Logger) *AuditService {
	return &AuditService{store: store, api: api, notifier: notifier, log: log}
}

func (s *AuditService) SetChannel(guildID, channelID string) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	cfg.AuditChannelID = storage.Snowflake(channelID)
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("Audit events will be posted to <#%s>.", channelID), nil
}

// SetGW2Key stores a named admin API key. The most recently set key also
// becomes the one used for guild-log syncing.
func (s *AuditService) SetGW2Key(guildID, name, key string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimSpace(key)
	if name == "" || key == "" {
		return "", fmt.Errorf("both a name and a key are required")
	}
	keys, err := s.store.GetAuditGW2APIKeys(guildID)
	if err != nil {
		return "", err
	}
	keys[name] = key
	if err := s.store.SaveAuditGW2APIKeys(guildID, keys); err != nil {
		return "", err
	}
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	cfg.AuditGW2AdminAPIKey = key
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("Stored admin key **%s** (%s).", name, MaskKey(key)), nil
}

// SetGW2Guild points the guild-log sync at a GW2 guild.
func (s *AuditService) SetGW2Guild(ctx context.Context, guildID, nameOrID string) (string, error) {
	cleaned := strings.TrimSpace(nameOrID)
	if cleaned == "" {
		return "", fmt.Errorf("the guild name cannot be empty")
	}

	gw2GuildID := ""
	label := cleaned
	if looksLikeUUID(cleaned) {
		gw2GuildID = storage.NormalizeGuildID(cleaned)
		if info, err := s.api.Guild(ctx, gw2GuildID); err == nil {
			label = info.Label()
		}
	} else {
		ids, err := s.api.SearchGuild(ctx, cleaned)
		if err != nil {
			return "", fmt.Errorf("guild search: %w", err)
		}
		if len(ids) == 0 {
			return fmt.Sprintf("No GW2 guild found matching **%s**.", cleaned), nil
		}
		gw2GuildID = storage.NormalizeGuildID(ids[0])
		if info, err := s.api.Guild(ctx, gw2GuildID); err == nil {
			label = info.Label()
		}
	}

	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	cfg.AuditGW2GuildID = gw2GuildID
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("Guild log auditing now tracks **%s**.", label), nil
}

// Query searches the captured Discord events by user id or name.
func (s *AuditService) Query(guildID, user string) (string, error) {
	audit, err := s.store.AuditStore(guildID)
	if err != nil {
		return "", err
	}
	events, err := audit.QueryDiscordEvents(strings.TrimSpace(user), auditQueryLimit)
	if err != nil {
		return "", err
	}
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		who := event.UserName
		if who == "" {
			who = event.UserID
		}
		rows = append(rows, []string{
			shortTimestamp(event.CreatedAt), event.EventType, who, TruncateText(event.Details, 60),
		})
	}
	return FormatTable([]string{"When", "Event", "User", "Details"}, rows, "No matching Discord events.", true), nil
}

// GW2Query searches the synced guild-log events by account name.
func (s *AuditService) GW2Query(guildID, user string) (string, error) {
	audit, err := s.store.AuditStore(guildID)
	if err != nil {
		return "", err
	}
	events, err := audit.QueryGW2Events(strings.TrimSpace(user), auditQueryLimit)
	if err != nil {
		return "", err
	}
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, []string{
			shortTimestamp(event.CreatedAt), event.EventType, event.User, TruncateText(event.Details, 60),
		})
	}
	return FormatTable([]string{"When", "Event", "Account", "Details"}, rows, "No matching guild log events.", true), nil
}

// RecordDiscordEvent persists a platform event and, when an audit
// channel is configured, announces it there.
func (s *AuditService) RecordDiscordEvent(guildID string, event storage.DiscordEvent) {
	if event.CreatedAt == "" {
		event.CreatedAt = storage.UTCNow()
	}
	audit, err := s.store.AuditStore(guildID)
	if err != nil {
		s.log.Error("audit: open store", "guild", guildID, "err", err)
		return
	}
	if err := audit.AddDiscordEvent(event); err != nil {
		s.log.Error("audit: record event", "guild", guildID, "type", event.EventType, "err", err)
		return
	}

	cfg, err := s.store.GetConfig(guildID)
	if err != nil || cfg.AuditChannelID == "" {
		return
	}
	if _, err := s.notifier.SendEmbed(string(cfg.AuditChannelID), auditEventEmbed(event)); err != nil {
		s.log.Warn("audit: post event", "guild", guildID, "err", err)
	}
}

// Run syncs the GW2 guild log for every configured guild once per
// interval.
func (s *AuditService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncAll(ctx)
		}
	}
}

func (s *AuditService) syncAll(ctx context.Context) {
	for _, guildID := range s.store.GuildIDs() {
		if err := s.SyncGuildLog(ctx, guildID); err != nil {
			s.log.Warn("audit: guild log sync failed", "guild", guildID, "err", err)
		}
	}
}

// SyncGuildLog pulls guild-log entries newer than the stored watermark
// into the audit database.
func (s *AuditService) SyncGuildLog(ctx context.Context, guildID string) error {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return err
	}
	if cfg.AuditGW2GuildID == "" {
		return nil
	}
	key := s.syncKey(guildID, cfg)
	if key == "" {
		return nil
	}

	audit, err := s.store.AuditStore(guildID)
	if err != nil {
		return err
	}
	since, _, err := audit.GW2LastLogID()
	if err != nil {
		return err
	}

	entries, err := s.api.GuildLog(ctx, key, cfg.AuditGW2GuildID, since)
	if err != nil {
		return fmt.Errorf("fetch guild log: %w", err)
	}

	// Oldest first so the watermark only ever moves past stored rows.
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	maxID := since
	for _, entry := range entries {
		if entry.ID <= since {
			continue
		}
		event := storage.GW2Event{
			LogID:     entry.ID,
			CreatedAt: entry.Time,
			EventType: entry.Type,
			User:      entry.User,
			Details:   string(entry.Raw),
		}
		if event.CreatedAt == "" {
			event.CreatedAt = storage.UTCNow()
		}
		if err := audit.AddGW2Event(event); err != nil {
			if maxID > since {
				_ = audit.SetGW2LastLogID(maxID)
			}
			return err
		}
		maxID = entry.ID
	}
	if maxID > since {
		return audit.SetGW2LastLogID(maxID)
	}
	return nil
}

// syncKey prefers the stored named admin keys (alphabetical) and falls
// back to the config key.
func (s *AuditService) syncKey(guildID string, cfg storage.GuildConfig) string {
	keys, err := s.store.GetAuditGW2APIKeys(guildID)
	if err == nil && len(keys) > 0 {
		names := make([]string, 0, len(keys))
		for name := range keys {
			names = append(names, name)
		}
		sort.Strings(names)
		return keys[names[0]]
	}
	return cfg.AuditGW2AdminAPIKey
}

func auditEventEmbed(event storage.DiscordEvent) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: auditEventTitle(event.EventType),
		Color: BrandColor,
	}
	if event.CreatedAt != "" {
		embed.Timestamp = event.CreatedAt
	}
	if event.UserID != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "User", Value: fmt.Sprintf("<@%s> (%s)", event.UserID, event.UserName), Inline: true,
		})
	} else if event.UserName != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "User", Value: event.UserName, Inline: true,
		})
	}
	if event.Actor != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "By", Value: event.Actor, Inline: true,
		})
	}
	if event.Details != "" {
		embed.Description = TruncateText(event.Details, 2000)
	}
	return embed
}

func auditEventTitle(eventType string) string {
	switch eventType {
	case "member_join":
		return "Member joined"
	case "member_leave":
		return "Member left"
	case "member_ban":
		return "Member banned"
	case "member_unban":
		return "Member unbanned"
	case "message_delete":
		return "Message deleted"
	case "message_edit":
		return "Message edited"
	default:
		return "Audit event"
	}
}

func shortTimestamp(value string) string {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC().Format("2006-01-02 15:04")
	}
	return value
}
