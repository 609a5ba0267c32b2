package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gw2tools/gw2-tools-bot/internal/arcdps"
	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

// ReleaseSource is implemented by internal/arcdps.Client.
type ReleaseSource interface {
	LatestReleaseTime(ctx context.Context) (time.Time, error)
	LatestChanges(ctx context.Context) (string, []string, error)
	ReleaseURL() string
}

type ArcDpsService struct {
	store      *storage.Manager
	source     ReleaseSource
	notifier   Notifier
	production bool
	log        *slog.Logger
}

func NewArcDpsService(store *storage.Manager, source ReleaseSource, notifier Notifier, production bool, log *slog.Logger) *ArcDpsService {
	return &ArcDpsService{store: store, source: source, notifier: notifier, production: production, log: log}
}

func (s *ArcDpsService) SetChannel(guildID, channelID string) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	cfg.ArcDpsChannelID = storage.Snowflake(channelID)
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("ArcDPS release notices will be posted to <#%s>.", channelID), nil
}

// Run polls the release listing on the given interval.
func (s *ArcDpsService) Run(ctx context.Context, interval time.Duration) {
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

func (s *ArcDpsService) poll(ctx context.Context) {
	latest, err := s.source.LatestReleaseTime(ctx)
	if err != nil {
		s.log.Warn("arcdps poll failed", "err", err)
		return
	}

	var changesDate string
	var changes []string
	changesFetched := false

	for _, guildID := range s.store.GuildIDs() {
		cfg, err := s.store.GetConfig(guildID)
		if err != nil {
			s.log.Error("arcdps: load config", "guild", guildID, "err", err)
			continue
		}
		if cfg.ArcDpsChannelID == "" {
			continue
		}

		now := storage.UTCNow()
		status, found, err := s.store.GetArcDpsStatus(guildID)
		if err != nil {
			s.log.Error("arcdps: load status", "guild", guildID, "err", err)
			continue
		}
		if !found {
			// First observation seeds the watermark without posting.
			_ = s.store.SaveArcDpsStatus(guildID, storage.ArcDpsStatus{
				LastCheckedAt: now,
				LastUpdatedAt: latest.Format(time.RFC3339),
			})
			continue
		}

		if stored, err := time.Parse(time.RFC3339, status.LastUpdatedAt); err == nil && !latest.After(stored) {
			_ = s.store.SaveArcDpsStatus(guildID, storage.ArcDpsStatus{
				LastCheckedAt: now,
				LastUpdatedAt: status.LastUpdatedAt,
			})
			continue
		}

		if !changesFetched {
			changesDate, changes, err = s.source.LatestChanges(ctx)
			if err != nil {
				s.log.Debug("arcdps changelog fetch failed", "err", err)
			}
			changesFetched = true
		}

		embed := ArcDpsEmbed(latest, changesDate, changes, s.source.ReleaseURL())
		if _, err := s.notifier.SendEmbed(string(cfg.ArcDpsChannelID), embed); err != nil {
			s.log.Warn("arcdps post failed", "guild", guildID, "err", err)
			_ = s.store.SaveArcDpsStatus(guildID, storage.ArcDpsStatus{
				LastCheckedAt: now,
				LastUpdatedAt: status.LastUpdatedAt,
			})
			continue
		}
		_ = s.store.SaveArcDpsStatus(guildID, storage.ArcDpsStatus{
			LastCheckedAt: now,
			LastUpdatedAt: latest.Format(time.RFC3339),
		})
	}
}

// Force sends a notification right away. Refused in production.
func (s *ArcDpsService) Force(ctx context.Context, guildID string) (string, error) {
	if s.production {
		return "Test notifications are disabled in production.", nil
	}
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	if cfg.ArcDpsChannelID == "" {
		return "ArcDPS notifications are disabled for this server.", nil
	}
	changesDate, changes, err := s.source.LatestChanges(ctx)
	if err != nil {
		s.log.Debug("arcdps changelog fetch failed", "err", err)
	}
	now := time.Now().UTC()
	embed := ArcDpsEmbed(now, changesDate, changes, s.source.ReleaseURL())
	if _, err := s.notifier.SendEmbed(string(cfg.ArcDpsChannelID), embed); err != nil {
		return "", fmt.Errorf("send notification: %w", err)
	}
	_ = s.store.SaveArcDpsStatus(guildID, storage.ArcDpsStatus{
		LastCheckedAt: storage.UTCNow(),
		LastUpdatedAt: now.Format(time.RFC3339),
	})
	return fmt.Sprintf("Sent a test ArcDPS notification to <#%s>.", cfg.ArcDpsChannelID), nil
}

// ArcDpsEmbed renders an update notice with the latest changelog
// bullets, keeping the description under the 4096 embed cap.
func ArcDpsEmbed(releaseTime time.Time, changesDate string, changes []string, releaseURL string) *discordgo.MessageEmbed {
	unix := releaseTime.Unix()
	embed := &discordgo.MessageEmbed{
		Title: "ArcDPS Update",
		URL:   releaseURL,
		Color: BrandColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Updated", Value: fmt.Sprintf("<t:%d:R>", unix), Inline: true},
			{Name: "Release time", Value: fmt.Sprintf("<t:%d:F>", unix), Inline: true},
			{Name: "Download", Value: fmt.Sprintf("[Get the latest build](%s)", releaseURL)},
		},
	}

	if len(changes) > 0 {
		header := "Latest Changes"
		if formatted := arcdps.FormatDate(changesDate); formatted != "" {
			header = "Changes for " + formatted
		}
		lines := []string{"**" + header + "**"}
		length := len(header) + 5
		for _, change := range changes {
			cleaned := strings.TrimSpace(change)
			if cleaned == "" {
				continue
			}
			bullet := "• " + cleaned
			if length+len(bullet)+1 > 4096 {
				lines = append(lines, "• …")
				break
			}
			lines = append(lines, bullet)
			length += len(bullet) + 1
		}
		embed.Description = strings.Join(lines, "\n")
	}
	return embed
}
