package service

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

// SettingsService manages the per-guild knobs that do not belong to a
// single feature: moderator roles and the build channel.
type SettingsService struct {
	store *storage.Manager
	log   *slog.Logger
}

func NewSettingsService(store *storage.Manager, log *slog.Logger) *SettingsService {
	return &SettingsService{store: store, log: log}
}

// AddModeratorRole grants a Discord role access to management commands.
func (s *SettingsService) AddModeratorRole(guildID, roleID string) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	for _, existing := range cfg.ModeratorRoleIDs {
		if string(existing) == roleID {
			return fmt.Sprintf("<@&%s> is already a moderator role.", roleID), nil
		}
	}
	cfg.ModeratorRoleIDs = append(cfg.ModeratorRoleIDs, roleID)
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("<@&%s> can now use management commands.", roleID), nil
}

func (s *SettingsService) RemoveModeratorRole(guildID, roleID string) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	kept := cfg.ModeratorRoleIDs[:0]
	removed := false
	for _, existing := range cfg.ModeratorRoleIDs {
		if string(existing) == roleID {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return fmt.Sprintf("<@&%s> is not a moderator role.", roleID), nil
	}
	cfg.ModeratorRoleIDs = kept
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("<@&%s> can no longer use management commands.", roleID), nil
}

// SetBuildChannel points build posts at a channel.
func (s *SettingsService) SetBuildChannel(guildID, channelID string) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	cfg.BuildChannelID = storage.Snowflake(channelID)
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("Build posts will go to <#%s>.", channelID), nil
}

// Show summarises the guild configuration.
func (s *SettingsService) Show(guildID string) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}

	var moderators []string
	for _, roleID := range cfg.ModeratorRoleIDs {
		moderators = append(moderators, "<@&"+string(roleID)+">")
	}
	moderatorLine := "None (admins only)"
	if len(moderators) > 0 {
		moderatorLine = strings.Join(moderators, ", ")
	}

	lines := []string{
		"**Moderator roles:** " + moderatorLine,
		"**Build channel:** " + channelLabel(cfg.BuildChannelID),
		"**Audit channel:** " + channelLabel(cfg.AuditChannelID),
		"**ArcDPS channel:** " + channelLabel(cfg.ArcDpsChannelID),
		"**Update-notes channel:** " + channelLabel(cfg.UpdateNotesChannelID),
		"**WvW matchup channel:** " + channelLabel(cfg.AllianceChannelID),
		"**Comp channel:** " + channelLabel(cfg.Comp.ChannelID),
	}
	return strings.Join(lines, "\n"), nil
}

func channelLabel(id storage.Snowflake) string {
	if id == "" {
		return "Not configured"
	}
	return "<#" + string(id) + ">"
}
