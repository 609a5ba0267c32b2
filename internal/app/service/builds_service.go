package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gw2tools/gw2-tools-bot/internal/gw2"
	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a build id from its name.
func Slugify(value string) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(value), "-"), "-")
	if slug == "" {
		return "build"
	}
	return slug
}

type BuildsService struct {
	store    *storage.Manager
	notifier Notifier
	log      *slog.Logger
}

func NewBuildsService(store *storage.Manager, notifier Notifier, log *slog.Logger) *BuildsService {
	return &BuildsService{store: store, notifier: notifier, log: log}
}

// BuildInput is the user-supplied payload for add/edit.
type BuildInput struct {
	Name        string
	Class       string
	URL         string
	ChatCode    string
	Description string
}

func (s *BuildsService) Add(ctx context.Context, guildID, userID string, input BuildInput) (string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", fmt.Errorf("the build needs a name")
	}
	chatCode := strings.TrimSpace(input.ChatCode)
	if chatCode == "" {
		return "", fmt.Errorf("the build needs a chat code")
	}
	profession, specialization, err := resolveClassSelection(input.Class)
	if err != nil {
		return "", err
	}

	buildID := Slugify(name)
	if _, err := s.store.FindBuild(guildID, buildID); err == nil {
		return "", fmt.Errorf("a build named **%s** already exists (id `%s`)", name, buildID)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}

	now := storage.UTCNow()
	record := storage.BuildRecord{
		BuildID:        buildID,
		Name:           name,
		Profession:     profession,
		Specialization: specialization,
		URL:            strings.TrimSpace(input.URL),
		ChatCode:       chatCode,
		Description:    strings.TrimSpace(input.Description),
		CreatedBy:      storage.Snowflake(userID),
		CreatedAt:      now,
		UpdatedBy:      storage.Snowflake(userID),
		UpdatedAt:      now,
	}

	if err := s.publish(guildID, &record, userID); err != nil {
		s.log.Warn("build post failed", "guild", guildID, "build", buildID, "err", err)
	}
	if err := s.store.UpsertBuild(guildID, record); err != nil {
		return "", err
	}
	return fmt.Sprintf("Added build **%s** (`%s`).", name, buildID), nil
}

func (s *BuildsService) Edit(ctx context.Context, guildID, userID, buildID string, input BuildInput) (string, error) {
	record, err := s.store.FindBuild(guildID, buildID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Sprintf("No build with id `%s`.", buildID), nil
	}
	if err != nil {
		return "", err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		candidate := Slugify(name)
		if candidate != record.BuildID {
			if _, err := s.store.FindBuild(guildID, candidate); err == nil {
				return "", fmt.Errorf("renaming would collide with existing build `%s`", candidate)
			} else if !errors.Is(err, storage.ErrNotFound) {
				return "", err
			}
			// The slug is the stable key, so a rename is delete+insert.
			if _, err := s.store.DeleteBuild(guildID, record.BuildID); err != nil {
				return "", err
			}
			record.BuildID = candidate
		}
		record.Name = name
	}
	if input.Class != "" {
		profession, specialization, err := resolveClassSelection(input.Class)
		if err != nil {
			return "", err
		}
		record.Profession = profession
		record.Specialization = specialization
	}
	if input.URL != "" {
		record.URL = strings.TrimSpace(input.URL)
	}
	if input.ChatCode != "" {
		record.ChatCode = strings.TrimSpace(input.ChatCode)
	}
	if input.Description != "" {
		record.Description = strings.TrimSpace(input.Description)
	}
	record.UpdatedBy = storage.Snowflake(userID)
	record.UpdatedAt = storage.UTCNow()

	if err := s.publish(guildID, &record, userID); err != nil {
		s.log.Warn("build post update failed", "guild", guildID, "build", record.BuildID, "err", err)
	}
	if err := s.store.UpsertBuild(guildID, record); err != nil {
		return "", err
	}
	return fmt.Sprintf("Updated build **%s** (`%s`).", record.Name, record.BuildID), nil
}

func (s *BuildsService) Delete(ctx context.Context, guildID, buildID string) (string, error) {
	record, err := s.store.FindBuild(guildID, buildID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Sprintf("No build with id `%s`.", buildID), nil
	}
	if err != nil {
		return "", err
	}

	if record.ThreadID != "" {
		if err := s.notifier.DeleteChannel(string(record.ThreadID)); err != nil {
			s.log.Warn("build thread delete failed", "guild", guildID, "build", buildID, "err", err)
		}
	} else if record.MessageID != "" && record.ChannelID != "" {
		if err := s.notifier.DeleteMessage(string(record.ChannelID), string(record.MessageID)); err != nil {
			s.log.Warn("build post delete failed", "guild", guildID, "build", buildID, "err", err)
		}
	}
	if _, err := s.store.DeleteBuild(guildID, buildID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted build **%s**.", record.Name), nil
}

func (s *BuildsService) List(ctx context.Context, guildID string) (string, error) {
	builds, err := s.store.GetBuilds(guildID)
	if err != nil {
		return "", err
	}
	rows := make([][]string, 0, len(builds))
	for _, build := range builds {
		class := build.Profession
		if build.Specialization != "" {
			class = build.Specialization
		}
		rows = append(rows, []string{build.BuildID, build.Name, class})
	}
	return FormatTable([]string{"ID", "Name", "Class"}, rows, "No builds stored.", true), nil
}

// publish posts or edits the build embed in the configured channel and
// records the message location on the record.
func (s *BuildsService) publish(guildID string, record *storage.BuildRecord, userID string) error {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return err
	}
	if cfg.BuildChannelID == "" {
		return nil
	}

	embed := BuildEmbed(*record, fmt.Sprintf("<@%s>", userID))
	channelID := string(cfg.BuildChannelID)

	if record.MessageID != "" && string(record.ChannelID) == channelID {
		// Forum builds live in their own thread; the starter message
		// shares the thread's ID.
		target := channelID
		if record.ThreadID != "" {
			target = string(record.ThreadID)
		}
		if err := s.notifier.EditEmbed(target, string(record.MessageID), embed); err == nil {
			return nil
		}
		// Fall through and repost when the old message is gone.
	}

	if s.notifier.IsForumChannel(channelID) {
		threadID, err := s.notifier.CreateForumPost(channelID, record.Name, embed)
		if err != nil {
			return err
		}
		record.MessageID = storage.Snowflake(threadID)
		record.ChannelID = storage.Snowflake(channelID)
		record.ThreadID = storage.Snowflake(threadID)
		return nil
	}

	messageID, err := s.notifier.SendEmbed(channelID, embed)
	if err != nil {
		return err
	}
	record.MessageID = storage.Snowflake(messageID)
	record.ChannelID = storage.Snowflake(channelID)
	record.ThreadID = ""
	return nil
}

// BuildEmbed renders a build the way the build channel shows it.
func BuildEmbed(record storage.BuildRecord, updatedBy string) *discordgo.MessageEmbed {
	color := BrandColor
	if profession, err := gw2.ResolveClass(record.Profession); err == nil {
		color = profession.Color
	}

	embed := &discordgo.MessageEmbed{
		Title: record.Name,
		Color: color,
		Author: &discordgo.MessageEmbedAuthor{
			Name: classDisplayLine(record.Profession, record.Specialization),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if record.URL != "" {
		domain := "Link"
		if parsed, err := url.Parse(record.URL); err == nil && parsed.Host != "" {
			domain = parsed.Host
		}
		embed.Description = fmt.Sprintf("[%s - %s](%s)", domain, record.Name, record.URL)
	}

	description := record.Description
	if description == "" {
		description = "No description provided."
	}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Chat Code", Value: "```" + record.ChatCode + "```"},
		{Name: "Description", Value: description},
		{Name: "Updated By", Value: updatedBy, Inline: true},
		{Name: "Updated On", Value: formatDiscordTime(record.UpdatedAt), Inline: true},
	}
	return embed
}

func classDisplayLine(profession, specialization string) string {
	if specialization != "" {
		return fmt.Sprintf("%s (%s)", specialization, profession)
	}
	return profession
}

// resolveClassSelection splits a class choice into (profession,
// specialization); base professions have an empty specialization.
func resolveClassSelection(selection string) (string, string, error) {
	display := gw2.ClassDisplay(selection)
	if _, ok := gw2.Professions[display]; ok {
		return display, "", nil
	}
	if spec, ok := gw2.Specializations[display]; ok {
		return spec.Profession, spec.Name, nil
	}
	return "", "", fmt.Errorf("unknown profession or specialization %q", selection)
}

func formatDiscordTime(value string) string {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return fmt.Sprintf("<t:%d:R>", parsed.Unix())
}
