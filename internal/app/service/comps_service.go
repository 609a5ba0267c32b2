package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gw2tools/gw2-tools-bot/internal/gw2"
	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

var weekdayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

type CompsService struct {
	store    *storage.Manager
	notifier Notifier
	log      *slog.Logger
}

func NewCompsService(store *storage.Manager, notifier Notifier, log *slog.Logger) *CompsService {
	return &CompsService{store: store, notifier: notifier, log: log}
}

func (s *CompsService) SetChannel(guildID, channelID string) (string, error) {
	return s.updateConfig(guildID, func(comp *storage.CompConfig) string {
		comp.ChannelID = storage.Snowflake(channelID)
		return fmt.Sprintf("Composition posts will go to <#%s>.", channelID)
	})
}

// SetSchedule stores day/time/timezone. day uses 0=Monday..6=Sunday.
func (s *CompsService) SetSchedule(guildID string, day int, postTime, timezone string) (string, error) {
	if day < 0 || day > 6 {
		return "", fmt.Errorf("day must be between 0 (Monday) and 6 (Sunday)")
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(postTime)); err != nil {
		return "", fmt.Errorf("time must look like HH:MM (24h)")
	}
	return s.updateConfig(guildID, func(comp *storage.CompConfig) string {
		d := day
		comp.PostDay = &d
		comp.PostTime = strings.TrimSpace(postTime)
		comp.Timezone = storage.NormalizeTimezone(timezone)
		return fmt.Sprintf("Composition post scheduled for **%s %s** (%s).",
			weekdayNames[day], comp.PostTime, comp.Timezone)
	})
}

func (s *CompsService) SetOverview(guildID, overview string) (string, error) {
	return s.updateConfig(guildID, func(comp *storage.CompConfig) string {
		comp.Overview = strings.TrimSpace(overview)
		return "Composition overview updated."
	})
}

// SetClasses parses "Firebrand:2, Scourge:4" style definitions.
// Replacing the class list preserves signups for classes that remain.
func (s *CompsService) SetClasses(guildID, definition string) (string, error) {
	classes, err := ParseClassDefinition(definition)
	if err != nil {
		return "", err
	}
	return s.updateConfig(guildID, func(comp *storage.CompConfig) string {
		comp.Classes = classes
		names := make([]string, 0, len(classes))
		for _, class := range classes {
			names = append(names, fmt.Sprintf("%s ×%d", class.Name, class.Count))
		}
		return "Composition classes set: " + strings.Join(names, ", ")
	})
}

// SavePreset stores the current class list under a name for later
// reuse.
func (s *CompsService) SavePreset(guildID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("the preset needs a name")
	}
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	if len(cfg.Comp.Classes) == 0 {
		return "Define the composition classes first with `/comp classes`.", nil
	}
	classes := make([]storage.CompClassConfig, len(cfg.Comp.Classes))
	copy(classes, cfg.Comp.Classes)
	if err := s.store.UpsertCompPreset(guildID, storage.CompPreset{Name: name, Classes: classes}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Saved the current classes as preset **%s**.", name), nil
}

// UsePreset replaces the composition classes with a stored preset.
// Signups for classes that remain are preserved.
func (s *CompsService) UsePreset(guildID, name string) (string, error) {
	preset, err := s.store.FindCompPreset(guildID, name)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Sprintf("No preset named **%s**.", name), nil
	}
	if err != nil {
		return "", err
	}
	return s.updateConfig(guildID, func(comp *storage.CompConfig) string {
		comp.Classes = preset.Classes
		names := make([]string, 0, len(preset.Classes))
		for _, class := range preset.Classes {
			names = append(names, fmt.Sprintf("%s ×%d", class.Name, class.Count))
		}
		return fmt.Sprintf("Applied preset **%s**: %s", preset.Name, strings.Join(names, ", "))
	})
}

// ListPresets renders the stored presets as an aligned table.
func (s *CompsService) ListPresets(guildID string) (string, error) {
	presets, err := s.store.GetCompPresets(guildID)
	if err != nil {
		return "", err
	}
	rows := make([][]string, 0, len(presets))
	for _, preset := range presets {
		names := make([]string, 0, len(preset.Classes))
		for _, class := range preset.Classes {
			names = append(names, fmt.Sprintf("%s ×%d", class.Name, class.Count))
		}
		rows = append(rows, []string{preset.Name, strings.Join(names, ", ")})
	}
	return FormatTable([]string{"Preset", "Classes"}, rows, "No presets stored. Save one with `/comp savepreset`.", true), nil
}

func (s *CompsService) DeletePreset(guildID, name string) (string, error) {
	deleted, err := s.store.DeleteCompPreset(guildID, name)
	if err != nil {
		return "", err
	}
	if !deleted {
		return fmt.Sprintf("No preset named **%s**.", name), nil
	}
	return fmt.Sprintf("Deleted preset **%s**.", name), nil
}

// Signup toggles the user onto a class, removing them from any other
// class first (one slot per member).
func (s *CompsService) Signup(guildID, userID, className string) (string, error) {
	display := gw2.ClassDisplay(className)
	return s.updateConfig(guildID, func(comp *storage.CompConfig) string {
		if _, ok := comp.Signups[display]; !ok {
			return fmt.Sprintf("**%s** is not part of the current composition.", display)
		}
		already := false
		for name, users := range comp.Signups {
			filtered := users[:0]
			for _, id := range users {
				if id == userID {
					if name == display {
						already = true
					}
					continue
				}
				filtered = append(filtered, id)
			}
			comp.Signups[name] = filtered
		}
		if already {
			return fmt.Sprintf("You are no longer signed up for **%s**.", display)
		}
		comp.Signups[display] = append(comp.Signups[display], userID)
		return fmt.Sprintf("Signed up for **%s**.", display)
	})
}

func (s *CompsService) Withdraw(guildID, userID string) (string, error) {
	return s.updateConfig(guildID, func(comp *storage.CompConfig) string {
		removed := false
		for name, users := range comp.Signups {
			filtered := users[:0]
			for _, id := range users {
				if id == userID {
					removed = true
					continue
				}
				filtered = append(filtered, id)
			}
			comp.Signups[name] = filtered
		}
		if !removed {
			return "You were not signed up."
		}
		return "Withdrawn from the composition."
	})
}

// Post publishes (or refreshes) the composition message immediately.
func (s *CompsService) Post(ctx context.Context, guildID string, resetSignups bool) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	comp := &cfg.Comp
	if comp.ChannelID == "" {
		return "Set a composition channel first with `/comp channel`.", nil
	}
	if len(comp.Classes) == 0 {
		return "Define the composition classes first with `/comp classes`.", nil
	}

	if resetSignups {
		comp.Signups = make(map[string][]string, len(comp.Classes))
		for _, class := range comp.Classes {
			comp.Signups[class.Name] = []string{}
		}
	}

	embed := CompEmbed(*comp)
	channelID := string(comp.ChannelID)
	posted := false
	if comp.LastMessageID != "" {
		if err := s.notifier.EditEmbed(channelID, string(comp.LastMessageID), embed); err == nil {
			posted = true
		}
	}
	if !posted {
		messageID, err := s.notifier.SendEmbed(channelID, embed)
		if err != nil {
			return "", fmt.Errorf("post composition: %w", err)
		}
		comp.LastMessageID = storage.Snowflake(messageID)
	}
	comp.LastPostAt = storage.UTCNow()

	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("Composition posted to <#%s>.", channelID), nil
}

// RunPoster fires scheduled composition posts once a minute.
func (s *CompsService) RunPoster(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.postDue(ctx)
		}
	}
}

func (s *CompsService) postDue(ctx context.Context) {
	for _, guildID := range s.store.GuildIDs() {
		cfg, err := s.store.GetConfig(guildID)
		if err != nil {
			s.log.Error("comp poster: load config", "guild", guildID, "err", err)
			continue
		}
		if !CompDue(cfg.Comp, time.Now()) {
			continue
		}
		if _, err := s.Post(ctx, guildID, true); err != nil {
			s.log.Warn("comp poster: post failed", "guild", guildID, "err", err)
		}
	}
}

// CompDue reports whether the scheduled post should fire: now (in the
// configured timezone) matches the day and HH:MM, and the last post
// did not already cover this local date.
func CompDue(comp storage.CompConfig, now time.Time) bool {
	if comp.ChannelID == "" || comp.PostDay == nil || comp.PostTime == "" || len(comp.Classes) == 0 {
		return false
	}
	loc, err := time.LoadLocation(comp.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	if weekdayIndex(local.Weekday()) != *comp.PostDay {
		return false
	}
	target, err := time.Parse("15:04", comp.PostTime)
	if err != nil {
		return false
	}
	if local.Hour() != target.Hour() || local.Minute() != target.Minute() {
		return false
	}
	if comp.LastPostAt != "" {
		if last, err := time.Parse(time.RFC3339, comp.LastPostAt); err == nil {
			lastLocal := last.In(loc)
			if lastLocal.Year() == local.Year() && lastLocal.YearDay() == local.YearDay() {
				return false
			}
		}
	}
	return true
}

// weekdayIndex maps Go's Sunday-based weekday onto the stored
// 0=Monday..6=Sunday convention.
func weekdayIndex(day time.Weekday) int {
	return (int(day) + 6) % 7
}

// CompEmbed renders the weekly composition with one field per class.
func CompEmbed(comp storage.CompConfig) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Weekly Composition",
		Color: BrandColor,
	}
	if comp.Overview != "" {
		embed.Description = comp.Overview
	}
	for _, class := range comp.Classes {
		signups := comp.Signups[class.Name]
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%s (%d/%d)", class.Name, len(signups), class.Count),
			Value:  FormatSignups(signups),
			Inline: true,
		})
	}
	return embed
}

// FormatSignups lists up to 15 mentions, with an overflow note.
func FormatSignups(userIDs []string) string {
	if len(userIDs) == 0 {
		return "​"
	}
	var lines []string
	for i, id := range userIDs {
		if i >= 15 {
			lines = append(lines, fmt.Sprintf("…and %d more", len(userIDs)-i))
			break
		}
		lines = append(lines, "• <@"+id+">")
	}
	return strings.Join(lines, "\n")
}

// ParseClassDefinition accepts comma-separated "Class:count" entries,
// validating each class against the static lookup.
func ParseClassDefinition(definition string) ([]storage.CompClassConfig, error) {
	var classes []storage.CompClassConfig
	seen := map[string]bool{}
	for _, part := range strings.Split(definition, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, countValue, hasCount := strings.Cut(part, ":")
		name = gw2.ClassDisplay(name)
		if _, err := gw2.ResolveClass(name); err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("class %s listed twice", name)
		}
		seen[name] = true

		count := 1
		if hasCount {
			parsed, err := strconv.Atoi(strings.TrimSpace(countValue))
			if err != nil || parsed < 1 {
				return nil, fmt.Errorf("invalid count for %s", name)
			}
			count = parsed
		}
		classes = append(classes, storage.CompClassConfig{Name: name, Count: count})
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("no classes given; use e.g. `Firebrand:2, Scourge:4`")
	}
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (s *CompsService) updateConfig(guildID string, mutate func(*storage.CompConfig) string) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	msg := mutate(&cfg.Comp)
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return msg, nil
}
