package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gw2tools/gw2-tools-bot/internal/gw2"
	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
	"github.com/gw2tools/gw2-tools-bot/internal/sheets"
)

// Matchup posts are scheduled against WvW reset time, which follows
// US Pacific.
const allianceTimezone = "America/Los_Angeles"

var (
	naMatchIDs = []string{"1-1", "1-2", "1-3", "1-4"}

	defaultPredictionTime = "09:00"
	defaultResetTime      = "19:30"
	defaultPostDay        = 4 // Friday

	colorEmoji = map[string]string{"green": "🟢", "blue": "🔵", "red": "🔴"}
)

// MatchTeam is one side of a WvW matchup.
type MatchTeam struct {
	Color         string
	WorldIDs      []int
	VictoryPoints int
}

// TierPrediction is the projected set of teams for one tier after the
// current matches resolve.
type TierPrediction struct {
	Tier  int
	Teams []MatchTeam
}

// RosterSource is implemented by internal/sheets.Client.
type RosterSource interface {
	Roster(ctx context.Context, tab string) (sheets.Roster, error)
}

type AllianceService struct {
	store    *storage.Manager
	api      GW2API
	rosters  RosterSource
	notifier Notifier
	log      *slog.Logger

	worldCache   map[string]int
	worldCacheAt time.Time
}

func NewAllianceService(store *storage.Manager, api GW2API, rosters RosterSource, notifier Notifier, log *slog.Logger) *AllianceService {
	return &AllianceService{store: store, api: api, rosters: rosters, notifier: notifier, log: log}
}

// SetGuild resolves an alliance guild by name, finds its WvW world and
// stores both on the config.
func (s *AllianceService) SetGuild(ctx context.Context, guildID, name string) (string, error) {
	cleaned := strings.TrimSpace(name)
	if cleaned == "" {
		return "", fmt.Errorf("the guild name cannot be empty")
	}

	ids, err := s.api.SearchGuild(ctx, cleaned)
	if err != nil {
		return "", fmt.Errorf("guild search: %w", err)
	}
	if len(ids) == 0 {
		return fmt.Sprintf("No GW2 guild found matching **%s**.", cleaned), nil
	}

	// Prefer an exact case-insensitive name match among candidates.
	var chosenID string
	var chosen *gw2.GuildInfo
	for _, id := range ids {
		info, err := s.api.Guild(ctx, id)
		if err != nil {
			continue
		}
		if strings.EqualFold(info.Name, cleaned) {
			chosenID, chosen = storage.NormalizeGuildID(id), info
			break
		}
		if chosenID == "" {
			chosenID, chosen = storage.NormalizeGuildID(id), info
		}
	}
	if chosenID == "" {
		chosenID = storage.NormalizeGuildID(ids[0])
	}

	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	cfg.AllianceGuildID = chosenID
	if chosen != nil {
		cfg.AllianceGuildName = chosen.Label()
	} else {
		cfg.AllianceGuildName = cleaned
	}

	worldID, ok := s.guildWorld(ctx, chosenID)
	if ok {
		cfg.AllianceServerID = worldID
		cfg.AllianceServerName = gw2.WorldName(worldID)
	}
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}

	if !ok {
		return fmt.Sprintf("Tracking **%s**, but it has no WvW world assignment yet.", cfg.AllianceGuildName), nil
	}
	return fmt.Sprintf("Tracking **%s** on **%s**.", cfg.AllianceGuildName, cfg.AllianceServerName), nil
}

func (s *AllianceService) SetChannel(guildID, channelID string) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	cfg.AllianceChannelID = storage.Snowflake(channelID)
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("WvW matchup posts will go to <#%s>.", channelID), nil
}

// SetTimes stores prediction and current-matchup post schedules
// (0=Monday..6=Sunday, HH:MM Pacific).
func (s *AllianceService) SetTimes(guildID string, predictionDay int, predictionTime string, currentDay int, currentTime string) (string, error) {
	for _, day := range []int{predictionDay, currentDay} {
		if day < 0 || day > 6 {
			return "", fmt.Errorf("day must be between 0 (Monday) and 6 (Sunday)")
		}
	}
	for _, value := range []string{predictionTime, currentTime} {
		if _, err := time.Parse("15:04", strings.TrimSpace(value)); err != nil {
			return "", fmt.Errorf("time must look like HH:MM (24h)")
		}
	}
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	pd, cd := predictionDay, currentDay
	cfg.AlliancePredictionDay = &pd
	cfg.AllianceCurrentDay = &cd
	cfg.AlliancePredictionTime = strings.TrimSpace(predictionTime)
	cfg.AllianceCurrentTime = strings.TrimSpace(currentTime)
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("Prediction post: **%s %s** PST. Current matchup post: **%s %s** PST.",
		weekdayNames[predictionDay], cfg.AlliancePredictionTime,
		weekdayNames[currentDay], cfg.AllianceCurrentTime), nil
}

func (s *AllianceService) Status(guildID string) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	guildLabel := cfg.AllianceGuildName
	if guildLabel == "" {
		guildLabel = "Not configured"
	}
	channelLabel := "Not configured"
	if cfg.AllianceChannelID != "" {
		channelLabel = "<#" + string(cfg.AllianceChannelID) + ">"
	}
	worldLabel := "Unknown"
	if cfg.AllianceServerID != 0 {
		worldLabel = gw2.WorldName(cfg.AllianceServerID)
	}
	lines := []string{
		"**Guild:** " + guildLabel,
		"**Channel:** " + channelLabel,
		"**WvW world:** " + worldLabel,
		fmt.Sprintf("**Prediction post (PST):** %s %s",
			weekdayNames[resolveDay(cfg.AlliancePredictionDay)], resolveClock(cfg.AlliancePredictionTime, defaultPredictionTime)),
		fmt.Sprintf("**Current post (PST):** %s %s",
			weekdayNames[resolveDay(cfg.AllianceCurrentDay)], resolveClock(cfg.AllianceCurrentTime, defaultResetTime)),
	}
	return strings.Join(lines, "\n"), nil
}

// PostNow publishes a matchup immediately.
func (s *AllianceService) PostNow(ctx context.Context, guildID string, prediction bool) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	if cfg.AllianceChannelID == "" || cfg.AllianceGuildID == "" {
		return "Configure the alliance guild and channel first (`/wvw setguild`, `/wvw setchannel`).", nil
	}
	if err := s.postMatchup(ctx, guildID, &cfg, prediction); err != nil {
		return "", err
	}
	kind := "current matchup"
	if prediction {
		kind = "matchup prediction"
	}
	return fmt.Sprintf("Posted the %s to <#%s>.", kind, cfg.AllianceChannelID), nil
}

// Run drives the scheduled prediction and current-matchup posts.
func (s *AllianceService) Run(ctx context.Context, interval time.Duration) {
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

func (s *AllianceService) postDue(ctx context.Context) {
	loc, err := time.LoadLocation(allianceTimezone)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)

	for _, guildID := range s.store.GuildIDs() {
		cfg, err := s.store.GetConfig(guildID)
		if err != nil {
			s.log.Error("alliance poster: load config", "guild", guildID, "err", err)
			continue
		}
		if cfg.AllianceChannelID == "" || cfg.AllianceGuildID == "" {
			continue
		}

		if predictionDueNow(cfg, now) {
			if err := s.postMatchup(ctx, guildID, &cfg, true); err != nil {
				s.log.Warn("alliance poster: prediction failed", "guild", guildID, "err", err)
			}
		}
		if currentDueNow(cfg, now) {
			if err := s.postMatchup(ctx, guildID, &cfg, false); err != nil {
				s.log.Warn("alliance poster: current failed", "guild", guildID, "err", err)
			}
		}
	}
}

// predictionDueNow mirrors the schedule rule: on the prediction day
// past the prediction time, except when both posts share a day, where
// the prediction window closes at the reset time.
func predictionDueNow(cfg storage.GuildConfig, now time.Time) bool {
	predictionDay := resolveDay(cfg.AlliancePredictionDay)
	currentDay := resolveDay(cfg.AllianceCurrentDay)
	predictionTime := resolveClock(cfg.AlliancePredictionTime, defaultPredictionTime)
	currentTime := resolveClock(cfg.AllianceCurrentTime, defaultResetTime)

	if weekdayIndex(now.Weekday()) != predictionDay {
		return false
	}
	if !clockReached(now, predictionTime) {
		return false
	}
	if predictionDay == currentDay && clockReached(now, currentTime) {
		return false
	}
	return !postedToday(cfg.AllianceLastPredictionAt, now)
}

func currentDueNow(cfg storage.GuildConfig, now time.Time) bool {
	currentDay := resolveDay(cfg.AllianceCurrentDay)
	currentTime := resolveClock(cfg.AllianceCurrentTime, defaultResetTime)
	if weekdayIndex(now.Weekday()) != currentDay {
		return false
	}
	if !clockReached(now, currentTime) {
		return false
	}
	return !postedToday(cfg.AllianceLastActualAt, now)
}

func postedToday(timestamp string, now time.Time) bool {
	if timestamp == "" {
		return false
	}
	parsed, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return false
	}
	local := parsed.In(now.Location())
	return local.Year() == now.Year() && local.YearDay() == now.YearDay()
}

func clockReached(now time.Time, clock string) bool {
	target, err := time.Parse("15:04", clock)
	if err != nil {
		return false
	}
	return now.Hour()*60+now.Minute() >= target.Hour()*60+target.Minute()
}

func resolveDay(value *int) int {
	if value == nil {
		return defaultPostDay
	}
	return *value
}

func resolveClock(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (s *AllianceService) postMatchup(ctx context.Context, guildID string, cfg *storage.GuildConfig, prediction bool) error {
	worldID := cfg.AllianceServerID
	if worldID == 0 {
		id, ok := s.guildWorld(ctx, cfg.AllianceGuildID)
		if !ok {
			return fmt.Errorf("no WvW world known for guild %s", cfg.AllianceGuildID)
		}
		worldID = id
		cfg.AllianceServerID = id
		cfg.AllianceServerName = gw2.WorldName(id)
	}

	var tier int
	var teams []MatchTeam
	var title string
	if prediction {
		matches, err := s.api.Matches(ctx, naMatchIDs)
		if err != nil {
			return fmt.Errorf("fetch matches: %w", err)
		}
		predictions := PredictTiers(matches)
		found := false
		for _, entry := range predictions {
			for _, team := range entry.Teams {
				if containsInt(team.WorldIDs, worldID) {
					tier, teams, found = entry.Tier, entry.Teams, true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return fmt.Errorf("no predicted matchup includes world %d", worldID)
		}
		title = "Predictive WvW Matchup"
	} else {
		match, err := s.api.MatchForWorld(ctx, worldID)
		if err != nil {
			return fmt.Errorf("fetch match: %w", err)
		}
		tier = match.Tier()
		teams = ExtractTeams(*match)
		title = "Current WvW Matchup"
	}

	embed := s.matchupEmbed(ctx, title, *cfg, tier, teams, worldID)
	if _, err := s.notifier.SendEmbed(string(cfg.AllianceChannelID), embed); err != nil {
		return fmt.Errorf("send matchup: %w", err)
	}

	now := storage.UTCNow()
	if prediction {
		cfg.AllianceLastPredictionAt = now
	} else {
		cfg.AllianceLastActualAt = now
	}
	return s.store.SaveConfig(guildID, *cfg)
}

func (s *AllianceService) matchupEmbed(ctx context.Context, title string, cfg storage.GuildConfig, tier int, teams []MatchTeam, homeWorldID int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: title, Color: BrandColor}
	guildLabel := cfg.AllianceGuildName
	if guildLabel == "" {
		guildLabel = "Unknown"
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Alliance guild", Value: guildLabel, Inline: true},
		&discordgo.MessageEmbedField{Name: "Home world", Value: gw2.WorldName(homeWorldID), Inline: true},
	)
	for _, team := range teams {
		if containsInt(team.WorldIDs, homeWorldID) {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name: "Your team color", Value: strings.TrimSpace(colorEmoji[team.Color] + " " + titleColor(team.Color)), Inline: true,
			})
			break
		}
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Tier", Value: fmt.Sprintf("Tier %d", tier), Inline: true},
		&discordgo.MessageEmbedField{Name: "​", Value: "​"},
	)

	for _, team := range teams {
		if containsInt(team.WorldIDs, homeWorldID) {
			continue
		}
		roster := s.teamRoster(ctx, team.WorldIDs)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%s %s — %s", colorEmoji[team.Color], titleColor(team.Color), formatWorlds(team.WorldIDs)),
			Value:  FormatAllianceList(roster),
			Inline: true,
		})
	}
	return embed
}

func (s *AllianceService) teamRoster(ctx context.Context, worldIDs []int) sheets.Roster {
	var rosters []sheets.Roster
	for _, worldID := range worldIDs {
		tab, ok := gw2.AllianceSheetTab(worldID)
		if !ok {
			continue
		}
		roster, err := s.rosters.Roster(ctx, tab)
		if err != nil {
			s.log.Debug("roster fetch failed", "tab", tab, "err", err)
			continue
		}
		rosters = append(rosters, roster)
	}
	return sheets.Merge(rosters...)
}

func (s *AllianceService) guildWorld(ctx context.Context, gw2GuildID string) (int, bool) {
	if s.worldCache == nil || time.Since(s.worldCacheAt) > time.Hour {
		mapped, err := s.api.WvWGuildWorlds(ctx)
		if err != nil {
			s.log.Warn("wvw guild world fetch failed", "err", err)
			return 0, false
		}
		s.worldCache = mapped
		s.worldCacheAt = time.Now()
	}
	worldID, ok := s.worldCache[storage.NormalizeGuildID(gw2GuildID)]
	return worldID, ok
}

// ExtractTeams reads the green/blue/red sides of a match, in that
// order.
func ExtractTeams(match gw2.Match) []MatchTeam {
	var teams []MatchTeam
	for _, color := range []string{"green", "blue", "red"} {
		worldIDs, ok := match.AllWorlds[color]
		if !ok {
			if mainWorld, found := match.Worlds[color]; found {
				worldIDs = []int{mainWorld}
			} else {
				continue
			}
		}
		teams = append(teams, MatchTeam{
			Color:         color,
			WorldIDs:      worldIDs,
			VictoryPoints: match.VictoryPoints[color],
		})
	}
	return teams
}

// PredictTiers projects next week's tiers from the current standings:
// per match the leader moves up a tier (staying green at tier 1, red
// otherwise), the middle team keeps its tier as blue, and the loser
// moves down (staying red at the bottom tier, green otherwise). Teams
// are ordered green/blue/red within a tier, tiers ascending.
func PredictTiers(matches []gw2.Match) []TierPrediction {
	maxTier := 0
	for _, match := range matches {
		if tier := match.Tier(); tier > maxTier {
			maxTier = tier
		}
	}

	tiers := map[int][]MatchTeam{}
	for _, match := range matches {
		tier := match.Tier()
		if tier == 0 {
			continue
		}
		teams := ExtractTeams(match)
		if len(teams) != 3 {
			continue
		}
		ranked := append([]MatchTeam(nil), teams...)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].VictoryPoints > ranked[j].VictoryPoints
		})
		winner, middle, loser := ranked[0], ranked[1], ranked[2]

		winnerTier, winnerColor := tier-1, "red"
		if tier == 1 {
			winnerTier, winnerColor = 1, "green"
		}
		tiers[winnerTier] = append(tiers[winnerTier], MatchTeam{Color: winnerColor, WorldIDs: winner.WorldIDs, VictoryPoints: winner.VictoryPoints})

		tiers[tier] = append(tiers[tier], MatchTeam{Color: "blue", WorldIDs: middle.WorldIDs, VictoryPoints: middle.VictoryPoints})

		loserTier, loserColor := tier+1, "green"
		if tier == maxTier {
			loserTier, loserColor = tier, "red"
		}
		tiers[loserTier] = append(tiers[loserTier], MatchTeam{Color: loserColor, WorldIDs: loser.WorldIDs, VictoryPoints: loser.VictoryPoints})
	}

	colorOrder := map[string]int{"green": 0, "blue": 1, "red": 2}
	var predictions []TierPrediction
	for tier, teams := range tiers {
		ordered := append([]MatchTeam(nil), teams...)
		sort.SliceStable(ordered, func(i, j int) bool {
			return colorOrder[ordered[i].Color] < colorOrder[ordered[j].Color]
		})
		predictions = append(predictions, TierPrediction{Tier: tier, Teams: ordered})
	}
	sort.Slice(predictions, func(i, j int) bool { return predictions[i].Tier < predictions[j].Tier })
	return predictions
}

// FormatAllianceList renders a team roster within the 1000-character
// embed field budget, trimming alliances before solo guilds.
func FormatAllianceList(roster sheets.Roster) string {
	if len(roster.Alliances) == 0 && len(roster.SoloGuilds) == 0 {
		return "No roster data found."
	}

	var allianceLines []string
	for _, alliance := range roster.Alliances {
		allianceLines = append(allianceLines, "**"+alliance.Name+"**")
		for _, guild := range alliance.Guilds {
			allianceLines = append(allianceLines, "• "+guild)
		}
		allianceLines = append(allianceLines, "")
	}

	var soloLines []string
	if len(roster.SoloGuilds) > 0 {
		if len(allianceLines) > 0 && allianceLines[len(allianceLines)-1] != "" {
			soloLines = append(soloLines, "")
		}
		soloLines = append(soloLines, "**Solo Guilds**")
		for _, guild := range roster.SoloGuilds {
			soloLines = append(soloLines, "• "+guild)
		}
	}

	lines := append(append([]string{}, allianceLines...), soloLines...)
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	combined := strings.Join(lines, "\n")
	if len(combined) <= 1000 {
		return combined
	}

	const maxLength = 980
	if len(soloLines) > 0 {
		soloLength := linesLength(soloLines)
		if soloLength > maxLength {
			return strings.Join(trimLines(soloLines, maxLength), "\n") + "\n…"
		}
		kept := trimLines(allianceLines, maxLength-soloLength)
		if len(kept) == 0 && len(soloLines) > 0 && soloLines[0] == "" {
			soloLines = soloLines[1:]
		}
		return strings.Join(append(kept, soloLines...), "\n") + "\n…"
	}
	return strings.Join(trimLines(lines, maxLength), "\n") + "\n…"
}

func linesLength(lines []string) int {
	if len(lines) == 0 {
		return 0
	}
	total := len(lines) - 1
	for _, line := range lines {
		total += len(line)
	}
	return total
}

func trimLines(lines []string, limit int) []string {
	var kept []string
	total := 0
	for _, line := range lines {
		next := total + len(line)
		if len(kept) > 0 {
			next++
		}
		if next > limit {
			break
		}
		kept = append(kept, line)
		total = next
	}
	return kept
}

func formatWorlds(worldIDs []int) string {
	var names []string
	for _, id := range worldIDs {
		if name, ok := gw2.WorldNames[id]; ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "Unknown world"
	}
	return strings.Join(names, ", ")
}

func titleColor(color string) string {
	if color == "" {
		return color
	}
	return strings.ToUpper(color[:1]) + color[1:]
}

func containsInt(values []int, target int) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
