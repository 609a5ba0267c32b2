package storage

import (
	"strings"
	"time"
)

// GuildConfig is the per-guild settings document (config.json).
type GuildConfig struct {
	ModeratorRoleIDs SnowflakeList `json:"moderator_role_ids"`

	// GW2 guild UUID (normalised) -> Discord role ID.
	GuildRoleIDs map[string]Snowflake `json:"guild_role_ids,omitempty"`

	BuildChannelID       Snowflake `json:"build_channel_id,omitempty"`
	AuditChannelID       Snowflake `json:"audit_channel_id,omitempty"`
	ArcDpsChannelID      Snowflake `json:"arcdps_channel_id,omitempty"`
	UpdateNotesChannelID Snowflake `json:"update_notes_channel_id,omitempty"`

	AllianceChannelID        Snowflake `json:"alliance_channel_id,omitempty"`
	AllianceGuildID          string    `json:"alliance_guild_id,omitempty"`
	AllianceGuildName        string    `json:"alliance_guild_name,omitempty"`
	AllianceServerID         int       `json:"alliance_server_id,omitempty"`
	AllianceServerName       string    `json:"alliance_server_name,omitempty"`
	AlliancePredictionDay    *int      `json:"alliance_prediction_day,omitempty"`
	AllianceCurrentDay       *int      `json:"alliance_current_day,omitempty"`
	AlliancePredictionTime   string    `json:"alliance_prediction_time,omitempty"`
	AllianceCurrentTime      string    `json:"alliance_current_time,omitempty"`
	AllianceLastPredictionAt string    `json:"alliance_last_prediction_at,omitempty"`
	AllianceLastActualAt     string    `json:"alliance_last_actual_at,omitempty"`

	AuditGW2AdminAPIKey string `json:"audit_gw2_admin_api_key,omitempty"`
	AuditGW2GuildID     string `json:"audit_gw2_guild_id,omitempty"`

	Comp CompConfig `json:"comp"`
}

// CompClassConfig is one required class slot in the weekly composition.
type CompClassConfig struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CompConfig drives the scheduled composition post.
type CompConfig struct {
	ChannelID Snowflake `json:"channel_id,omitempty"`
	// Weekday, 0 = Monday .. 6 = Sunday. Nil means not scheduled.
	PostDay  *int   `json:"post_day,omitempty"`
	PostTime string `json:"post_time,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Overview string `json:"overview,omitempty"`

	Classes []CompClassConfig   `json:"classes,omitempty"`
	Signups map[string][]string `json:"signups,omitempty"`

	LastMessageID Snowflake `json:"last_message_id,omitempty"`
	LastPostAt    string    `json:"last_post_at,omitempty"`
}

func defaultGuildConfig() GuildConfig {
	return GuildConfig{
		ModeratorRoleIDs: SnowflakeList{},
		Comp:             CompConfig{Timezone: "UTC"},
	}
}

// GetConfig loads the guild configuration, applying defaults for missing
// or malformed documents and normalising every field that command handlers
// assume is clean.
func (m *Manager) GetConfig(guildID string) (GuildConfig, error) {
	cfg := defaultGuildConfig()
	if _, err := m.readJSON(guildID, "config.json", &cfg); err != nil {
		return GuildConfig{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func (m *Manager) SaveConfig(guildID string, cfg GuildConfig) error {
	cfg.normalize()
	return m.writeJSON(guildID, "config.json", cfg)
}

func (c *GuildConfig) normalize() {
	if c.ModeratorRoleIDs == nil {
		c.ModeratorRoleIDs = SnowflakeList{}
	}
	for gw2GuildID, roleID := range c.GuildRoleIDs {
		normalized := NormalizeGuildID(gw2GuildID)
		if normalized == "" || roleID == "" {
			delete(c.GuildRoleIDs, gw2GuildID)
			continue
		}
		if normalized != gw2GuildID {
			delete(c.GuildRoleIDs, gw2GuildID)
			c.GuildRoleIDs[normalized] = roleID
		}
	}
	c.AllianceGuildID = NormalizeGuildID(c.AllianceGuildID)
	c.AlliancePredictionDay = clampWeekday(c.AlliancePredictionDay)
	c.AllianceCurrentDay = clampWeekday(c.AllianceCurrentDay)
	c.AlliancePredictionTime = normalizeClock(c.AlliancePredictionTime)
	c.AllianceCurrentTime = normalizeClock(c.AllianceCurrentTime)
	c.AuditGW2AdminAPIKey = strings.TrimSpace(c.AuditGW2AdminAPIKey)
	c.AuditGW2GuildID = NormalizeGuildID(c.AuditGW2GuildID)
	c.Comp.sanitize()
}

// sanitize enforces the signup invariant: signup keys are a subset of the
// configured class names, and every configured class has a signup list.
func (c *CompConfig) sanitize() {
	c.Timezone = NormalizeTimezone(c.Timezone)
	c.PostDay = clampWeekday(c.PostDay)
	c.PostTime = normalizeClock(c.PostTime)

	valid := make(map[string]bool, len(c.Classes))
	for _, class := range c.Classes {
		valid[class.Name] = true
	}
	if c.Signups == nil {
		c.Signups = make(map[string][]string)
	}
	for name := range c.Signups {
		if !valid[name] {
			delete(c.Signups, name)
		}
	}
	for _, class := range c.Classes {
		if _, ok := c.Signups[class.Name]; !ok {
			c.Signups[class.Name] = []string{}
		}
	}
}

// NormalizeTimezone cleans up a stored IANA timezone name, falling back to
// UTC when the value does not resolve.
func NormalizeTimezone(value string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), " ", "_")
	if cleaned == "" {
		return "UTC"
	}
	if _, err := time.LoadLocation(cleaned); err != nil {
		return "UTC"
	}
	return cleaned
}

// NormalizeGuildID lowercases and trims a GW2 guild UUID so lookups are
// case-insensitive.
func NormalizeGuildID(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func clampWeekday(value *int) *int {
	if value == nil || *value < 0 || *value > 6 {
		return nil
	}
	return value
}

func normalizeClock(value string) string {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return ""
	}
	parsed, err := time.Parse("15:04", cleaned)
	if err != nil {
		return ""
	}
	return parsed.Format("15:04")
}
