package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	DiscordToken string
	StorageRoot  string
	Production   bool

	// Poll intervals in minutes; defaults match the public services'
	// update cadence, so there is rarely a reason to change them.
	RSSIntervalMinutes         int
	ArcDpsIntervalMinutes      int
	UpdateNotesIntervalMinutes int
	AllianceIntervalMinutes    int
	CompIntervalMinutes        int
}

func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("STORAGE_ROOT", "data")
	v.SetDefault("PRODUCTION", true)
	v.SetDefault("RSS_INTERVAL_MINUTES", 10)
	v.SetDefault("ARCDPS_INTERVAL_MINUTES", 15)
	v.SetDefault("UPDATE_NOTES_INTERVAL_MINUTES", 15)
	v.SetDefault("ALLIANCE_INTERVAL_MINUTES", 15)
	v.SetDefault("COMP_INTERVAL_MINUTES", 1)

	token := strings.TrimSpace(v.GetString("DISCORD_BOT_TOKEN"))
	if token == "" {
		log.Fatal("missing env DISCORD_BOT_TOKEN")
	}

	return Config{
		DiscordToken:               token,
		StorageRoot:                v.GetString("STORAGE_ROOT"),
		Production:                 v.GetBool("PRODUCTION"),
		RSSIntervalMinutes:         v.GetInt("RSS_INTERVAL_MINUTES"),
		ArcDpsIntervalMinutes:      v.GetInt("ARCDPS_INTERVAL_MINUTES"),
		UpdateNotesIntervalMinutes: v.GetInt("UPDATE_NOTES_INTERVAL_MINUTES"),
		AllianceIntervalMinutes:    v.GetInt("ALLIANCE_INTERVAL_MINUTES"),
		CompIntervalMinutes:        v.GetInt("COMP_INTERVAL_MINUTES"),
	}
}
