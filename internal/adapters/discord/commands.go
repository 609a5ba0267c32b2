package discord

import "github.com/bwmarrin/discordgo"

func channelOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         name,
		Description:  description,
		Required:     required,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
	}
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func dayOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    true,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "Monday", Value: 0},
			{Name: "Tuesday", Value: 1},
			{Name: "Wednesday", Value: 2},
			{Name: "Thursday", Value: 3},
			{Name: "Friday", Value: 4},
			{Name: "Saturday", Value: 5},
			{Name: "Sunday", Value: 6},
		},
	}
}

// Commands is the full slash-command surface. Test subcommands that
// force a notification are only registered outside production.
func Commands(production bool) []*discordgo.ApplicationCommand {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "apikey",
			Description: "Manage your GW2 API keys",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "add",
					Description: "Register a GW2 API key",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("key", "Your GW2 API key", true)},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "Show your registered keys"},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "remove",
					Description: "Delete one of your keys",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("name", "Key name", true)},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "refresh", Description: "Re-validate your keys and resync roles"},
			},
		},
		{
			Name:        "gw2guild",
			Description: "GW2 guild lookups",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "search",
					Description: "Look up a GW2 guild by name",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("name", "Guild name", true)},
				},
			},
		},
		{
			Name:        "guildroles",
			Description: "Map GW2 guild membership to Discord roles",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set",
					Description: "Map a GW2 guild to a role",
					Options: []*discordgo.ApplicationCommandOption{
						stringOption("guild", "GW2 guild name or id", true),
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role to grant", Required: true},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "remove",
					Description: "Remove a guild-to-role mapping",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("guild", "GW2 guild name or id", true)},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "List the configured mappings"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "audit", Description: "Compare role holders against the guild roster"},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "lookup",
					Description: "Find the member behind an account or character",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("query", "Account or character name", true)},
				},
			},
		},
		{
			Name:        "build",
			Description: "Manage published builds",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "add",
					Description: "Publish a build",
					Options: []*discordgo.ApplicationCommandOption{
						stringOption("name", "Build name", true),
						stringOption("class", "Profession or elite specialization", true),
						stringOption("chatcode", "In-game build template code", true),
						stringOption("url", "Guide link", false),
						stringOption("description", "Short description", false),
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "edit",
					Description: "Update a published build",
					Options: []*discordgo.ApplicationCommandOption{
						stringOption("id", "Build id", true),
						stringOption("name", "New name", false),
						stringOption("class", "New profession or specialization", false),
						stringOption("chatcode", "New template code", false),
						stringOption("url", "New guide link", false),
						stringOption("description", "New description", false),
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "delete",
					Description: "Remove a published build",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("id", "Build id", true)},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "List published builds"},
			},
		},
		{
			Name:        "comp",
			Description: "Weekly composition scheduling",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "channel",
					Description: "Where the comp post goes",
					Options:     []*discordgo.ApplicationCommandOption{channelOption("channel", "Target channel", true)},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "schedule",
					Description: "When the comp is posted",
					Options: []*discordgo.ApplicationCommandOption{
						dayOption("day", "Post day"),
						stringOption("time", "Post time, HH:MM (24h)", true),
						stringOption("timezone", "IANA timezone, e.g. Europe/Berlin", false),
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "overview",
					Description: "Set the overview text",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("text", "Overview text", true)},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "classes",
					Description: "Define the required classes",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("definition", "e.g. Firebrand:2, Scrapper, Chronomancer:1", true)},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "savepreset",
					Description: "Save the current classes as a named preset",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("name", "Preset name", true)},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "usepreset",
					Description: "Replace the classes with a saved preset",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("name", "Preset name", true)},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "presets", Description: "List the saved class presets"},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "delpreset",
					Description: "Delete a saved preset",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("name", "Preset name", true)},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "post", Description: "Post the comp now"},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "signup",
					Description: "Sign up for a class slot",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("class", "Class to play", true)},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "withdraw", Description: "Withdraw your signup"},
			},
		},
		{
			Name:        "rss",
			Description: "Watch RSS feeds",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set",
					Description: "Watch a feed in a channel",
					Options: []*discordgo.ApplicationCommandOption{
						stringOption("name", "Feed name", true),
						stringOption("url", "Feed URL", true),
						channelOption("channel", "Target channel", true),
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "delete",
					Description: "Stop watching a feed",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("name", "Feed name", true)},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "List watched feeds"},
			},
		},
		{
			Name:        "updatenotes",
			Description: "GW2 game update notes",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "channel",
					Description: "Where update notes are posted",
					Options:     []*discordgo.ApplicationCommandOption{channelOption("channel", "Target channel", true)},
				},
			},
		},
		{
			Name:        "arcdps",
			Description: "ArcDPS release notifications",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "channel",
					Description: "Where release notices are posted",
					Options:     []*discordgo.ApplicationCommandOption{channelOption("channel", "Target channel", true)},
				},
			},
		},
		{
			Name:        "wvw",
			Description: "WvW alliance matchup posts",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "setguild",
					Description: "Track an alliance guild",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("name", "GW2 guild name", true)},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "setchannel",
					Description: "Where matchup posts go",
					Options:     []*discordgo.ApplicationCommandOption{channelOption("channel", "Target channel", true)},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "settimes",
					Description: "When matchup posts go out (Pacific time)",
					Options: []*discordgo.ApplicationCommandOption{
						dayOption("prediction_day", "Prediction post day"),
						stringOption("prediction_time", "Prediction post time, HH:MM", true),
						dayOption("current_day", "Current matchup post day"),
						stringOption("current_time", "Current matchup post time, HH:MM", true),
					},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "status", Description: "Show the WvW configuration"},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "post",
					Description: "Post a matchup now",
					Options: []*discordgo.ApplicationCommandOption{{
						Type: discordgo.ApplicationCommandOptionBoolean, Name: "prediction",
						Description: "Post the prediction instead of the current matchup",
					}},
				},
			},
		},
		{
			Name:        "audit",
			Description: "Server and guild-log auditing",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "channel",
					Description: "Where audit events are announced",
					Options:     []*discordgo.ApplicationCommandOption{channelOption("channel", "Target channel", true)},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "setkey",
					Description: "Store a named admin API key for guild-log syncing",
					Options: []*discordgo.ApplicationCommandOption{
						stringOption("name", "Key name", true),
						stringOption("key", "GW2 API key", true),
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "setguild",
					Description: "Which GW2 guild log to sync",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("guild", "GW2 guild name or id", true)},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "query",
					Description: "Search captured Discord events",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("user", "User id or name", true)},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "gw2query",
					Description: "Search synced guild-log events",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("user", "GW2 account name", true)},
				},
			},
		},
		{
			Name:        "db",
			Description: "Inspect this server's stored key data",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "query",
					Description: "Run a read-only SQL query",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("sql", "SELECT statement", true)},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "schema", Description: "Show the queryable tables"},
			},
		},
		{
			Name:        "config",
			Description: "Bot configuration for this server",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "addmod",
					Description: "Allow a role to use management commands",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Moderator role", Required: true},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "removemod",
					Description: "Revoke a moderator role",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Moderator role", Required: true},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "buildchannel",
					Description: "Where build posts go",
					// Builds may also target a forum, where each build
					// becomes its own thread.
					Options: []*discordgo.ApplicationCommandOption{{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "channel",
						Description: "Target channel",
						Required:    true,
						ChannelTypes: []discordgo.ChannelType{
							discordgo.ChannelTypeGuildText,
							discordgo.ChannelTypeGuildNews,
							discordgo.ChannelTypeGuildForum,
						},
					}},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "Show the current configuration"},
			},
		},
		{
			Name:        "help",
			Description: "List the available commands",
		},
	}

	if !production {
		appendSub := func(name string, sub *discordgo.ApplicationCommandOption) {
			for _, cmd := range commands {
				if cmd.Name == name {
					cmd.Options = append(cmd.Options, sub)
					return
				}
			}
		}
		appendSub("rss", &discordgo.ApplicationCommandOption{
			Type: discordgo.ApplicationCommandOptionSubCommand, Name: "test",
			Description: "Post the newest entry of a feed now",
			Options:     []*discordgo.ApplicationCommandOption{stringOption("name", "Feed name", true)},
		})
		appendSub("updatenotes", &discordgo.ApplicationCommandOption{
			Type: discordgo.ApplicationCommandOptionSubCommand, Name: "force",
			Description: "Post the newest update notes now",
		})
		appendSub("arcdps", &discordgo.ApplicationCommandOption{
			Type: discordgo.ApplicationCommandOptionSubCommand, Name: "force",
			Description: "Send a release notice now",
		})
	}
	return commands
}
