package service

import "strings"

type helpEntry struct {
	command     string
	description string
	authorized  bool
}

var helpEntries = []helpEntry{
	{"/apikey add", "Register a GW2 API key and receive your guild roles", false},
	{"/apikey list", "Show your registered keys", false},
	{"/apikey remove", "Delete one of your keys", false},
	{"/apikey refresh", "Re-validate your keys and resync roles", false},
	{"/gw2guild search", "Look up a GW2 guild by name", false},
	{"/comp signup", "Sign up for a class in the weekly composition", false},
	{"/comp withdraw", "Withdraw your composition signup", false},
	{"/help", "This overview", false},
	{"/guildroles set", "Map a GW2 guild to a Discord role", true},
	{"/guildroles remove", "Remove a guild-to-role mapping", true},
	{"/guildroles list", "List the configured mappings", true},
	{"/guildroles audit", "Compare role holders against the guild roster", true},
	{"/guildroles lookup", "Find the member behind an account or character", true},
	{"/build add", "Publish a build to the build channel", true},
	{"/build edit", "Update a published build", true},
	{"/build delete", "Remove a published build", true},
	{"/build list", "List published builds", true},
	{"/comp", "Configure and post the weekly composition", true},
	{"/rss", "Watch RSS feeds in a channel", true},
	{"/updatenotes", "Post GW2 game update notes automatically", true},
	{"/arcdps", "Announce ArcDPS releases", true},
	{"/wvw", "WvW alliance matchup predictions and posts", true},
	{"/audit", "Capture server events and sync the GW2 guild log", true},
	{"/db", "Inspect this server's stored key data with SQL", true},
}

type HelpService struct{}

func NewHelpService() *HelpService { return &HelpService{} }

// Overview renders the command list; management commands only show up
// for authorized members.
func (s *HelpService) Overview(authorized bool) string {
	var b strings.Builder
	b.WriteString("**Commands**\n")
	for _, entry := range helpEntries {
		if entry.authorized && !authorized {
			continue
		}
		b.WriteString("`" + entry.command + "` — " + entry.description + "\n")
	}
	if authorized {
		b.WriteString("\nManagement commands require the admin permission or a configured moderator role.")
	}
	return strings.TrimRight(b.String(), "\n")
}
