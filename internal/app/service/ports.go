package service

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/gw2tools/gw2-tools-bot/internal/gw2"
)

// BrandColor is the embed accent used across every feature.
const BrandColor = 0x995D25

// Implemented by internal/gw2.Client.
type GW2API interface {
	TokenInfo(ctx context.Context, key string) (*gw2.TokenInfo, error)
	Account(ctx context.Context, key string) (*gw2.Account, error)
	CharacterNames(ctx context.Context, key string) ([]string, error)
	Guild(ctx context.Context, guildID string) (*gw2.GuildInfo, error)
	SearchGuild(ctx context.Context, name string) ([]string, error)
	GuildMembers(ctx context.Context, key, guildID string) ([]gw2.GuildMember, error)
	GuildLog(ctx context.Context, key, guildID string, since int64) ([]gw2.GuildLogEntry, error)
	WvWGuildWorlds(ctx context.Context) (map[string]int, error)
	Matches(ctx context.Context, ids []string) ([]gw2.Match, error)
	MatchForWorld(ctx context.Context, worldID int) (*gw2.Match, error)
}

// Notifier posts to channels on behalf of the watcher loops and the
// build/comp publishers. Implemented by the discord adapter.
type Notifier interface {
	SendMessage(channelID, content string) (messageID string, err error)
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) (messageID string, err error)
	EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error
	DeleteMessage(channelID, messageID string) error
	SendFile(channelID, content, filename string, data []byte) error

	// Forum channels cannot take plain messages; posts open a thread
	// whose starter message shares the thread's ID.
	IsForumChannel(channelID string) bool
	CreateForumPost(channelID, title string, embed *discordgo.MessageEmbed) (threadID string, err error)
	DeleteChannel(channelID string) error
}

// MemberDirectory wraps the Discord member/role surface the accounts
// service needs. Implemented by the discord adapter.
type MemberDirectory interface {
	MemberRoles(guildID, userID string) ([]string, error)
	AddRole(guildID, userID, roleID string) error
	RemoveRole(guildID, userID, roleID string) error
	RoleName(guildID, roleID string) string
	MembersWithRole(guildID, roleID string) ([]DirectoryMember, error)
	GuildIDs() []string
}

// DirectoryMember is a minimal member view for audit reports.
type DirectoryMember struct {
	UserID      string
	DisplayName string
}
