package discord

import (
	"bytes"

	"github.com/bwmarrin/discordgo"
)

// Notifier adapts the session to the channel-posting surface the
// services use.
type Notifier struct {
	s *discordgo.Session
}

func NewNotifier(s *discordgo.Session) *Notifier { return &Notifier{s: s} }

func (n *Notifier) SendMessage(channelID, content string) (string, error) {
	msg, err := n.s.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (n *Notifier) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	msg, err := n.s.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (n *Notifier) EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error {
	_, err := n.s.ChannelMessageEditEmbed(channelID, messageID, embed)
	return err
}

func (n *Notifier) DeleteMessage(channelID, messageID string) error {
	return n.s.ChannelMessageDelete(channelID, messageID)
}

func (n *Notifier) IsForumChannel(channelID string) bool {
	channel, err := n.s.State.Channel(channelID)
	if err != nil {
		channel, err = n.s.Channel(channelID)
		if err != nil {
			return false
		}
	}
	return channel.Type == discordgo.ChannelTypeGuildForum
}

// CreateForumPost opens a forum thread carrying the embed as its
// starter message and returns the thread ID.
func (n *Notifier) CreateForumPost(channelID, title string, embed *discordgo.MessageEmbed) (string, error) {
	thread, err := n.s.ForumThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name:                title,
		AutoArchiveDuration: 10080, // a week
	}, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (n *Notifier) DeleteChannel(channelID string) error {
	_, err := n.s.ChannelDelete(channelID)
	return err
}

func (n *Notifier) SendFile(channelID, content, filename string, data []byte) error {
	_, err := n.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Files: []*discordgo.File{{
			Name:        filename,
			ContentType: "text/plain",
			Reader:      bytes.NewReader(data),
		}},
	})
	return err
}
