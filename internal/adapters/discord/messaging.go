package discord

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

func SendEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate, msg string) error {
	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Warn("SendEphemeral failed", "err", err)
	}
	return err
}

// Defer for work that can exceed the 3s interaction window.
func DeferEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate) error {
	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Warn("DeferEphemeral failed", "err", err)
	}
	return err
}

func ReplyEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate, content string, embeds ...*discordgo.MessageEmbed) {
	_, err := s.FollowupMessageCreate(ic.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Embeds:  embeds,
	})
	if err != nil {
		// Fall back to a direct response when no defer went out
		// (unknown webhook).
		var reqErr *discordgo.RESTError
		if errors.As(err, &reqErr) && reqErr.Message != nil && reqErr.Message.Code == 10015 {
			_ = s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: content,
					Flags:   discordgo.MessageFlagsEphemeral,
					Embeds:  embeds,
				},
			})
			return
		}
		slog.Warn("ReplyEphemeral failed", "err", err)
	}
}

// ReplyEphemeralFile attaches a document to the followup, for reports
// too large to inline.
func ReplyEphemeralFile(s *discordgo.Session, ic *discordgo.InteractionCreate, content, filename string, data []byte) {
	_, err := s.FollowupMessageCreate(ic.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Files: []*discordgo.File{{
			Name:        filename,
			ContentType: "text/plain",
			Reader:      bytes.NewReader(data),
		}},
	})
	if err != nil {
		slog.Warn("ReplyEphemeralFile failed", "err", err)
	}
}
