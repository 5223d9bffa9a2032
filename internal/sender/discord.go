package sender

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

type discordAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord delivers notifications through a Discord bot session.
type Discord struct {
	api discordAPI
}

// NewDiscord wraps an existing Discord session.
func NewDiscord(api discordAPI) *Discord {
	return &Discord{api: api}
}

// Send delivers msg to a Discord channel. Discord routes by channel id
// alone; guildID is part of the destination but not needed here.
func (d *Discord) Send(_ context.Context, channelID, _ string, msg Message) error {
	data := &discordgo.MessageSend{Content: msg.Text}

	embed := &discordgo.MessageEmbed{}
	if msg.CoverURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: msg.CoverURL}
	}
	switch {
	case len(msg.IconData) > 0:
		data.Files = []*discordgo.File{{
			Name:        "icon.png",
			ContentType: "image/png",
			Reader:      bytes.NewReader(msg.IconData),
		}}
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: "attachment://icon.png"}
	case msg.IconURL != "":
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: msg.IconURL}
	}
	if embed.Image != nil || embed.Thumbnail != nil {
		data.Embeds = []*discordgo.MessageEmbed{embed}
	}

	if _, err := d.api.ChannelMessageSendComplex(channelID, data); err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	return nil
}
