package sender

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers notifications through a Telegram bot session.
type Telegram struct {
	api telegramAPI
}

// NewTelegram wraps an existing bot API session.
func NewTelegram(api telegramAPI) *Telegram {
	return &Telegram{api: api}
}

// Send delivers msg to the Telegram chat identified by channelID.
// Telegram has no guild concept, so guildID is ignored.
func (t *Telegram) Send(_ context.Context, channelID, _ string, msg Message) error {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", channelID, err)
	}

	// Telegram allows one photo per message: prefer the stream cover,
	// then the avatar.
	switch {
	case msg.CoverURL != "":
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(msg.CoverURL))
		photo.Caption = msg.Text
		_, err = t.api.Send(photo)
	case len(msg.IconData) > 0:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "icon.png", Bytes: msg.IconData})
		photo.Caption = msg.Text
		_, err = t.api.Send(photo)
	case msg.IconURL != "":
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(msg.IconURL))
		photo.Caption = msg.Text
		_, err = t.api.Send(photo)
	default:
		m := tgbotapi.NewMessage(chatID, msg.Text)
		m.DisableWebPagePreview = true
		_, err = t.api.Send(m)
	}
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
