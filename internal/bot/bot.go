// Package bot is the Telegram command front end for managing and
// inspecting live-stream subscriptions.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"blive_bot/internal/icon"
	"blive_bot/internal/model"
	"blive_bot/internal/subs"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot handles user commands arriving over Telegram.
type Bot struct {
	api     telegramAPI
	service *subs.Service
	icons   icon.Processor
	log     *slog.Logger

	// assignee is the bot identity recorded on subscriptions created
	// through this front end.
	assignee string
}

// New creates a Bot on top of an existing Telegram session.
func New(api *tgbotapi.BotAPI, service *subs.Service, icons icon.Processor, log *slog.Logger) *Bot {
	return &Bot{
		api:      api,
		service:  service,
		icons:    icons,
		log:      log,
		assignee: api.Self.UserName,
	}
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) replyWithIcon(chatID int64, text string, ic icon.Icon) {
	switch {
	case len(ic.Data) > 0:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "icon.png", Bytes: ic.Data})
		photo.Caption = text
		if _, err := b.api.Send(photo); err != nil {
			b.log.Error("send reply", "chat_id", chatID, "error", err)
		}
	case ic.URL != "":
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(ic.URL))
		photo.Caption = text
		if _, err := b.api.Send(photo); err != nil {
			b.log.Error("send reply", "chat_id", chatID, "error", err)
		}
	default:
		b.reply(chatID, text)
	}
}

func (b *Bot) destination(chatID int64) model.Destination {
	return model.Destination{
		Platform:  model.PlatformTelegram,
		ChannelID: strconv.FormatInt(chatID, 10),
		Assignee:  b.assignee,
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "add":
		b.handleAdd(ctx, chatID, args)
	case "remove":
		b.handleRemove(ctx, chatID, args)
	case "list":
		b.handleList(ctx, chatID, args)
	case "search":
		b.handleSearch(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
