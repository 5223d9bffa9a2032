package bot

import (
	"context"
	"errors"
	"fmt"

	"blive_bot/internal/bilibili"
	"blive_bot/internal/icon"
	"blive_bot/internal/subs"
)

const staticModeHint = "Subscriptions are fixed by configuration; /add and /remove are disabled."

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Bilibili Live Notify Bot!

Subscribe to broadcasters and get notified when they go live.

Quick start:
1. /add <room_id> — subscribe to a live room
2. /list — show this chat's subscriptions
3. /search <keyword> — look up a broadcaster

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Subscription management:
/add <room_id> — subscribe this chat to a live room
/remove <room_id> — unsubscribe
/list [page] — show subscriptions (paged)

Search:
/search <room_id> — look up by room ID (default)
/search -u <uid> — look up by user ID
/search -n <name> — search by username`)
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) {
	roomID, err := ParseRoomID(args)
	if err != nil {
		b.reply(chatID, "Usage: /add <room_id>")
		return
	}

	sub, err := b.service.Add(ctx, b.destination(chatID), roomID)
	switch {
	case errors.Is(err, subs.ErrReadOnly):
		b.reply(chatID, staticModeHint)
	case errors.Is(err, subs.ErrLimitReached):
		b.reply(chatID, fmt.Sprintf("This chat already has the maximum of %d subscriptions.", b.service.MaxSubs()))
	case errors.Is(err, subs.ErrAlreadySubscribed):
		b.reply(chatID, fmt.Sprintf("Already subscribed to %s.", FormatUser(sub.Username, sub.UID, sub.RoomID)))
	case bilibili.IsTransient(err):
		b.reply(chatID, "Network error while reaching Bilibili. Please try again.")
	case err != nil:
		b.reply(chatID, fmt.Sprintf("Room %d not found.", roomID))
	default:
		b.reply(chatID, fmt.Sprintf("Subscribed to %s.", FormatUser(sub.Username, sub.UID, sub.RoomID)))
	}
}

func (b *Bot) handleRemove(ctx context.Context, chatID int64, args string) {
	roomID, err := ParseRoomID(args)
	if err != nil {
		b.reply(chatID, "Usage: /remove <room_id>")
		return
	}

	sub, err := b.service.Remove(ctx, b.destination(chatID), roomID)
	switch {
	case errors.Is(err, subs.ErrReadOnly):
		b.reply(chatID, staticModeHint)
	case errors.Is(err, subs.ErrNotSubscribed):
		b.reply(chatID, fmt.Sprintf("Room %d is not subscribed in this chat.", roomID))
	case bilibili.IsTransient(err):
		b.reply(chatID, "Network error while reaching Bilibili. Please try again.")
	case err != nil:
		b.reply(chatID, fmt.Sprintf("Failed to remove room %d: %v", roomID, err))
	default:
		b.reply(chatID, fmt.Sprintf("Unsubscribed from %s.", FormatUser(sub.Username, sub.UID, sub.RoomID)))
	}
}

func (b *Bot) handleList(ctx context.Context, chatID int64, args string) {
	page := ParsePage(args)

	p, err := b.service.List(ctx, b.destination(chatID), page)
	if err != nil {
		b.log.Error("list subscriptions", "chat_id", chatID, "error", err)
		b.reply(chatID, "Failed to load subscriptions.")
		return
	}
	b.reply(chatID, FormatSubscriptionList(p))
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, args string) {
	query, err := ParseSearchArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	if query.Mode == subs.SearchByName {
		result, err := b.service.SearchName(ctx, query.Keyword)
		if err != nil {
			b.reply(chatID, "Network error while reaching Bilibili. Please try again.")
			return
		}
		if result.Total == 0 {
			b.reply(chatID, fmt.Sprintf("No broadcaster found for %q.", query.Keyword))
			return
		}
		b.reply(chatID, FormatSearchList(query.Keyword, result, b.service.SearchLimit()))
		return
	}

	user, err := b.service.SearchUser(ctx, query.Mode, query.ID)
	switch {
	case bilibili.IsTransient(err):
		b.reply(chatID, "Network error while reaching Bilibili. Please try again.")
	case err != nil:
		if query.Mode == subs.SearchByRoom {
			b.reply(chatID, fmt.Sprintf("Room %d not found.", query.ID))
		} else {
			b.reply(chatID, fmt.Sprintf("User %d not found.", query.ID))
		}
	default:
		ic, iconErr := b.icons.Process(ctx, user.IconURL)
		if iconErr != nil {
			ic = icon.Icon{URL: user.IconURL}
		}
		b.replyWithIcon(chatID, FormatSearchResult(user), ic)
	}
}
