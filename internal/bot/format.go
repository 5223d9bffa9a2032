package bot

import (
	"fmt"
	"strings"

	"blive_bot/internal/bilibili"
	"blive_bot/internal/subs"
)

// FormatUser renders the standard one-line broadcaster reference.
func FormatUser(username string, uid, roomID int64) string {
	if roomID == 0 {
		return fmt.Sprintf("%s (UID %d, no live room)", username, uid)
	}
	return fmt.Sprintf("%s (UID %d, room %d)", username, uid, roomID)
}

// FormatSubscriptionList formats one page of a chat's subscriptions.
func FormatSubscriptionList(p *subs.Page) string {
	if p.Total == 0 {
		return "This chat has no subscriptions yet. Use /add <room_id> to add one."
	}

	var b strings.Builder
	if p.MaxPage > 1 {
		fmt.Fprintf(&b, "Subscriptions (page %d/%d):\n", p.Page, p.MaxPage)
	} else {
		b.WriteString("Subscriptions:\n")
	}
	for _, e := range p.Entries {
		b.WriteString("\n")
		b.WriteString(FormatUser(e.Username, e.UID, e.RoomID))
	}
	return b.String()
}

// FormatSearchResult formats a single broadcaster profile.
func FormatSearchResult(user *bilibili.User) string {
	var b strings.Builder
	b.WriteString(FormatUser(user.Username, user.UID, user.RoomID))
	if user.Profile != "" {
		b.WriteString("\n")
		b.WriteString(user.Profile)
	}
	if user.HasRoom {
		if user.Live {
			b.WriteString("\nCurrently live: ")
			b.WriteString(user.Title)
			if user.RoomURL != "" {
				b.WriteString("\n")
				b.WriteString(user.RoomURL)
			}
		} else {
			b.WriteString("\nCurrently offline.")
		}
	}
	return b.String()
}

// FormatSearchList formats name-search results.
func FormatSearchList(keyword string, result *bilibili.SearchResult, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d broadcaster(s) for %q", result.Total, keyword)
	if result.Total > limit {
		fmt.Fprintf(&b, " (showing first %d)", limit)
	}
	b.WriteString(":\n")
	for _, item := range result.Items {
		b.WriteString("\n")
		if item.RoomID == 0 {
			b.WriteString(FormatUser(item.Username, item.UID, 0))
		} else {
			b.WriteString(FormatUser(item.Username, item.UID, item.RoomID))
		}
	}
	return b.String()
}
