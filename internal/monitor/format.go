package monitor

import (
	"fmt"
	"strings"

	"blive_bot/internal/bilibili"
)

func liveStartText(user *bilibili.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (UID %d, room %d) is now live:\n", user.Username, user.UID, user.RoomID)
	b.WriteString(user.Title)
	if user.RoomURL != "" {
		b.WriteString("\n")
		b.WriteString(user.RoomURL)
	}
	return b.String()
}

func liveEndText(user *bilibili.User) string {
	return fmt.Sprintf("%s (UID %d, room %d) has ended the stream.", user.Username, user.UID, user.RoomID)
}
