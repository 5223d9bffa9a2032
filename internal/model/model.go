// Package model defines the domain types used across the application.
package model

// Platform identifiers for delivery targets.
const (
	PlatformTelegram = "telegram"
	PlatformDiscord  = "discord"
)

// Destination identifies one deliverable chat target together with the
// bot identity used to deliver to it.
type Destination struct {
	Platform  string
	ChannelID string
	GuildID   string
	Assignee  string
}

// Key returns the platform-scoped channel key ("platform:channelId").
func (d Destination) Key() string {
	return d.Platform + ":" + d.ChannelID
}

// Same reports whether two destinations refer to the same channel.
// Assignee and guild are delivery details, not channel identity.
func (d Destination) Same(other Destination) bool {
	return d.Platform == other.Platform && d.ChannelID == other.ChannelID
}

// Streamer is the cached identity of a subscribed broadcaster.
type Streamer struct {
	UID      int64
	Username string
}

// ChannelSubscriptions is one channel's full subscription set, keyed by
// the broadcaster's canonical room id.
type ChannelSubscriptions struct {
	Destination
	Rooms map[int64]Streamer
}
