// Package sender delivers rendered notifications to chat platforms.
package sender

import (
	"context"
	"fmt"
	"sync"

	"blive_bot/internal/model"
)

// Message is one outbound notification. CoverURL is the stream cover
// shown on live-start messages; the icon is the broadcaster's avatar,
// either as downscaled bytes or a raw URL. All image fields are
// optional; how they are rendered is up to each platform.
type Message struct {
	Text     string
	CoverURL string
	IconURL  string
	IconData []byte
}

// Sender delivers a message to one channel of one platform.
type Sender interface {
	Send(ctx context.Context, channelID, guildID string, msg Message) error
}

// Registry maps (platform, assignee) pairs to the bot session that
// delivers on their behalf.
type Registry struct {
	mu      sync.RWMutex
	senders map[string]Sender
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{senders: map[string]Sender{}}
}

// Register binds a sender to a (platform, assignee) pair.
func (r *Registry) Register(platform, assignee string, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[platform+":"+assignee] = s
}

// Send delivers msg to the destination via its assigned bot.
func (r *Registry) Send(ctx context.Context, dest model.Destination, msg Message) error {
	r.mu.RLock()
	s, ok := r.senders[dest.Platform+":"+dest.Assignee]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no sender registered for %s:%s", dest.Platform, dest.Assignee)
	}
	return s.Send(ctx, dest.ChannelID, dest.GuildID, msg)
}
