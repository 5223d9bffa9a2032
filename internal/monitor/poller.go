package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"blive_bot/internal/bilibili"
	"blive_bot/internal/icon"
	"blive_bot/internal/model"
	"blive_bot/internal/sender"
	"blive_bot/internal/storage"
)

// API is the slice of the Bilibili client the poll loop needs.
type API interface {
	GetStatus(ctx context.Context, roomID int64) (*bilibili.Status, error)
	GetUser(ctx context.Context, uid int64) (*bilibili.User, error)
}

// Dispatcher delivers a notification to one destination.
type Dispatcher interface {
	Send(ctx context.Context, dest model.Destination, msg sender.Message) error
}

// Poller walks the index once per interval, detects live/offline
// transitions, and fans notifications out to each room's subscribers.
type Poller struct {
	index    *Index
	api      API
	store    storage.Store
	dispatch Dispatcher
	icons    icon.Processor
	log      *slog.Logger

	interval       time.Duration
	broadcastDelay time.Duration
	jitterMin      time.Duration
	jitterMax      time.Duration
}

// NewPoller creates a Poller with the default 60s interval.
func NewPoller(index *Index, api API, store storage.Store, dispatch Dispatcher, icons icon.Processor, log *slog.Logger) *Poller {
	return &Poller{
		index:    index,
		api:      api,
		store:    store,
		dispatch: dispatch,
		icons:    icons,
		log:      log,

		interval:       time.Minute,
		broadcastDelay: 500 * time.Millisecond,
		// The upstream rate-limits aggressively; spacing status calls
		// avoids bursty synchronized request patterns.
		jitterMin: 10 * time.Millisecond,
		jitterMax: 50 * time.Millisecond,
	}
}

// SetInterval overrides the default polling interval.
func (p *Poller) SetInterval(d time.Duration) {
	p.interval = d
}

// SetBroadcastDelay overrides the pause between outbound messages.
func (p *Poller) SetBroadcastDelay(d time.Duration) {
	p.broadcastDelay = d
}

// Run starts the poll loop, blocking until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("poller started", "interval", p.interval, "rooms", p.index.Len())

	p.cycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("poller stopped")
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// cycle checks every monitored room once. A failure in one room never
// prevents the remaining rooms from being checked.
func (p *Poller) cycle(ctx context.Context) {
	for _, roomID := range p.index.Rooms() {
		if ctx.Err() != nil {
			return
		}
		if err := p.checkRoom(ctx, roomID); err != nil {
			p.log.Warn("room check skipped", "room_id", roomID, "error", err)
		}
	}
}

func (p *Poller) checkRoom(ctx context.Context, roomID int64) error {
	p.sleepJitter()

	entry, ok := p.index.Peek(roomID)
	if !ok {
		// Unsubscribed between Rooms and now.
		return nil
	}

	status, err := p.api.GetStatus(ctx, roomID)
	if err != nil {
		return fmt.Errorf("fetch status: %w", err)
	}

	if entry.Live == nil {
		// First observation after startup: record silently, so rooms
		// already live before we started watching do not notify.
		p.index.SetLive(roomID, status.Live)
		return nil
	}

	if *entry.Live == status.Live {
		return nil
	}

	user, err := p.api.GetUser(ctx, entry.UID)
	if err != nil {
		// The cached flag stays untouched so the same transition fires
		// again next cycle instead of being lost.
		return fmt.Errorf("fetch profile: %w", err)
	}

	p.index.SetLive(roomID, status.Live)
	p.broadcast(ctx, roomID, entry, status.Live, user)
	return nil
}

func (p *Poller) broadcast(ctx context.Context, roomID int64, entry Entry, live bool, user *bilibili.User) {
	msg := sender.Message{}
	if live {
		msg.Text = liveStartText(user)
		msg.CoverURL = user.CoverURL
	} else {
		msg.Text = liveEndText(user)
	}

	if ic, err := p.icons.Process(ctx, user.IconURL); err != nil {
		p.log.Warn("prepare icon", "room_id", roomID, "error", err)
		msg.IconURL = user.IconURL
	} else {
		msg.IconURL = ic.URL
		msg.IconData = ic.Data
	}

	targets, err := p.store.ResolveAssignees(ctx, entry.Destinations)
	if err != nil {
		p.log.Error("resolve destinations", "room_id", roomID, "error", err)
		return
	}

	for _, dest := range targets {
		if err := p.dispatch.Send(ctx, dest, msg); err != nil {
			p.log.Error("send notification",
				"room_id", roomID,
				"platform", dest.Platform,
				"channel_id", dest.ChannelID,
				"error", err)
		}
		time.Sleep(p.broadcastDelay)
	}

	p.log.Info("transition notified",
		"room_id", roomID,
		"live", live,
		"username", user.Username,
		"destinations", len(targets))

	// One batched write-back after the send loop, not per destination.
	if user.Username != "" && user.Username != entry.Username {
		p.index.SetUsername(roomID, user.Username)
		if err := p.store.UpdateUsername(ctx, roomID, user.Username); err != nil {
			p.log.Error("persist username", "room_id", roomID, "error", err)
		}
	}
}

func (p *Poller) sleepJitter() {
	if p.jitterMax <= p.jitterMin {
		return
	}
	time.Sleep(p.jitterMin + rand.N(p.jitterMax-p.jitterMin))
}
