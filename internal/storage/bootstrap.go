package storage

import (
	"context"
	"log/slog"
	"time"

	"blive_bot/internal/bilibili"
	"blive_bot/internal/config"
	"blive_bot/internal/model"
)

// bootstrapAPI is the slice of the Bilibili client needed to resolve
// configured rooms at startup.
type bootstrapAPI interface {
	GetStatus(ctx context.Context, roomID int64) (*bilibili.Status, error)
	GetRoomOwner(ctx context.Context, uid int64) (*bilibili.RoomOwner, error)
}

// requestSpacing keeps the bootstrap from bursting the upstream API.
const requestSpacing = 50 * time.Millisecond

// BootstrapStatic builds a static store from the configured subscription
// list, resolving each room to its canonical id and display name. The
// returned live map holds the live flag observed for each room, used to
// seed the monitor so already-live rooms do not notify at startup.
// Rooms that cannot be resolved are logged and skipped.
func BootstrapStatic(ctx context.Context, api bootstrapAPI, subs []config.StaticSubscription, log *slog.Logger) (*Static, map[int64]bool, error) {
	store := NewStatic()
	live := map[int64]bool{}

	// Status lookups are cached so several channels subscribing the
	// same room cost one upstream call.
	type resolved struct {
		status   *bilibili.Status
		username string
	}
	cache := map[int64]*resolved{}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		r, ok := cache[sub.Room]
		if !ok {
			status, err := api.GetStatus(ctx, sub.Room)
			if err != nil {
				log.Warn("resolve static room", "room_id", sub.Room, "error", err)
				cache[sub.Room] = nil
				continue
			}
			time.Sleep(requestSpacing)

			r = &resolved{status: status}
			if owner, err := api.GetRoomOwner(ctx, status.UID); err != nil {
				log.Warn("resolve room owner", "room_id", sub.Room, "uid", status.UID, "error", err)
			} else {
				r.username = owner.Username
			}
			time.Sleep(requestSpacing)

			cache[sub.Room] = r
		}
		if r == nil {
			continue
		}

		store.Put(model.Destination{
			Platform:  sub.Platform,
			ChannelID: sub.Channel,
			GuildID:   sub.Guild,
			Assignee:  sub.Assignee,
		}, r.status.ID, model.Streamer{UID: r.status.UID, Username: r.username})

		live[r.status.ID] = r.status.Live
	}

	return store, live, nil
}
