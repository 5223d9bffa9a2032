package storage

import (
	"context"
	"sync"

	"blive_bot/internal/model"
)

// Static implements Store with a process-local subscription set built
// once from configuration. Mutations are rejected with ErrReadOnly;
// username refreshes only touch the in-memory cache.
type Static struct {
	mu       sync.RWMutex
	channels map[string]*model.ChannelSubscriptions
}

// NewStatic creates an empty static store.
func NewStatic() *Static {
	return &Static{channels: map[string]*model.ChannelSubscriptions{}}
}

// Put seeds one subscription. Called during bootstrap only.
func (s *Static) Put(dest model.Destination, roomID int64, st model.Streamer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[dest.Key()]
	if !ok {
		ch = &model.ChannelSubscriptions{
			Destination: dest,
			Rooms:       map[int64]model.Streamer{},
		}
		s.channels[dest.Key()] = ch
	}
	ch.Rooms[roomID] = st
}

// AllChannels returns every seeded channel.
func (s *Static) AllChannels(_ context.Context) ([]model.ChannelSubscriptions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channels := make([]model.ChannelSubscriptions, 0, len(s.channels))
	for _, ch := range s.channels {
		channels = append(channels, model.ChannelSubscriptions{
			Destination: ch.Destination,
			Rooms:       copyRooms(ch.Rooms),
		})
	}
	return channels, nil
}

// ChannelSubscriptions returns one channel's subscription map.
func (s *Static) ChannelSubscriptions(_ context.Context, platform, channelID string) (map[int64]model.Streamer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[platform+":"+channelID]
	if !ok {
		return map[int64]model.Streamer{}, nil
	}
	return copyRooms(ch.Rooms), nil
}

// UpsertSubscription always fails: the static set is fixed at startup.
func (s *Static) UpsertSubscription(context.Context, model.Destination, int64, model.Streamer) error {
	return ErrReadOnly
}

// RemoveSubscription always fails: the static set is fixed at startup.
func (s *Static) RemoveSubscription(context.Context, model.Destination, int64) error {
	return ErrReadOnly
}

// UpdateUsername refreshes the in-memory display name cache.
func (s *Static) UpdateUsername(_ context.Context, roomID int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.channels {
		if st, ok := ch.Rooms[roomID]; ok {
			st.Username = username
			ch.Rooms[roomID] = st
		}
	}
	return nil
}

// ResolveAssignees returns the destinations unchanged: static
// destinations carry their assignee from configuration.
func (s *Static) ResolveAssignees(_ context.Context, dests []model.Destination) ([]model.Destination, error) {
	return dests, nil
}

// Writable reports that the static set cannot be mutated.
func (s *Static) Writable() bool {
	return false
}

// Close is a no-op.
func (s *Static) Close() error {
	return nil
}

func copyRooms(rooms map[int64]model.Streamer) map[int64]model.Streamer {
	cp := make(map[int64]model.Streamer, len(rooms))
	for k, v := range rooms {
		cp[k] = v
	}
	return cp
}
