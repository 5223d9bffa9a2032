// Package monitor holds the in-memory room index and the polling engine
// that detects live/offline transitions and fans out notifications.
package monitor

import (
	"sync"

	"blive_bot/internal/model"
)

// Entry is the monitored state of one room: the broadcaster behind it,
// the last observed live flag, and every channel subscribed to it.
type Entry struct {
	UID          int64
	Username     string
	Live         *bool // nil until the first successful observation
	Destinations []model.Destination
}

// Index aggregates subscriptions by room id, so a room with many
// subscribers costs exactly one upstream call per poll cycle. It is the
// single structure the poll loop iterates; command handlers mutate it in
// lockstep with the store.
type Index struct {
	mu      sync.RWMutex
	entries map[int64]*Entry
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: map[int64]*Entry{}}
}

// Add inserts dest into the entry for roomID, creating the entry if
// absent. A destination already present for the room (same platform and
// channel id) is not duplicated. live may be nil when the room has not
// been observed yet.
func (ix *Index) Add(dest model.Destination, roomID, uid int64, username string, live *bool) *Index {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	e, ok := ix.entries[roomID]
	if !ok {
		ix.entries[roomID] = &Entry{
			UID:          uid,
			Username:     username,
			Live:         live,
			Destinations: []model.Destination{dest},
		}
		return ix
	}

	for _, d := range e.Destinations {
		if d.Same(dest) {
			return ix
		}
	}
	e.Destinations = append(e.Destinations, dest)
	return ix
}

// Remove filters dest out of the entry for roomID, deleting the entry
// entirely when its destination list becomes empty. Removing from an
// absent room is a no-op.
func (ix *Index) Remove(dest model.Destination, roomID int64) *Index {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	e, ok := ix.entries[roomID]
	if !ok {
		return ix
	}

	kept := e.Destinations[:0]
	for _, d := range e.Destinations {
		if !d.Same(dest) {
			kept = append(kept, d)
		}
	}
	e.Destinations = kept

	if len(e.Destinations) == 0 {
		delete(ix.entries, roomID)
	}
	return ix
}

// Rooms returns the currently monitored room ids.
func (ix *Index) Rooms() []int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	rooms := make([]int64, 0, len(ix.entries))
	for id := range ix.entries {
		rooms = append(rooms, id)
	}
	return rooms
}

// Peek returns a copy of the entry for roomID. The room may have been
// removed between Rooms and Peek, in which case ok is false.
func (ix *Index) Peek(roomID int64) (Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	e, ok := ix.entries[roomID]
	if !ok {
		return Entry{}, false
	}

	cp := *e
	cp.Destinations = append([]model.Destination(nil), e.Destinations...)
	return cp, true
}

// SetLive records the observed live flag for a room.
func (ix *Index) SetLive(roomID int64, live bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if e, ok := ix.entries[roomID]; ok {
		e.Live = &live
	}
}

// SetUsername refreshes the cached display name for a room.
func (ix *Index) SetUsername(roomID int64, username string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if e, ok := ix.entries[roomID]; ok {
		e.Username = username
	}
}

// Len returns the number of monitored rooms.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}
