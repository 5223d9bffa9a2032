package monitor

import (
	"context"
	"fmt"

	"blive_bot/internal/storage"
)

// BuildIndex constructs the index from every subscription the store
// knows about. live seeds the initial live flag per room (static-mode
// bootstrap observes it while resolving rooms); rooms absent from the
// map start unobserved, so their first poll is silent.
func BuildIndex(ctx context.Context, store storage.Store, live map[int64]bool) (*Index, error) {
	channels, err := store.AllChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}

	ix := NewIndex()
	for _, ch := range channels {
		for roomID, st := range ch.Rooms {
			var flag *bool
			if l, ok := live[roomID]; ok {
				flag = &l
			}
			ix.Add(ch.Destination, roomID, st.UID, st.Username, flag)
		}
	}
	return ix, nil
}
