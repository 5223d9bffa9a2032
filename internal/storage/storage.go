// Package storage defines the subscription store and its implementations.
package storage

import (
	"context"
	"errors"

	"blive_bot/internal/model"
)

// ErrReadOnly is returned by mutation methods of a store whose
// subscription set is fixed at startup.
var ErrReadOnly = errors.New("subscription store is read-only")

// Store is the interface for all subscription persistence operations.
type Store interface {
	// AllChannels returns every channel that has at least one subscription.
	AllChannels(ctx context.Context) ([]model.ChannelSubscriptions, error)

	// ChannelSubscriptions returns one channel's subscription map, or an
	// empty map if the channel has none.
	ChannelSubscriptions(ctx context.Context, platform, channelID string) (map[int64]model.Streamer, error)

	// UpsertSubscription records a subscription for the destination,
	// creating or refreshing the channel record as needed.
	UpsertSubscription(ctx context.Context, dest model.Destination, roomID int64, s model.Streamer) error

	// RemoveSubscription drops one subscription. Removing an absent
	// subscription is not an error.
	RemoveSubscription(ctx context.Context, dest model.Destination, roomID int64) error

	// UpdateUsername refreshes the cached display name of a broadcaster
	// across all channels subscribed to the room, in one write.
	UpdateUsername(ctx context.Context, roomID int64, username string) error

	// ResolveAssignees fills in the delivering bot identity for each
	// destination, dropping destinations that cannot be resolved.
	ResolveAssignees(ctx context.Context, dests []model.Destination) ([]model.Destination, error)

	// Writable reports whether subscriptions can be mutated at runtime.
	Writable() bool

	Close() error
}
