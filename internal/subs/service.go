// Package subs implements the add/remove/list/search subscription
// operations, keeping the store and the monitor index in lockstep.
package subs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"blive_bot/internal/bilibili"
	"blive_bot/internal/model"
	"blive_bot/internal/monitor"
	"blive_bot/internal/storage"
)

// Local validation failures, resolved without any upstream call.
var (
	ErrAlreadySubscribed = errors.New("room already subscribed")
	ErrLimitReached      = errors.New("subscription limit reached")
	ErrNotSubscribed     = errors.New("room not subscribed")
	ErrReadOnly          = storage.ErrReadOnly
)

// API is the slice of the Bilibili client the command layer needs.
type API interface {
	GetStatus(ctx context.Context, roomID int64) (*bilibili.Status, error)
	GetUser(ctx context.Context, uid int64) (*bilibili.User, error)
	Search(ctx context.Context, keyword string, limit int) (*bilibili.SearchResult, error)
}

// Service mutates subscriptions. Store writes and index updates happen
// within a single call, so the poll loop never observes one without the
// other.
type Service struct {
	store storage.Store
	index *monitor.Index
	api   API
	log   *slog.Logger

	maxSubs     int
	pageLimit   int
	searchLimit int
}

// New creates a Service.
func New(store storage.Store, index *monitor.Index, api API, log *slog.Logger, maxSubs, pageLimit, searchLimit int) *Service {
	return &Service{
		store:       store,
		index:       index,
		api:         api,
		log:         log,
		maxSubs:     maxSubs,
		pageLimit:   pageLimit,
		searchLimit: searchLimit,
	}
}

// Subscription is the outcome of a successful Add or Remove.
type Subscription struct {
	RoomID   int64
	UID      int64
	Username string
}

// Add subscribes dest to the room the user entered. The entered id may
// be a short id; the canonical id from the status lookup is what gets
// stored. The cap and the raw-id duplicate check run before any
// upstream call.
func (s *Service) Add(ctx context.Context, dest model.Destination, roomID int64) (*Subscription, error) {
	if !s.store.Writable() {
		return nil, ErrReadOnly
	}

	subs, err := s.store.ChannelSubscriptions(ctx, dest.Platform, dest.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}

	if len(subs) >= s.maxSubs {
		return nil, ErrLimitReached
	}
	if st, ok := subs[roomID]; ok {
		return &Subscription{RoomID: roomID, UID: st.UID, Username: st.Username}, ErrAlreadySubscribed
	}

	status, err := s.api.GetStatus(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if st, ok := subs[status.ID]; ok {
		return &Subscription{RoomID: status.ID, UID: st.UID, Username: st.Username}, ErrAlreadySubscribed
	}

	user, err := s.api.GetUser(ctx, status.UID)
	if err != nil {
		return nil, err
	}

	streamer := model.Streamer{UID: user.UID, Username: user.Username}
	if err := s.store.UpsertSubscription(ctx, dest, user.RoomID, streamer); err != nil {
		return nil, fmt.Errorf("persist subscription: %w", err)
	}

	live := status.Live
	s.index.Add(dest, user.RoomID, user.UID, user.Username, &live)

	s.log.Info("subscription added",
		"platform", dest.Platform,
		"channel_id", dest.ChannelID,
		"room_id", user.RoomID,
		"uid", user.UID)

	return &Subscription{RoomID: user.RoomID, UID: user.UID, Username: user.Username}, nil
}

// Remove unsubscribes dest from a room. The entered id is tried as-is
// first; if absent it is resolved to the canonical id and retried, which
// handles short-form ids differing from the stored key.
func (s *Service) Remove(ctx context.Context, dest model.Destination, roomID int64) (*Subscription, error) {
	if !s.store.Writable() {
		return nil, ErrReadOnly
	}

	subs, err := s.store.ChannelSubscriptions(ctx, dest.Platform, dest.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}

	if st, ok := subs[roomID]; ok {
		return s.drop(ctx, dest, roomID, st)
	}

	status, err := s.api.GetStatus(ctx, roomID)
	if err != nil {
		if bilibili.IsTransient(err) {
			return nil, err
		}
		// The room does not exist upstream, so it cannot be stored
		// under any canonical id either.
		return nil, ErrNotSubscribed
	}
	if st, ok := subs[status.ID]; ok {
		return s.drop(ctx, dest, status.ID, st)
	}

	return nil, ErrNotSubscribed
}

func (s *Service) drop(ctx context.Context, dest model.Destination, roomID int64, st model.Streamer) (*Subscription, error) {
	if err := s.store.RemoveSubscription(ctx, dest, roomID); err != nil {
		return nil, fmt.Errorf("remove subscription: %w", err)
	}
	s.index.Remove(dest, roomID)

	s.log.Info("subscription removed",
		"platform", dest.Platform,
		"channel_id", dest.ChannelID,
		"room_id", roomID)

	return &Subscription{RoomID: roomID, UID: st.UID, Username: st.Username}, nil
}

// Page is one page of a channel's subscription listing.
type Page struct {
	Entries []Subscription
	Page    int
	MaxPage int
	Total   int
}

// List returns one page of dest's subscriptions, sorted by ascending
// room id. Out-of-range page numbers clamp to [1, MaxPage].
func (s *Service) List(ctx context.Context, dest model.Destination, page int) (*Page, error) {
	subs, err := s.store.ChannelSubscriptions(ctx, dest.Platform, dest.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}

	rooms := make([]int64, 0, len(subs))
	for id := range subs {
		rooms = append(rooms, id)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })

	total := len(rooms)
	maxPage := 1
	if total > s.pageLimit {
		maxPage = (total + s.pageLimit - 1) / s.pageLimit
	}
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}

	start := (page - 1) * s.pageLimit
	end := start + s.pageLimit
	if end > total {
		end = total
	}

	p := &Page{Page: page, MaxPage: maxPage, Total: total}
	for _, id := range rooms[start:end] {
		st := subs[id]
		p.Entries = append(p.Entries, Subscription{RoomID: id, UID: st.UID, Username: st.Username})
	}
	return p, nil
}

// SearchMode selects how a search keyword is interpreted.
type SearchMode int

// Supported search modes. Room id search is the default.
const (
	SearchByRoom SearchMode = iota
	SearchByUID
	SearchByName
)

// SearchUser performs a room-id or uid search, returning the matching
// broadcaster's profile.
func (s *Service) SearchUser(ctx context.Context, mode SearchMode, id int64) (*bilibili.User, error) {
	uid := id
	if mode == SearchByRoom {
		status, err := s.api.GetStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		uid = status.UID
	}
	return s.api.GetUser(ctx, uid)
}

// SearchName performs a display-name search.
func (s *Service) SearchName(ctx context.Context, keyword string) (*bilibili.SearchResult, error) {
	return s.api.Search(ctx, keyword, s.searchLimit)
}

// SearchLimit returns the configured maximum of name-search results.
func (s *Service) SearchLimit() int {
	return s.searchLimit
}

// MaxSubs returns the configured per-channel subscription cap.
func (s *Service) MaxSubs() int {
	return s.maxSubs
}

// Writable reports whether runtime add/remove commands are available.
func (s *Service) Writable() bool {
	return s.store.Writable()
}
