package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"blive_bot/internal/bilibili"
	"blive_bot/internal/icon"
	"blive_bot/internal/model"
	"blive_bot/internal/monitor"
	"blive_bot/internal/storage"
	"blive_bot/internal/subs"
)

// --- mocks ---

type sentMsg struct {
	ChatID  int64
	Text    string
	IsPhoto bool
}

type mockAPI struct {
	mu   sync.Mutex
	sent []sentMsg
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch msg := c.(type) {
	case tgbotapi.MessageConfig:
		m.sent = append(m.sent, sentMsg{ChatID: msg.ChatID, Text: msg.Text})
	case tgbotapi.PhotoConfig:
		m.sent = append(m.sent, sentMsg{ChatID: msg.ChatID, Text: msg.Caption, IsPhoto: true})
	}
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (m *mockAPI) StopReceivingUpdates() {}

func (m *mockAPI) last() sentMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMsg{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockAPI) lastText() string {
	return m.last().Text
}

func (m *mockAPI) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

type mockBilibili struct {
	statuses map[int64]*bilibili.Status
	users    map[int64]*bilibili.User
	search   *bilibili.SearchResult
	err      error
}

func (m *mockBilibili) GetStatus(_ context.Context, roomID int64) (*bilibili.Status, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.statuses[roomID]
	if !ok {
		return nil, &bilibili.APIError{Code: 1}
	}
	return s, nil
}

func (m *mockBilibili) GetUser(_ context.Context, uid int64) (*bilibili.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[uid]
	if !ok {
		return nil, &bilibili.APIError{Code: 1}
	}
	return u, nil
}

func (m *mockBilibili) Search(_ context.Context, _ string, _ int) (*bilibili.SearchResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.search, nil
}

// --- helpers ---

func defaultBilibili() *mockBilibili {
	return &mockBilibili{
		statuses: map[int64]*bilibili.Status{
			123: {ID: 123, UID: 55, Live: false},
		},
		users: map[int64]*bilibili.User{
			55: {UID: 55, Username: "streamer", RoomID: 123, HasRoom: true},
		},
	}
}

func newTestBot(t *testing.T, upstream *mockBilibili) (*Bot, *mockAPI, *storage.SQLite) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := subs.New(store, monitor.NewIndex(), upstream, log, 2, 10, 10)

	api := &mockAPI{}
	b := &Bot{
		api:      api,
		service:  service,
		icons:    icon.Passthrough{},
		log:      log,
		assignee: "testbot",
	}
	return b, api, store
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("reply missing %q, got:\n%s", want, got)
	}
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

// --- handler tests ---

func TestHandleStart(t *testing.T) {
	b, api, _ := newTestBot(t, defaultBilibili())
	b.handleStart(100)
	requireContains(t, api.lastText(), "Welcome to Bilibili Live Notify Bot")
}

func TestHandleHelp(t *testing.T) {
	b, api, _ := newTestBot(t, defaultBilibili())
	b.handleHelp(100)
	requireContains(t, api.lastText(), "/add")
	requireContains(t, api.lastText(), "/search")
}

func TestHandleAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("empty args", func(t *testing.T) {
		b, api, _ := newTestBot(t, defaultBilibili())
		b.handleAdd(ctx, 100, "")
		requireContains(t, api.lastText(), "Usage: /add")
	})

	t.Run("room not found", func(t *testing.T) {
		b, api, _ := newTestBot(t, defaultBilibili())
		b.handleAdd(ctx, 100, "999")
		requireContains(t, api.lastText(), "Room 999 not found")
	})

	t.Run("network error", func(t *testing.T) {
		b, api, _ := newTestBot(t, &mockBilibili{err: &bilibili.APIError{Code: bilibili.CodeNetwork}})
		b.handleAdd(ctx, 100, "123")
		requireContains(t, api.lastText(), "Network error")
	})

	t.Run("success", func(t *testing.T) {
		b, api, store := newTestBot(t, defaultBilibili())
		b.handleAdd(ctx, 100, "123")
		requireContains(t, api.lastText(), "Subscribed to streamer (UID 55, room 123)")

		subscriptions, _ := store.ChannelSubscriptions(ctx, model.PlatformTelegram, "100")
		if diff := cmp.Diff(1, len(subscriptions)); diff != "" {
			t.Errorf("subscription count (-want +got):\n%s", diff)
		}
	})

	t.Run("already subscribed", func(t *testing.T) {
		b, api, _ := newTestBot(t, defaultBilibili())
		b.handleAdd(ctx, 100, "123")
		b.handleAdd(ctx, 100, "123")
		requireContains(t, api.lastText(), "Already subscribed")
	})

	t.Run("cap reached", func(t *testing.T) {
		upstream := defaultBilibili()
		upstream.statuses[456] = &bilibili.Status{ID: 456, UID: 66}
		upstream.users[66] = &bilibili.User{UID: 66, Username: "other", RoomID: 456}
		upstream.statuses[789] = &bilibili.Status{ID: 789, UID: 77}
		upstream.users[77] = &bilibili.User{UID: 77, Username: "third", RoomID: 789}

		b, api, _ := newTestBot(t, upstream)
		b.handleAdd(ctx, 100, "123")
		b.handleAdd(ctx, 100, "456")
		b.handleAdd(ctx, 100, "789")
		requireContains(t, api.lastText(), "maximum of 2 subscriptions")
	})
}

func TestHandleRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("bad args", func(t *testing.T) {
		b, api, _ := newTestBot(t, defaultBilibili())
		b.handleRemove(ctx, 100, "abc")
		requireContains(t, api.lastText(), "Usage: /remove")
	})

	t.Run("not subscribed", func(t *testing.T) {
		b, api, _ := newTestBot(t, defaultBilibili())
		b.handleRemove(ctx, 100, "123")
		requireContains(t, api.lastText(), "not subscribed in this chat")
	})

	t.Run("success", func(t *testing.T) {
		b, api, store := newTestBot(t, defaultBilibili())
		b.handleAdd(ctx, 100, "123")
		b.handleRemove(ctx, 100, "123")
		requireContains(t, api.lastText(), "Unsubscribed from streamer (UID 55, room 123)")

		subscriptions, _ := store.ChannelSubscriptions(ctx, model.PlatformTelegram, "100")
		if diff := cmp.Diff(0, len(subscriptions)); diff != "" {
			t.Errorf("subscription count (-want +got):\n%s", diff)
		}
	})
}

func TestHandleList(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		b, api, _ := newTestBot(t, defaultBilibili())
		b.handleList(ctx, 100, "")
		requireContains(t, api.lastText(), "no subscriptions yet")
	})

	t.Run("with subscriptions", func(t *testing.T) {
		b, api, _ := newTestBot(t, defaultBilibili())
		b.handleAdd(ctx, 100, "123")
		b.handleList(ctx, 100, "")
		requireContains(t, api.lastText(), "streamer (UID 55, room 123)")
	})
}

func TestHandleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("bad args", func(t *testing.T) {
		b, api, _ := newTestBot(t, defaultBilibili())
		b.handleSearch(ctx, 100, "")
		requireContains(t, api.lastText(), "usage: /search")
	})

	t.Run("by room sends profile with avatar", func(t *testing.T) {
		upstream := defaultBilibili()
		upstream.users[55].IconURL = "https://i0.hdslb.com/face.jpg"
		b, api, _ := newTestBot(t, upstream)

		b.handleSearch(ctx, 100, "123")
		last := api.last()
		requireContains(t, last.Text, "streamer (UID 55, room 123)")
		if !last.IsPhoto {
			t.Error("expected the profile reply as a photo caption")
		}
	})

	t.Run("by uid", func(t *testing.T) {
		b, api, _ := newTestBot(t, defaultBilibili())
		b.handleSearch(ctx, 100, "-u 55")
		requireContains(t, api.lastText(), "streamer (UID 55, room 123)")
	})

	t.Run("uid not found", func(t *testing.T) {
		b, api, _ := newTestBot(t, defaultBilibili())
		b.handleSearch(ctx, 100, "-u 999")
		requireContains(t, api.lastText(), "User 999 not found")
	})

	t.Run("by name", func(t *testing.T) {
		upstream := defaultBilibili()
		upstream.search = &bilibili.SearchResult{
			Total: 2,
			Items: []bilibili.SearchItem{
				{UID: 55, Username: "chess_a", RoomID: 123},
				{UID: 66, Username: "chess_b", RoomID: 456},
			},
		}
		b, api, _ := newTestBot(t, upstream)
		b.handleSearch(ctx, 100, "-n chess")
		requireContains(t, api.lastText(), "Found 2 broadcaster(s)")
		requireContains(t, api.lastText(), "chess_a")
	})

	t.Run("by name no results", func(t *testing.T) {
		upstream := defaultBilibili()
		upstream.search = &bilibili.SearchResult{}
		b, api, _ := newTestBot(t, upstream)
		b.handleSearch(ctx, 100, "-n nobody")
		requireContains(t, api.lastText(), "No broadcaster found")
	})
}

func TestHandleCommand(t *testing.T) {
	ctx := context.Background()

	makeMsg := func(cmd, args string) *tgbotapi.Message {
		text := "/" + cmd
		if args != "" {
			text += " " + args
		}
		return &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: 100},
			Text: text,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len("/" + cmd)},
			},
		}
	}

	b, api, _ := newTestBot(t, defaultBilibili())

	cmds := []struct {
		cmd      string
		args     string
		contains string
	}{
		{"start", "", "Welcome"},
		{"help", "", "/add"},
		{"add", "123", "Subscribed"},
		{"list", "", "streamer"},
		{"remove", "123", "Unsubscribed"},
		{"unknown_cmd", "", "Unknown command"},
	}

	for _, tc := range cmds {
		api.reset()
		b.handleCommand(ctx, makeMsg(tc.cmd, tc.args))
		requireContains(t, api.lastText(), tc.contains)
	}
}

func TestStaticModeDisablesMutations(t *testing.T) {
	ctx := context.Background()

	static := storage.NewStatic()
	static.Put(model.Destination{
		Platform: model.PlatformTelegram, ChannelID: "100", Assignee: "testbot",
	}, 123, model.Streamer{UID: 55, Username: "streamer"})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := subs.New(static, monitor.NewIndex(), defaultBilibili(), log, 10, 10, 10)
	api := &mockAPI{}
	b := &Bot{api: api, service: service, icons: icon.Passthrough{}, log: log, assignee: "testbot"}

	b.handleAdd(ctx, 100, "456")
	requireContains(t, api.lastText(), "fixed by configuration")

	b.handleRemove(ctx, 100, "123")
	requireContains(t, api.lastText(), "fixed by configuration")

	// Read commands stay available.
	b.handleList(ctx, 100, "")
	requireContains(t, api.lastText(), "streamer (UID 55, room 123)")
}
