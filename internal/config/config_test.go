package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var configVars = []string{
	"TELEGRAM_BOT_TOKEN", "DISCORD_BOT_TOKEN", "DATABASE_PATH", "LOG_LEVEL",
	"SESSDATA", "POLL_INTERVAL", "BROADCAST_DELAY", "PAGE_LIMIT",
	"SEARCH_LIMIT", "MAX_SUBS_PER_CHANNEL", "ICON_MODE", "SUBSCRIPTIONS_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "missing token",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "token only, defaults applied",
			env:  map[string]string{"TELEGRAM_BOT_TOKEN": "test-token"},
			want: &Config{
				TelegramBotToken: "test-token",
				DatabasePath:     "./data/bot.db",
				LogLevel:         "info",
				PollInterval:     60 * time.Second,
				BroadcastDelay:   500 * time.Millisecond,
				PageLimit:        10,
				SearchLimit:      10,
				MaxSubsPerChat:   10,
				IconMode:         IconResize,
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":   "tok",
				"DISCORD_BOT_TOKEN":    "dtok",
				"DATABASE_PATH":        "/tmp/bot.db",
				"LOG_LEVEL":            "debug",
				"SESSDATA":             "cookie",
				"POLL_INTERVAL":        "2m",
				"BROADCAST_DELAY":      "1s",
				"PAGE_LIMIT":           "5",
				"SEARCH_LIMIT":         "20",
				"MAX_SUBS_PER_CHANNEL": "3",
				"ICON_MODE":            "passthrough",
			},
			want: &Config{
				TelegramBotToken: "tok",
				DiscordBotToken:  "dtok",
				DatabasePath:     "/tmp/bot.db",
				LogLevel:         "debug",
				Sessdata:         "cookie",
				PollInterval:     2 * time.Minute,
				BroadcastDelay:   time.Second,
				PageLimit:        5,
				SearchLimit:      20,
				MaxSubsPerChat:   3,
				IconMode:         IconPassthrough,
			},
		},
		{
			name: "invalid icon mode",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ICON_MODE":          "crop",
			},
			wantErr: true,
		},
		{
			name: "poll interval below a second",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"POLL_INTERVAL":      "100ms",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func writeSubsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subscriptions.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write subscriptions file: %v", err)
	}
	return path
}

func TestLoadSubscriptionsFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []StaticSubscription
		wantErr bool
	}{
		{
			name: "valid list",
			content: `[
				{"platform": "telegram", "assignee": "mybot", "room": 123, "channel": "100"},
				{"platform": "discord", "assignee": "otherbot", "room": 456, "channel": "200", "guild": "g1"}
			]`,
			want: []StaticSubscription{
				{Platform: "telegram", Assignee: "mybot", Room: 123, Channel: "100"},
				{Platform: "discord", Assignee: "otherbot", Room: 456, Channel: "200", Guild: "g1"},
			},
		},
		{
			name:    "invalid json",
			content: `{not json`,
			wantErr: true,
		},
		{
			name:    "missing assignee",
			content: `[{"platform": "telegram", "room": 123, "channel": "100"}]`,
			wantErr: true,
		},
		{
			name:    "missing room",
			content: `[{"platform": "telegram", "assignee": "mybot", "channel": "100"}]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
			t.Setenv("SUBSCRIPTIONS_FILE", writeSubsFile(t, tt.content))

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.StaticMode() {
				t.Error("expected static mode when SUBSCRIPTIONS_FILE is set")
			}
			if diff := cmp.Diff(tt.want, got.Subscriptions); diff != "" {
				t.Errorf("subscriptions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadSubscriptionsFileMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("SUBSCRIPTIONS_FILE", filepath.Join(t.TempDir(), "nope.json"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestStaticMode(t *testing.T) {
	if (&Config{}).StaticMode() {
		t.Error("expected dynamic mode without a subscriptions file")
	}
	if !(&Config{SubscriptionsFile: "subs.json"}).StaticMode() {
		t.Error("expected static mode with a subscriptions file")
	}
}
