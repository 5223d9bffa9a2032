// Package config handles application configuration from environment
// variables and the optional static subscriptions file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Icon processing modes.
const (
	IconPassthrough = "passthrough"
	IconResize      = "resize"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string        `env:"TELEGRAM_BOT_TOKEN"`
	DiscordBotToken  string        `env:"DISCORD_BOT_TOKEN"`
	DatabasePath     string        `env:"DATABASE_PATH" envDefault:"./data/bot.db"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	Sessdata         string        `env:"SESSDATA"`
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`
	BroadcastDelay   time.Duration `env:"BROADCAST_DELAY" envDefault:"500ms"`
	PageLimit        int           `env:"PAGE_LIMIT" envDefault:"10"`
	SearchLimit      int           `env:"SEARCH_LIMIT" envDefault:"10"`
	MaxSubsPerChat   int           `env:"MAX_SUBS_PER_CHANNEL" envDefault:"10"`
	IconMode         string        `env:"ICON_MODE" envDefault:"resize"`

	// SubscriptionsFile, when set, switches the bot to static mode:
	// the subscription set is fixed at startup and /add, /remove are
	// disabled.
	SubscriptionsFile string `env:"SUBSCRIPTIONS_FILE"`

	Subscriptions []StaticSubscription `env:"-"`
}

// StaticSubscription is one entry of the static subscriptions file.
type StaticSubscription struct {
	Platform string `json:"platform"`
	Assignee string `json:"assignee"`
	Room     int64  `json:"room"`
	Channel  string `json:"channel"`
	Guild    string `json:"guild,omitempty"`
}

// Load reads configuration from environment variables and, if
// SUBSCRIPTIONS_FILE is set, parses the static subscription list.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	switch cfg.IconMode {
	case IconPassthrough, IconResize:
	default:
		return nil, fmt.Errorf("invalid ICON_MODE %q, use: passthrough, resize", cfg.IconMode)
	}

	if cfg.PollInterval < time.Second {
		return nil, fmt.Errorf("POLL_INTERVAL must be at least 1s, got %s", cfg.PollInterval)
	}

	if cfg.SubscriptionsFile != "" {
		subs, err := loadSubscriptions(cfg.SubscriptionsFile)
		if err != nil {
			return nil, err
		}
		cfg.Subscriptions = subs
	}

	return cfg, nil
}

// StaticMode reports whether subscriptions come from the static file
// instead of the database.
func (c *Config) StaticMode() bool {
	return c.SubscriptionsFile != ""
}

func loadSubscriptions(path string) ([]StaticSubscription, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator's environment
	if err != nil {
		return nil, fmt.Errorf("read subscriptions file: %w", err)
	}

	var subs []StaticSubscription
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("parse subscriptions file: %w", err)
	}

	for i, s := range subs {
		if s.Platform == "" || s.Assignee == "" || s.Channel == "" || s.Room == 0 {
			return nil, fmt.Errorf("subscription %d: platform, assignee, room and channel are required", i)
		}
	}
	return subs, nil
}
