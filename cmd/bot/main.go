package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"blive_bot/internal/bilibili"
	"blive_bot/internal/bot"
	"blive_bot/internal/config"
	"blive_bot/internal/icon"
	"blive_bot/internal/model"
	"blive_bot/internal/monitor"
	"blive_bot/internal/sender"
	"blive_bot/internal/storage"
	"blive_bot/internal/subs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := bilibili.New(http.DefaultClient, cfg.Sessdata)

	var icons icon.Processor = icon.Passthrough{}
	if cfg.IconMode == config.IconResize {
		icons = icon.NewResizer(api)
	}

	store, seed, err := openStore(ctx, cfg, api, log)
	if err != nil {
		log.Error("open subscription store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	index, err := monitor.BuildIndex(ctx, store, seed)
	if err != nil {
		log.Error("build monitor index", "error", err)
		os.Exit(1)
	}
	log.Info("monitor index built", "rooms", index.Len(), "static_mode", cfg.StaticMode())

	tg, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Error("create telegram session", "error", err)
		os.Exit(1)
	}

	registry := sender.NewRegistry()
	telegramSender := sender.NewTelegram(tg)
	registry.Register(model.PlatformTelegram, tg.Self.UserName, telegramSender)

	var discordSender sender.Sender
	if cfg.DiscordBotToken != "" {
		dc, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			log.Error("create discord session", "error", err)
			os.Exit(1)
		}
		if err := dc.Open(); err != nil {
			log.Error("open discord session", "error", err)
			os.Exit(1)
		}
		defer func() { _ = dc.Close() }()
		discordSender = sender.NewDiscord(dc)
		registry.Register(model.PlatformDiscord, dc.State.User.ID, discordSender)
	}

	// Static-mode destinations carry assignees from configuration;
	// point them at the sessions we actually hold.
	for _, sub := range cfg.Subscriptions {
		switch sub.Platform {
		case model.PlatformTelegram:
			registry.Register(sub.Platform, sub.Assignee, telegramSender)
		case model.PlatformDiscord:
			if discordSender != nil {
				registry.Register(sub.Platform, sub.Assignee, discordSender)
			}
		}
	}

	service := subs.New(store, index, api, log, cfg.MaxSubsPerChat, cfg.PageLimit, cfg.SearchLimit)
	b := bot.New(tg, service, icons, log)

	poller := monitor.NewPoller(index, api, store, registry, icons, log)
	poller.SetInterval(cfg.PollInterval)
	poller.SetBroadcastDelay(cfg.BroadcastDelay)

	log.Info("starting bot")

	go poller.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
}

func openStore(ctx context.Context, cfg *config.Config, api *bilibili.Client, log *slog.Logger) (storage.Store, map[int64]bool, error) {
	if cfg.StaticMode() {
		store, seed, err := storage.BootstrapStatic(ctx, api, cfg.Subscriptions, log)
		if err != nil {
			return nil, nil, err
		}
		return store, seed, nil
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, err
		}
	}
	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
