package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tycoon/internal/announce"
	"tycoon/internal/config"
	"tycoon/internal/game"
	"tycoon/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("store open failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	svc := game.NewService(st, game.DefaultRules(), logger)

	var announcer announce.Announcer
	if cfg.DiscordWebhookURL != "" {
		hook, err := announce.NewDiscordWebhook(cfg.DiscordWebhookURL)
		if err != nil {
			logger.Error("discord webhook init failed", "err", err)
			os.Exit(1)
		}
		announcer = hook
	}

	worker := announce.NewWorker(svc, announcer, logger, cfg.PruneAfter, cfg.LeaderboardSize)
	if cfg.RunOnce {
		if err := worker.RunOnce(ctx); err != nil {
			logger.Error("tick failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}
	worker.Run(ctx, cfg.PruneEvery)
}
