package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tycoon/internal/api"
	"tycoon/internal/config"
	"tycoon/internal/game"
	"tycoon/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	rules, err := config.LoadBalance(cfg.BalanceFile)
	if err != nil {
		logger.Error("load balance file failed", "err", err, "path", cfg.BalanceFile)
		os.Exit(1)
	}

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("store open failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, games are kept in memory only")
	}

	gameSvc := game.NewService(st, rules, logger)
	server := api.New(cfg, logger, gameSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("tycoon api listening", "addr", cfg.Addr, "total_days", rules.TotalDays)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
