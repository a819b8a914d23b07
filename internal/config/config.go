package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr        string
	DatabaseURL string
	BalanceFile string
	RateLimit   float64
	RateBurst   int
}

type WorkerConfig struct {
	DatabaseURL       string
	PruneEvery        time.Duration
	PruneAfter        time.Duration
	DiscordWebhookURL string
	LeaderboardSize   int
	RunOnce           bool
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("TYCOON_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:        addr,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		BalanceFile: strings.TrimSpace(os.Getenv("TYCOON_BALANCE_FILE")),
		RateLimit:   envFloatDefault("TYCOON_RATE_LIMIT", 10),
		RateBurst:   envIntDefault("TYCOON_RATE_BURST", 20),
	}
	if cfg.RateLimit <= 0 {
		return cfg, fmt.Errorf("TYCOON_RATE_LIMIT must be > 0")
	}
	if cfg.RateBurst <= 0 {
		return cfg, fmt.Errorf("TYCOON_RATE_BURST must be > 0")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		PruneEvery:        envDurationDefault("TYCOON_PRUNE_EVERY", time.Hour),
		PruneAfter:        envDurationDefault("TYCOON_PRUNE_AFTER", 30*24*time.Hour),
		DiscordWebhookURL: strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL")),
		LeaderboardSize:   envIntDefault("TYCOON_ANNOUNCE_TOP", 10),
		RunOnce:           envBoolDefault("TYCOON_WORKER_RUN_ONCE", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.PruneEvery <= 0 {
		return cfg, fmt.Errorf("TYCOON_PRUNE_EVERY must be > 0")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("GTT_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
