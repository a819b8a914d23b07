package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tycoon/internal/game"
)

func TestLoadAPIFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TYCOON_API_ADDR", "")
	t.Setenv("TYCOON_RATE_LIMIT", "")
	t.Setenv("TYCOON_RATE_BURST", "")
	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.RateLimit != 10 || cfg.RateBurst != 20 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadAPIFromEnvPort(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TYCOON_RATE_LIMIT", "2.5")
	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9000" || cfg.RateLimit != 2.5 {
		t.Fatalf("got %+v", cfg)
	}

	t.Setenv("TYCOON_RATE_BURST", "0")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected error for zero burst")
	}
}

func TestLoadWorkerFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadWorkerFromEnv(); err == nil {
		t.Fatalf("expected DATABASE_URL error")
	}

	t.Setenv("DATABASE_URL", "sqlite:/tmp/tycoon.db")
	t.Setenv("TYCOON_PRUNE_EVERY", "not-a-duration")
	t.Setenv("TYCOON_PRUNE_AFTER", "48h")
	t.Setenv("TYCOON_WORKER_RUN_ONCE", "true")
	cfg, err := LoadWorkerFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PruneEvery != time.Hour || cfg.PruneAfter != 48*time.Hour || !cfg.RunOnce {
		t.Fatalf("got %+v", cfg)
	}
}

func TestLoadCLIFromEnvTrimsSlash(t *testing.T) {
	t.Setenv("GTT_API_BASE_URL", "https://tycoon.example.com/")
	if got := LoadCLIFromEnv().APIBaseURL; got != "https://tycoon.example.com" {
		t.Fatalf("got %q", got)
	}
}

func TestLoadBalance(t *testing.T) {
	rules, err := LoadBalance("")
	if err != nil || rules != game.DefaultRules() {
		t.Fatalf("empty path should give defaults, got %+v err %v", rules, err)
	}

	path := filepath.Join(t.TempDir(), "balance.yaml")
	body := "total_days: 60\ntravel_cost_per_day_cents: 20000\ncash_loss_chance: 0\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	rules, err = LoadBalance(path)
	if err != nil {
		t.Fatal(err)
	}
	if rules.TotalDays != 60 || rules.TravelCostPerDay != 20000 || rules.CashLossChance != 0 {
		t.Fatalf("overrides not applied: %+v", rules)
	}
	if rules.StartingCash != game.DefaultStartingCash {
		t.Fatalf("unset keys should keep defaults, got %d", rules.StartingCash)
	}

	if err := os.WriteFile(path, []byte("total_days: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBalance(path); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := LoadBalance(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}
