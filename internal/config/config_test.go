package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: "9000"
redis:
  addr: localhost:6379
content:
  ttl: 5m
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GAMESHOW_REDIS_ADDR", "redis:6380")
	t.Setenv("GAMESHOW_POSTGRES_URL", "postgres://quiz@db/quiz")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("expected yaml port, got %q", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Fatalf("expected env override, got %q", cfg.Redis.Addr)
	}
	if cfg.Postgres.URL != "postgres://quiz@db/quiz" {
		t.Fatalf("expected env-only value, got %q", cfg.Postgres.URL)
	}
	if TTLDuration(cfg.Content.TTL, time.Minute) != 5*time.Minute {
		t.Fatalf("unexpected ttl %q", cfg.Content.TTL)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.Log.SlogLevel())
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("GAMESHOW_SERVER_PORT", "7000")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Fatalf("expected env port, got %q", cfg.Server.Port)
	}
	if cfg.Log.SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected info by default")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("bogus", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("", 2*time.Second); got != 2*time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func TestLoadDotEnvIgnoresMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("missing .env must be ignored, got %v", err)
	}
}
