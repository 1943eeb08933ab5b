package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GAMESHOW_"

type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Postgres PostgresConfig `yaml:"postgres" envPrefix:"POSTGRES_"`
	SQLite   SQLiteConfig   `yaml:"sqlite" envPrefix:"SQLITE_"`
	Content  ContentConfig  `yaml:"content" envPrefix:"CONTENT_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	OTel     OTelConfig     `yaml:"otel" envPrefix:"OTEL_"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"PORT"`
	// PublicURL is the base URL players open to join; it is encoded in the
	// join QR code. Defaults to the request host.
	PublicURL string `yaml:"publicUrl" env:"PUBLIC_URL"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	// Prefix namespaces every store key.
	Prefix string `yaml:"prefix" env:"PREFIX"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"URL"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

type ContentConfig struct {
	TTL string `yaml:"ttl" env:"TTL"`
	// File is a YAML content file used when no database is configured.
	File string `yaml:"file" env:"FILE"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type OTelConfig struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"serviceName" env:"SERVICE_NAME"`
}

// Load reads YAML config from path, when set, then applies GAMESHOW_*
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// SlogLevel returns the configured log level, info by default.
func (c LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.Level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
