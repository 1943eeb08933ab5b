package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gameshow-service/internal/app"
	"gameshow-service/internal/config"
	"gameshow-service/internal/infra/file"
	"gameshow-service/internal/infra/memory"
	pginfra "gameshow-service/internal/infra/postgres"
	redisinfra "gameshow-service/internal/infra/redis"
	sqliteinfra "gameshow-service/internal/infra/sqlite"
	"gameshow-service/internal/store"
	transport "gameshow-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

const defaultContentTTL = 10 * time.Minute

func loadConfig(flags *rootFlags) (config.Config, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if flags.port != "" {
		cfg.Server.Port = flags.port
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// deps holds the connections shared by the commands. Zero fields are
// dependencies the config leaves out.
type deps struct {
	logger  *slog.Logger
	redis   *redis.Client
	pool    *pgxpool.Pool
	bun     *bun.DB
	sqlite  *sqliteinfra.ContentStore
	closers []func()
}

func openDeps(ctx context.Context, cfg config.Config, logger *slog.Logger) (*deps, error) {
	d := &deps{logger: logger}
	if cfg.Redis.Addr != "" {
		if err := d.openRedis(ctx, cfg.Redis); err != nil {
			d.close()
			return nil, err
		}
		logger.Info("connected to redis", "addr", cfg.Redis.Addr)
	}
	if cfg.Postgres.URL != "" {
		d.bun = pginfra.OpenBun(cfg.Postgres.URL)
		d.closers = append(d.closers, func() { _ = d.bun.Close() })
		group, err := pginfra.Migrate(ctx, d.bun)
		if err != nil {
			d.close()
			return nil, err
		}
		if !group.IsZero() {
			logger.Info("migrations applied", "group", group.String())
		}
		d.pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		d.closers = append(d.closers, d.pool.Close)
		logger.Info("connected to postgres")
	}
	if cfg.SQLite.Path != "" {
		s, err := sqliteinfra.Open(cfg.SQLite.Path)
		if err != nil {
			d.close()
			return nil, err
		}
		d.sqlite = s
		d.closers = append(d.closers, func() { _ = s.Close() })
		logger.Info("opened sqlite content store", "path", cfg.SQLite.Path)
	}
	return d, nil
}

// openRedis registers the client's closer before pinging, so a failed ping
// still releases it on close.
func (d *deps) openRedis(ctx context.Context, cfg config.RedisConfig) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	d.redis = client
	d.closers = append(d.closers, func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// contentLoader picks the backing store of authored questions: Postgres,
// then SQLite, then a YAML file.
func (d *deps) contentLoader(cfg config.Config) (memory.ContentLoader, error) {
	switch {
	case d.pool != nil:
		return pginfra.NewContentLoader(d.pool), nil
	case d.sqlite != nil:
		return d.sqlite, nil
	case cfg.Content.File != "":
		qs, err := file.ReadQuestions(cfg.Content.File)
		if err != nil {
			return nil, err
		}
		d.logger.Info("loaded content file", "path", cfg.Content.File, "questions", len(qs))
		return memory.NewStaticContentLoader(qs...), nil
	}
	d.logger.Warn("no content source configured; every question lookup will fail")
	return memory.NewStaticContentLoader(), nil
}

func (d *deps) engine(cfg config.Config) (*app.Engine, error) {
	loader, err := d.contentLoader(cfg)
	if err != nil {
		return nil, err
	}
	ttl := config.TTLDuration(cfg.Content.TTL, defaultContentTTL)

	var st store.Store
	var content app.ContentRepository
	if d.redis != nil {
		var opts []redisinfra.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redisinfra.WithPrefix(cfg.Redis.Prefix))
		}
		st = redisinfra.NewStore(d.redis, opts...)
		content = redisinfra.NewContentRepository(d.redis, loader, ttl)
	} else {
		st = memory.NewStore()
		content = memory.NewContentRepository(loader, ttl)
	}

	opts := []app.Option{app.WithLogger(d.logger)}
	if d.bun != nil {
		opts = append(opts, app.WithEventSink(pginfra.NewEventArchive(d.bun)))
	}
	return app.NewEngine(st, content, opts...), nil
}

func (d *deps) checkers() map[string]transport.Checker {
	checks := map[string]transport.Checker{}
	if d.redis != nil {
		checks["redis"] = transport.CheckerFunc(func(ctx context.Context) error { return d.redis.Ping(ctx).Err() })
	}
	if d.pool != nil {
		checks["postgres"] = transport.CheckerFunc(d.pool.Ping)
	}
	if d.sqlite != nil {
		checks["sqlite"] = transport.CheckerFunc(d.sqlite.Ping)
	}
	return checks
}
