// Command notify-worker consumes scheduled notification jobs and serves
// liveness and readiness probes.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/stdlib"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/civicworks/notifyhub/db"
	"github.com/civicworks/notifyhub/pkg/config"
	"github.com/civicworks/notifyhub/pkg/environment"
	"github.com/civicworks/notifyhub/pkg/httpserver"
	"github.com/civicworks/notifyhub/pkg/hub"
	"github.com/civicworks/notifyhub/pkg/logger"
	"github.com/civicworks/notifyhub/pkg/pg"
	"github.com/civicworks/notifyhub/pkg/redis"
)

type appConfig struct {
	App  environment.Config
	HTTP httpserver.Config
	Hub  hub.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad[appConfig]()
	env := cfg.App.Environment()
	log := logger.New(
		logger.WithEnvironment(env, cfg.App.Service),
		logger.WithContextExtractors(environment.LoggerExtractor()),
	)
	ctx = environment.WithContext(ctx, env)

	if err := run(ctx, cfg, log); err != nil {
		log.LogAttrs(ctx, slog.LevelError, "notify-worker stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	opts := []hub.Option{hub.WithLogger(log)}
	checks := map[string]httpserver.Check{}

	if cfg.Hub.Postgres.Enabled() {
		pool, err := pg.Connect(ctx, cfg.Hub.Postgres)
		if err != nil {
			return err
		}
		defer pool.Close()

		if cfg.Hub.Postgres.AutoMigrate {
			if err := pg.Migrate(ctx, pool, db.Migrations, db.MigrationsDir, cfg.Hub.Postgres, log); err != nil {
				return err
			}
		}

		sqlDB := stdlib.OpenDBFromPool(pool)
		defer func(d *sql.DB) { _ = d.Close() }(sqlDB)

		opts = append(opts, hub.WithDB(sqlDB))
		checks["postgres"] = pg.Healthcheck(pool)
	} else {
		log.LogAttrs(ctx, slog.LevelWarn, "PG_CONN_URL not set, running with in-memory storage")
	}

	if cfg.Hub.Redis.Enabled() {
		rdb, err := redis.Connect(ctx, cfg.Hub.Redis)
		if err != nil {
			return err
		}
		defer func(c *goredis.Client) { _ = c.Close() }(rdb)

		opts = append(opts, hub.WithRedis(rdb))
		checks["redis"] = redis.Healthcheck(rdb)
	}

	h, err := hub.New(ctx, cfg.Hub, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.LogAttrs(ctx, slog.LevelError, "failed to close hub", logger.Error(err))
		}
	}()

	worker, err := h.NewWorker()
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(log, 2*time.Second, checks))

	srv := httpserver.New(cfg.HTTP, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(worker.Run(ctx))
	g.Go(func() error { return srv.Run(ctx, r) })

	log.LogAttrs(ctx, slog.LevelInfo, "notify-worker started",
		slog.String("worker_id", worker.ID().String()),
		slog.String("addr", cfg.HTTP.Addr),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
