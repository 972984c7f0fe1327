package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"github.com/lborres/reel"
	fiberadapter "github.com/lborres/reel/adapters/fiber"
	"github.com/lborres/reel/adapters/memory"
	"github.com/lborres/reel/adapters/notify"
	pgxadapter "github.com/lborres/reel/adapters/pgx"
	sqliteadapter "github.com/lborres/reel/adapters/sqlite"
	"github.com/lborres/reel/internal/config"
	"github.com/lborres/reel/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "reel:", err)
		os.Exit(1)
	}
}

// run dispatches "serve" (the default) or "migrate"
func run(ctx context.Context, args []string) error {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	switch cmd {
	case "serve":
		return serve(ctx, cfg, log)
	case "migrate":
		return migrate(ctx, cfg, log)
	default:
		return fmt.Errorf("unknown command %q (want serve or migrate)", cmd)
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (reel.Storage, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := pgxadapter.Open(ctx, pgxadapter.PoolConfig{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := pgxadapter.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return pgxadapter.New(pool), nil

	case config.StoreSQLite:
		// the sqlite adapter always brings its schema up to date
		return sqliteadapter.Open(ctx, cfg.SQLitePath)

	default:
		log.Warn("using the in-memory store, data is lost on exit")
		return memory.New(), nil
	}
}

func migrate(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if cfg.Store == config.StoreMemory {
		log.Info("memory store has no schema to migrate")
		return nil
	}

	cfg.Migrate = true
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Info("migrations applied", "store", cfg.Store)
	return nil
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	var notifier reel.Notifier = notify.NewLogger(log)
	if cfg.Notifier == config.NotifierOutbox {
		notifier = notify.NewOutbox()
	}

	app := fiber.New(fiber.Config{
		AppName:      "reel",
		ErrorHandler: fiberadapter.ErrorHandler,
	})
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time}|${requestid}|${status}|${latency}|${ip}|${method}|${path}|${error}\n",
		TimeFormat: "2006/01/02 15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(recoverer.New())

	_, err = reel.New(reel.Config{
		Secret:         cfg.TokenSecret,
		Storage:        store,
		HTTP:           fiberadapter.New(app),
		PasswordHasher: reel.NewArgon2().WithCost(uint32(cfg.Argon2Memory), uint32(cfg.Argon2Iterations)),
		Notifier:       notifier,
		Logger:         log,
		Issuer:         cfg.TokenIssuer,
		SessionTTL:     cfg.SessionTTL,
		ResetTTL:       cfg.ResetTTL,
		PendingTTL:     cfg.PendingTTL,
		StoreTimeout:   cfg.StoreTimeout,
		CacheConfig:    &reel.CacheConfig{TTL: cfg.CacheTTL, MaxSize: cfg.CacheSize},
		DisableCache:   cfg.CacheTTL == 0,
		BasePath:       cfg.BasePath,
	})
	if err != nil {
		return fmt.Errorf("could not create reel instance: %w", err)
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr, "store", cfg.Store)
		errc <- app.Listen(cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}
