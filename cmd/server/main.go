package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"watchdesk/internal/platform/config"
	"watchdesk/internal/platform/httpserver"
	"watchdesk/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	srv := httpserver.New(cfg.Addr, a.router, httpserver.WithLogger(log))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.publisher.Run(gctx)
	})
	if a.purge != nil {
		g.Go(func() error {
			a.purge(gctx)
			return nil
		})
	}
	g.Go(func() error {
		log.Info("starting watchdesk", "addr", srv.Addr())
		return srv.Run(gctx)
	})

	return g.Wait()
}
