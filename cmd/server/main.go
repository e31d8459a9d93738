package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/minhtien379/Loto/internal/api"
	"github.com/minhtien379/Loto/internal/config"
	"github.com/minhtien379/Loto/internal/factory"
)

func main() {
	// A missing .env is fine; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := cfg.Log.NewLogger(os.Stdout)
	if err != nil {
		slog.Error("invalid logging configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg config.AppConfig, logger *slog.Logger) error {
	app, err := factory.New(factory.Config{
		Logger:  logger,
		Storage: cfg.Storage,
		Game:    cfg.Game,
	})
	if err != nil {
		return err
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		RoomManager:    app.RoomManager,
		HubManager:     app.HubManager,
		OriginPatterns: cfg.Server.AllowedOrigins,
	})

	server := api.NewServer(router, cfg.Server, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		// Rooms and event streams end first so the server has no open handlers to wait for
		closeErr := app.Close()
		return errors.Join(closeErr, server.Shutdown(context.Background()))
	})

	return g.Wait()
}
