package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/AdamBeresnev/op-tourney/internal/config"
	"github.com/AdamBeresnev/op-tourney/internal/db"
	"github.com/AdamBeresnev/op-tourney/internal/events"
	"github.com/AdamBeresnev/op-tourney/internal/scheduler"
	"github.com/AdamBeresnev/op-tourney/internal/service"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	database, err := db.Connect(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		return err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(events.Options{URL: cfg.NATSURL, Token: cfg.NATSToken})
		if err != nil {
			return err
		}
		defer nc.Close()
		publisher = nc
		slog.Info("publishing events to NATS", "url", cfg.NATSURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := service.New(database, publisher)
	starts := scheduler.New(clockwork.NewRealClock(), svc.Tournaments)
	svc.Tournaments.UseScheduler(starts)
	if err := starts.Start(ctx); err != nil {
		return err
	}
	defer starts.Stop()

	server := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: newRouter(svc),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "address", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
