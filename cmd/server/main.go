package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/auctra/auctra/internal/bidding"
	"github.com/auctra/auctra/internal/config"
	"github.com/auctra/auctra/internal/events"
	"github.com/auctra/auctra/internal/httpapi"
	"github.com/auctra/auctra/internal/metrics"
	"github.com/auctra/auctra/internal/scheduler"
	"github.com/auctra/auctra/internal/store"
	"github.com/auctra/auctra/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(log)

	if err := run(log, cfg); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage.
	var st store.Store
	switch cfg.StorageDriver {
	case "memory":
		log.Warn("using in-memory storage, data will not survive restarts")
		st = store.NewMemory()
	default:
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.InitSchema(ctx); err != nil {
			return err
		}
		log.Info("connected to postgres")
		st = pg
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	bus := events.NewBus(log)

	hub := ws.NewHub(log, m)
	go hub.Run(ctx)

	// With Redis configured the hub is fed from the shared channel so every
	// instance broadcasts every event exactly once. Without it the hub
	// subscribes to the in-process bus directly.
	if cfg.RedisAddr != "" {
		bridge, err := events.NewRedisBridge(log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer bridge.Close()
		bus.Subscribe(bridge)
		go func() {
			if err := bridge.Listen(ctx, hub.Broadcast); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("redis subscription ended", "error", err)
			}
		}()
		log.Info("connected to redis", "addr", cfg.RedisAddr)
	} else {
		bus.Subscribe(hub)
	}

	if cfg.NatsURL != "" {
		conn, err := nats.Connect(cfg.NatsURL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		if err != nil {
			return err
		}
		defer conn.Close()
		sink, err := events.NewNATSSink(log, conn)
		if err != nil {
			return err
		}
		bus.Subscribe(sink)
		log.Info("connected to nats", "url", cfg.NatsURL)
	}

	engine := bidding.NewEngine(log, st, bus, m, cfg.LockWait)

	sched := scheduler.New(log, st, bus, m, cfg.TickInterval)
	go func() {
		if err := sched.Run(ctx); err != nil {
			log.Error("scheduler stopped", "error", err)
		}
	}()

	handler := httpapi.NewHandler(log, engine, st, bus, m, []byte(cfg.JWTSecret))
	router := handler.Routes(ws.NewHandler(hub))

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	// Stop accepting connections, then stop the hub and scheduler.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	cancel()

	log.Info("server stopped")
	return nil
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
