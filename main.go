package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"webstories/api"
	"webstories/config"
	"webstories/media"
	"webstories/reconcile"
	"webstories/slides"
	"webstories/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := config.SetupLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Connect to MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("mongo disconnect", slog.String("error", err.Error()))
		}
	}()
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	repo := store.NewMongo(client, cfg.DatabaseName)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return err
	}

	mediaStore, err := media.NewMinIO(cfg.MediaConfig(), logger)
	if err != nil {
		return err
	}
	if err := mediaStore.EnsureBucket(ctx); err != nil {
		return err
	}

	builder := slides.NewBuilder(mediaStore, cfg.MediaFolder, cfg.UploadConcurrency, logger)
	engine := reconcile.NewEngine(
		store.NewCached(repo, cfg.CacheSize, cfg.CacheTTL),
		builder,
		mediaStore,
		cfg.UploadConcurrency,
		logger,
	)

	handler := api.NewHandler(engine, cfg.MaxUploadBytes, logger)
	router := api.NewRouter(handler, api.NewAuthenticator(cfg.JWTSecret, logger), cfg.WriteRole, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is running", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
