package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reconware/pos-reconcile-backend/internal/api"
	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/config"
	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/logging"
	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/storage"
)

// RunServe runs the API server until interrupted.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	apiCfg := api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if flags.Port > 0 {
		apiCfg.Port = flags.Port
	}

	server := api.NewServer(apiCfg, store, cfg.Options(), logger)

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	if err := server.Start(); err != nil {
		return err
	}

	<-done
	return nil
}
