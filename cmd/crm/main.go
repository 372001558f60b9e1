package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/theak/crm/internal/adapters/httpapi"
	"github.com/theak/crm/internal/adapters/smtpingest"
	"github.com/theak/crm/internal/config"
	"github.com/theak/crm/internal/di"
	"github.com/theak/crm/internal/metrics"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	server *httpapi.Server,
	ingest *smtpingest.Ingest,
	db *sqlx.DB,
) error {
	defer logger.Sync()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// Start the HTTP server
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Start the SMTP ingest listener if enabled
	if cfg.GetSMTP().Enabled {
		if err := ingest.Start(); err != nil {
			logger.Error("Failed to start SMTP ingest", zap.Error(err))
			return err
		}
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("HTTP server error", zap.Error(err))
		return err
	case <-sigCh:
	}
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}

	if cfg.GetSMTP().Enabled {
		if err := ingest.Stop(); err != nil {
			logger.Error("Failed to stop SMTP ingest", zap.Error(err))
		}
	}

	if err := db.Close(); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
