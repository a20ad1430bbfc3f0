package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skypro1111/binspect/internal/metrics"
	"github.com/skypro1111/binspect/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP decode API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.HTTP.Enabled {
			return fmt.Errorf("http server is disabled in the configuration")
		}

		logger.Info("Service starting",
			slog.String("service", serviceName),
			slog.String("version", serviceVersion),
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
			slog.Int("max_depth", cfg.Decode.MaxDepth),
			slog.Int("max_input_bytes", cfg.Decode.MaxInputBytes),
		)

		appMetrics := metrics.NewMetrics()
		httpServer := server.NewHTTPServer(cfg, logger, appMetrics)

		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}

		// Setup signal handling for graceful shutdown
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
			return err
		}

		logger.Info("Service stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
