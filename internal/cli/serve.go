package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/unfiltered/internal/service"
	handler "github.com/xiaot623/unfiltered/internal/transport/http"
	"github.com/xiaot623/unfiltered/internal/transport/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API with the run journal, Prometheus metrics at /metrics
and the per-thread WebSocket stream.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	hub := ws.NewHub(logger)

	a, err := newApp(ctx, cfg, logger, service.WithNotifier(hub))
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("starting orchestrator",
		"http_port", a.cfg.HTTPPort,
		"database", a.cfg.DatabaseURL,
		"mode", a.cfg.Mode,
		"model", a.cfg.Model,
	)

	go hub.Run(ctx)
	stream := ws.NewServer(hub, ws.DefaultOptions(), a.logger)
	server := handler.NewServer(a.svc, stream, a.metrics)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down orchestrator")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("failed to shutdown server gracefully", "error", err)
	}

	a.logger.Info("orchestrator stopped")
	return nil
}
