package controllers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/depaudit/internal/domain/commands"
	"github.com/rios0rios0/depaudit/internal/domain/entities"
	metricsRepo "github.com/rios0rios0/depaudit/internal/infrastructure/repositories/metrics"
	"github.com/rios0rios0/depaudit/internal/infrastructure/server"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// ServeController handles the "serve" subcommand.
type ServeController struct {
	discover  commands.Discover
	audit     commands.Audit
	remediate commands.Remediate
	cleanup   commands.Cleanup
	metrics   *metricsRepo.PrometheusMetricsRepository
}

// NewServeController creates a new ServeController.
func NewServeController(
	discover commands.Discover,
	audit commands.Audit,
	remediate commands.Remediate,
	cleanup commands.Cleanup,
	metrics *metricsRepo.PrometheusMetricsRepository,
) *ServeController {
	return &ServeController{
		discover:  discover,
		audit:     audit,
		remediate: remediate,
		cleanup:   cleanup,
		metrics:   metrics,
	}
}

// GetBind returns the Cobra command metadata for the serve controller.
func (it *ServeController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "serve",
		Short: "Serve audits and remediations over HTTP",
		Long: `Start an HTTP server exposing:

  GET  /api/repos[?owner=...]
  GET  /api/repos/{owner}/{repo}/dependencies
  POST /api/repos/{owner}/{repo}/update-dependencies
  POST /api/repos/{owner}/{repo}/cleanup
  GET  /healthz
  GET  /metrics

Every /api request must carry "Authorization: Bearer <token>"; requests
without one are refused with 401. The configured token is never used on
behalf of an HTTP caller.`,
	}
}

// Execute runs the server until SIGINT or SIGTERM.
func (it *ServeController) Execute(cmd *cobra.Command, _ []string) {
	settings, err := loadSettings(cmd)
	if err != nil {
		logger.Error(err)
		return
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		settings.Server.Listen = listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = it.serve(ctx, settings); err != nil {
		logger.Errorf("Server failed: %v", err)
	}
}

// AddFlags adds the serve-specific flags to the given Cobra command.
func (it *ServeController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("listen", "", "Listen address (default: server.listen or :8080)")
}

func (it *ServeController) serve(ctx context.Context, settings *entities.Settings) error {
	handlers := server.NewHandlers(settings, it.discover, it.audit, it.remediate, it.cleanup)
	//nolint:exhaustruct // Minimal Server initialization with required fields only
	httpServer := &http.Server{
		Addr:              settings.Server.Listen,
		Handler:           server.NewRouter(handlers, it.metrics.Handler()),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Infof("[server] Listening on %s", settings.Server.Listen)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("[server] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
