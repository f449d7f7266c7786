package appcanvas

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/appcanvas/appcanvas/pkg/history"
	"github.com/appcanvas/appcanvas/pkg/tracing"
)

// Version is reported in traces and by the CLI.
var Version = "dev"

// Run serves the API on the configured port until ctx is cancelled, then
// shuts down gracefully within the configured timeout. When a history pruning
// interval is set, the pruner runs alongside the server.
func (a *App) Run(ctx context.Context) error {
	if a.config.Tracing.Enabled {
		shutdown, err := tracing.Init("appcanvas", Version, a.config.Tracing.Output)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				a.logger.Warn().Err(err).Msg("Tracer shutdown failed")
			}
		}()
	}

	server := &http.Server{
		Addr:    a.config.Addr(),
		Handler: a.Handler(),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if interval := a.config.History.PruneInterval; interval > 0 && !history.PolicyFromConfig(a.config.History).IsZero() {
		a.logger.Info().Dur("interval", interval).Msg("History pruning enabled")
		go a.pruner().Run(runCtx, interval)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	a.logger.Info().
		Str("addr", server.Addr).
		Bool("read_only", a.IsReadOnly()).
		Bool("preview", a.config.Auth.AllowPreview).
		Msg("Starting appcanvas server")

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancelShutdown()
		a.hub.Close()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (a *App) pruner() *history.Pruner {
	return history.NewPruner(a.store, history.PolicyFromConfig(a.config.History), a.config.History.ArchiveDir, a.logger)
}
