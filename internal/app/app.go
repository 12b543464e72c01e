// Package app provides the top-level application lifecycle for the mirror
// bot. It wires together all dependencies (ledgers, signal bus, blob storage,
// feed client, notifications) and starts the goroutines for the configured
// operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/polymirror/mirrorbot/internal/config"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, selects the
// operating mode, and blocks until the context is cancelled. On return it
// runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.Int("tracked_wallets", len(a.cfg.Wallets.Tracked)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)
	defer a.Close()

	var runErr error
	switch strings.ToLower(a.cfg.Mode) {
	case "mirror":
		runErr = a.MirrorMode(ctx, deps)
	case "observe":
		runErr = a.ObserveMode(ctx, deps)
	default:
		runErr = fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}

	if runErr != nil {
		// Fatal exits should reach the operator's phone, not just the log.
		if nerr := deps.Notifier.NotifyError(context.WithoutCancel(ctx), "run", runErr); nerr != nil {
			a.logger.Warn("error notification failed",
				slog.String("error", nerr.Error()),
			)
		}
	}
	return runErr
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
