package app

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/polymirror/mirrorbot/internal/pipeline"
	"github.com/polymirror/mirrorbot/internal/risk"
)

// MirrorMode runs the full pipeline: activity ingestion, position sync, and
// signal publication to the Redis stream, plus the cold-storage archiver when
// enabled.
func (a *App) MirrorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting mirror mode")
	return a.runMonitor(ctx, deps)
}

// ObserveMode runs the same pipeline as MirrorMode but with a no-op signal
// bus: trades are recorded and positions synced, nothing is published. Useful
// as a dry run before pointing an executor at the stream.
func (a *App) ObserveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting observe mode (signals disabled)")
	return a.runMonitor(ctx, deps)
}

// runMonitor assembles and runs the monitor loop shared by both modes.
func (a *App) runMonitor(ctx context.Context, deps *Dependencies) error {
	gate := risk.New(risk.Limits{
		MaxPositionUSD: a.cfg.Risk.MaxPositionPerMarketUSD,
		MaxPositionPct: a.cfg.Risk.MaxPositionPerMarketPercent,
		MinMarketDays:  a.cfg.Risk.MinMarketDurationDays,
		MaxMarketDays:  a.cfg.Risk.MaxMarketDurationDays,
	})
	adviser := pipeline.NewRiskAdvisor(
		gate,
		deps.PositionLedger,
		deps.DataClient,
		a.cfg.Wallets.Operator,
		a.logger,
	)

	ingestor := pipeline.NewTradeIngestor(
		deps.TradeLedger,
		deps.SignalBus,
		deps.Notifier,
		adviser,
		a.cfg.Redis.SignalStream,
		a.cfg.Feed.CutoffTimestamp,
		a.logger,
	)

	syncer := pipeline.NewPositionSynchronizer(deps.DataClient, deps.PositionLedger, a.logger)

	monitor := pipeline.NewMonitor(
		pipeline.MonitorConfig{
			Tracked:  a.cfg.Wallets.Tracked,
			Operator: a.cfg.Wallets.Operator,
			Interval: a.cfg.Feed.Interval.Duration,
			Mode:     a.cfg.Mode,
		},
		deps.DataClient,
		ingestor,
		syncer,
		deps.TradeLedger,
		deps.PositionLedger,
		deps.Notifier,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return monitor.Run(ctx)
	})

	// Propagate cancellation as a cooperative stop so the pass in flight
	// finishes before Run returns.
	g.Go(func() error {
		<-ctx.Done()
		monitor.Stop()
		return nil
	})

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		loop := pipeline.NewArchiveLoop(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
		g.Go(func() error {
			return loop.RunLoop(ctx, a.cfg.Archive.Interval.Duration)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
