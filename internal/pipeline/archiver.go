package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TradeArchiver uploads aged trade records to cold storage.
type TradeArchiver interface {
	ArchiveTrades(ctx context.Context, before time.Time) (int64, error)
}

// ArchiveLoop periodically archives trade records older than the retention
// window.
type ArchiveLoop struct {
	archiver      TradeArchiver
	retentionDays int
	logger        *slog.Logger
}

// NewArchiveLoop creates an ArchiveLoop. Records older than retentionDays are
// archived on each run.
func NewArchiveLoop(archiver TradeArchiver, retentionDays int, logger *slog.Logger) *ArchiveLoop {
	return &ArchiveLoop{
		archiver:      archiver,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archive_loop")),
	}
}

// Run executes a single archive run.
func (a *ArchiveLoop) Run(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -a.retentionDays)

	count, err := a.archiver.ArchiveTrades(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pipeline: archive trades: %w", err)
	}

	if count > 0 {
		a.logger.InfoContext(ctx, "archived trade records",
			slog.Int64("count", count),
			slog.Time("cutoff", cutoff),
		)
	}
	return nil
}

// RunLoop runs the archiver on a repeating interval until the context is
// cancelled.
func (a *ArchiveLoop) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	if err := a.Run(ctx); err != nil {
		a.logger.ErrorContext(ctx, "archive run failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archive loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := a.Run(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}
