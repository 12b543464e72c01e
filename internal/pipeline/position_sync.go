package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/polymirror/mirrorbot/internal/domain"
	"github.com/polymirror/mirrorbot/internal/platform/polymarket"
)

// PositionFetcher retrieves a wallet's open positions and total portfolio
// value from the feed.
type PositionFetcher interface {
	UserPositions(ctx context.Context, wallet string) ([]polymarket.RawRecord, error)
	UserValue(ctx context.Context, wallet string) (float64, error)
}

// PositionSynchronizer mirrors a wallet's open positions into the position
// ledger. Each sync fully replaces the stored state of every position the
// feed reports; positions that stop appearing are left untouched.
type PositionSynchronizer struct {
	fetcher   PositionFetcher
	positions domain.PositionLedger
	logger    *slog.Logger
}

// NewPositionSynchronizer creates a PositionSynchronizer.
func NewPositionSynchronizer(fetcher PositionFetcher, positions domain.PositionLedger, logger *slog.Logger) *PositionSynchronizer {
	return &PositionSynchronizer{
		fetcher:   fetcher,
		positions: positions,
		logger:    logger.With(slog.String("component", "position_sync")),
	}
}

// Sync fetches the wallet's current positions and upserts each into the
// ledger, returning the number of positions written. A failure on one
// position does not block the rest.
func (ps *PositionSynchronizer) Sync(ctx context.Context, wallet string) (int, error) {
	raws, err := ps.fetcher.UserPositions(ctx, wallet)
	if err != nil {
		return 0, fmt.Errorf("pipeline: fetch positions: %w", err)
	}

	synced := 0
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return synced, fmt.Errorf("pipeline: position sync cancelled: %w", err)
		}

		pos := polymarket.NormalizePosition(wallet, raw)
		if pos.Asset == "" || pos.ConditionID == "" {
			ps.logger.WarnContext(ctx, "position record missing identity fields, skipping",
				slog.String("wallet", domain.ShortAddress(wallet)),
			)
			continue
		}

		if err := ps.positions.Upsert(ctx, pos); err != nil {
			ps.logger.ErrorContext(ctx, "failed to upsert position",
				slog.String("wallet", domain.ShortAddress(wallet)),
				slog.String("asset", pos.Asset),
				slog.String("condition_id", pos.ConditionID),
				slog.String("error", err.Error()),
			)
			continue
		}

		synced++
	}

	// Portfolio value is observability only; a failure here never fails the
	// sync.
	value, err := ps.fetcher.UserValue(ctx, wallet)
	if err != nil {
		ps.logger.WarnContext(ctx, "failed to fetch portfolio value",
			slog.String("wallet", domain.ShortAddress(wallet)),
			slog.String("error", err.Error()),
		)
		return synced, nil
	}

	ps.logger.DebugContext(ctx, "positions synced",
		slog.String("wallet", domain.ShortAddress(wallet)),
		slog.Int("count", synced),
		slog.Float64("portfolio_value", value),
	)

	return synced, nil
}
