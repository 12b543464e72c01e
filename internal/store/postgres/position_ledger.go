package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polymirror/mirrorbot/internal/domain"
)

// PositionLedger implements domain.PositionLedger using PostgreSQL.
type PositionLedger struct {
	pool *pgxpool.Pool
}

// NewPositionLedger creates a new PositionLedger backed by the given
// connection pool.
func NewPositionLedger(pool *pgxpool.Pool) *PositionLedger {
	return &PositionLedger{pool: pool}
}

const positionSelectCols = `wallet, asset, condition_id, size, avg_price,
	initial_value, current_value, cash_pnl, percent_pnl, total_bought,
	realized_pnl, percent_realized_pnl, cur_price, redeemable, mergeable,
	title, slug, icon, event_slug, outcome, outcome_index,
	opposite_outcome, opposite_asset, end_date, negative_risk`

func scanPositionRows(rows pgx.Rows) ([]domain.PositionRecord, error) {
	var positions []domain.PositionRecord
	for rows.Next() {
		var p domain.PositionRecord
		if err := rows.Scan(
			&p.Wallet, &p.Asset, &p.ConditionID, &p.Size, &p.AvgPrice,
			&p.InitialValue, &p.CurrentValue, &p.CashPnl, &p.PercentPnl, &p.TotalBought,
			&p.RealizedPnl, &p.PercentRealizedPnl, &p.CurPrice, &p.Redeemable, &p.Mergeable,
			&p.Title, &p.Slug, &p.Icon, &p.EventSlug, &p.Outcome, &p.OutcomeIndex,
			&p.OppositeOutcome, &p.OppositeAsset, &p.EndDate, &p.NegativeRisk,
		); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

const positionUpsertSQL = `INSERT INTO wallet_positions (
			wallet, asset, condition_id, size, avg_price,
			initial_value, current_value, cash_pnl, percent_pnl, total_bought,
			realized_pnl, percent_realized_pnl, cur_price, redeemable, mergeable,
			title, slug, icon, event_slug, outcome, outcome_index,
			opposite_outcome, opposite_asset, end_date, negative_risk
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21,
			$22, $23, $24, $25
		) ON CONFLICT (wallet, asset, condition_id) DO UPDATE SET
			size = EXCLUDED.size,
			avg_price = EXCLUDED.avg_price,
			initial_value = EXCLUDED.initial_value,
			current_value = EXCLUDED.current_value,
			cash_pnl = EXCLUDED.cash_pnl,
			percent_pnl = EXCLUDED.percent_pnl,
			total_bought = EXCLUDED.total_bought,
			realized_pnl = EXCLUDED.realized_pnl,
			percent_realized_pnl = EXCLUDED.percent_realized_pnl,
			cur_price = EXCLUDED.cur_price,
			redeemable = EXCLUDED.redeemable,
			mergeable = EXCLUDED.mergeable,
			title = EXCLUDED.title,
			slug = EXCLUDED.slug,
			icon = EXCLUDED.icon,
			event_slug = EXCLUDED.event_slug,
			outcome = EXCLUDED.outcome,
			outcome_index = EXCLUDED.outcome_index,
			opposite_outcome = EXCLUDED.opposite_outcome,
			opposite_asset = EXCLUDED.opposite_asset,
			end_date = EXCLUDED.end_date,
			negative_risk = EXCLUDED.negative_risk,
			updated_at = NOW()`

// Upsert inserts a position snapshot or fully replaces the existing row with
// the same (wallet, asset, condition_id) identity. Every value field is
// overwritten so the row always mirrors the latest feed snapshot.
func (s *PositionLedger) Upsert(ctx context.Context, pos domain.PositionRecord) error {
	_, err := s.pool.Exec(ctx, positionUpsertSQL,
		pos.Wallet, pos.Asset, pos.ConditionID, pos.Size, pos.AvgPrice,
		pos.InitialValue, pos.CurrentValue, pos.CashPnl, pos.PercentPnl, pos.TotalBought,
		pos.RealizedPnl, pos.PercentRealizedPnl, pos.CurPrice, pos.Redeemable, pos.Mergeable,
		pos.Title, pos.Slug, pos.Icon, pos.EventSlug, pos.Outcome, pos.OutcomeIndex,
		pos.OppositeOutcome, pos.OppositeAsset, pos.EndDate, pos.NegativeRisk,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position: %w", err)
	}
	return nil
}

// List returns all position snapshots for a wallet.
func (s *PositionLedger) List(ctx context.Context, wallet string) ([]domain.PositionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM wallet_positions WHERE wallet = $1`,
		wallet,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan positions: %w", err)
	}
	return positions, nil
}

// FindByMarket returns a wallet's position snapshots in a single market. A
// binary market can hold one row per outcome token, so this returns a slice.
func (s *PositionLedger) FindByMarket(ctx context.Context, wallet, conditionID string) ([]domain.PositionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM wallet_positions
		 WHERE wallet = $1 AND condition_id = $2`,
		wallet, conditionID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: find positions by market: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan positions: %w", err)
	}
	return positions, nil
}

// Count returns the number of position snapshots for a wallet.
func (s *PositionLedger) Count(ctx context.Context, wallet string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM wallet_positions WHERE wallet = $1", wallet,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count positions: %w", err)
	}
	return n, nil
}
