package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polymirror/mirrorbot/internal/domain"
)

// TradeLedger implements domain.TradeLedger using PostgreSQL.
type TradeLedger struct {
	pool *pgxpool.Pool
}

// NewTradeLedger creates a new TradeLedger backed by the given connection pool.
func NewTradeLedger(pool *pgxpool.Pool) *TradeLedger {
	return &TradeLedger{pool: pool}
}

const tradeSelectCols = `id, wallet, transaction_hash, timestamp, condition_id,
	type, asset, side, size, usdc_size, price, outcome_index,
	title, slug, icon, event_slug, outcome, bot, bot_executed_time`

func scanTrade(row pgx.Row) (domain.TradeRecord, error) {
	var t domain.TradeRecord
	err := row.Scan(
		&t.ID, &t.Wallet, &t.TransactionHash, &t.Timestamp, &t.ConditionID,
		&t.Type, &t.Asset, &t.Side, &t.Size, &t.UsdcSize, &t.Price, &t.OutcomeIndex,
		&t.Title, &t.Slug, &t.Icon, &t.EventSlug, &t.Outcome, &t.Bot, &t.BotExecutedTime,
	)
	return t, err
}

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// FindByTxHash returns the recorded trade with the given transaction hash for
// a wallet, or domain.ErrNotFound.
func (s *TradeLedger) FindByTxHash(ctx context.Context, wallet, txHash string) (domain.TradeRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tradeSelectCols+` FROM wallet_trades
		 WHERE wallet = $1 AND transaction_hash = $2`,
		wallet, txHash,
	)

	t, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TradeRecord{}, fmt.Errorf("postgres: trade %s: %w", txHash, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("postgres: find trade by tx hash: %w", err)
	}
	return t, nil
}

// Insert records a new trade. A trade with the same (wallet, transaction_hash)
// already present is silently skipped via ON CONFLICT DO NOTHING, so an
// interleaved writer cannot produce duplicates.
func (s *TradeLedger) Insert(ctx context.Context, rec domain.TradeRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO wallet_trades (
			wallet, transaction_hash, timestamp, condition_id,
			type, asset, side, size, usdc_size, price, outcome_index,
			title, slug, icon, event_slug, outcome, bot, bot_executed_time
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18
		) ON CONFLICT (wallet, transaction_hash) DO NOTHING`,
		rec.Wallet, rec.TransactionHash, rec.Timestamp, rec.ConditionID,
		rec.Type, rec.Asset, rec.Side, rec.Size, rec.UsdcSize, rec.Price, rec.OutcomeIndex,
		rec.Title, rec.Slug, rec.Icon, rec.EventSlug, rec.Outcome, rec.Bot, rec.BotExecutedTime,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade: %w", err)
	}
	return nil
}

// Count returns the number of recorded trades for a wallet.
func (s *TradeLedger) Count(ctx context.Context, wallet string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM wallet_trades WHERE wallet = $1", wallet,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count trades: %w", err)
	}
	return n, nil
}

// MarkAllProcessed flags every unprocessed trade for a wallet as processed
// with the given executed time, returning the number of rows updated. Used
// during bootstrap so pre-existing history is never replayed.
func (s *TradeLedger) MarkAllProcessed(ctx context.Context, wallet string, executedTime int64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE wallet_trades SET bot = TRUE, bot_executed_time = $2
		 WHERE wallet = $1 AND bot = FALSE`,
		wallet, executedTime,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: mark all processed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkExecuted flags a single trade as processed with the given executed time.
func (s *TradeLedger) MarkExecuted(ctx context.Context, wallet, txHash string, executedTime int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE wallet_trades SET bot = TRUE, bot_executed_time = $3
		 WHERE wallet = $1 AND transaction_hash = $2`,
		wallet, txHash, executedTime,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark executed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: trade %s: %w", txHash, domain.ErrNotFound)
	}
	return nil
}

// ListPending returns up to limit unprocessed trades for a wallet, oldest
// first. limit <= 0 means no limit.
func (s *TradeLedger) ListPending(ctx context.Context, wallet string, limit int) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM wallet_trades
		WHERE wallet = $1 AND bot = FALSE
		ORDER BY timestamp ASC`
	args := []any{wallet}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan pending trades: %w", err)
	}
	return trades, nil
}

// ListBefore returns all trades with a timestamp strictly before the given
// unix time, oldest first. Used by the archiver for cold storage rotation.
func (s *TradeLedger) ListBefore(ctx context.Context, before int64) ([]domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM wallet_trades
		 WHERE timestamp < $1 ORDER BY timestamp ASC`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before %d: %w", before, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}
