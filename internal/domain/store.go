package domain

import "context"

// TradeLedger is the per-wallet trade history store. Implementations must
// enforce uniqueness of (wallet, transaction_hash) at write time; that check
// is the sole safeguard against duplicate inserts from overlapping polls.
type TradeLedger interface {
	// FindByTxHash returns the record with the given dedup key for the
	// wallet, or ErrNotFound.
	FindByTxHash(ctx context.Context, wallet, txHash string) (TradeRecord, error)
	// Insert writes a new record. A conflicting (wallet, transaction_hash)
	// pair is silently skipped, not an error.
	Insert(ctx context.Context, rec TradeRecord) error
	// Count returns the number of records stored for the wallet.
	Count(ctx context.Context, wallet string) (int64, error)
	// MarkAllProcessed flips every Bot=false record of the wallet to
	// Bot=true with the given executed time, returning how many changed.
	// Used by the one-time bootstrap pass.
	MarkAllProcessed(ctx context.Context, wallet string, executedTime int64) (int64, error)
	// MarkExecuted flips a single record after the executor acted on it.
	MarkExecuted(ctx context.Context, wallet, txHash string, executedTime int64) error
	// ListPending returns up to limit Bot=false records, oldest first. This
	// is the executor's polling surface for live copy signals.
	ListPending(ctx context.Context, wallet string, limit int) ([]TradeRecord, error)
	// ListBefore returns records with a timestamp strictly below the given
	// unix time, across all wallets, for cold-storage archival.
	ListBefore(ctx context.Context, before int64) ([]TradeRecord, error)
}

// PositionLedger is the per-wallet mirror of currently open positions.
type PositionLedger interface {
	// Upsert fully replaces the record keyed by (wallet, asset, condition_id),
	// inserting it if absent.
	Upsert(ctx context.Context, pos PositionRecord) error
	// List returns all mirrored positions for the wallet.
	List(ctx context.Context, wallet string) ([]PositionRecord, error)
	// FindByMarket returns the wallet's positions in one market (condition).
	FindByMarket(ctx context.Context, wallet, conditionID string) ([]PositionRecord, error)
	// Count returns the number of mirrored positions for the wallet.
	Count(ctx context.Context, wallet string) (int64, error)
}

// SignalBus publishes newly ingested trades for the out-of-process executor.
type SignalBus interface {
	Publish(ctx context.Context, stream string, payload []byte) error
}

// NopSignalBus discards all signals. Used in observe (dry-run) mode.
type NopSignalBus struct{}

func (NopSignalBus) Publish(context.Context, string, []byte) error { return nil }
