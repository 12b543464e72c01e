package domain

// TradeRecord is one observed trade event for a tracked wallet, as mirrored
// into the local ledger. TransactionHash is the dedup key: a record is written
// at most once per (wallet, transaction_hash) pair and never deleted.
//
// Bot=false means the trade has not yet been evaluated for copy-execution.
// The executor flips Bot to true (with the execution timestamp) after acting
// on it; the bootstrap pass does the same for pre-existing history so old
// trades are never replayed as live signals.
type TradeRecord struct {
	ID              int64
	Wallet          string
	TransactionHash string
	Timestamp       int64 // unix seconds
	ConditionID     string
	Type            string // activity type, "TRADE" from the feed
	Asset           string
	Side            string // "BUY" or "SELL"
	Size            float64
	UsdcSize        float64
	Price           float64
	OutcomeIndex    int
	Title           string
	Slug            string
	Icon            string
	EventSlug       string
	Outcome         string
	Bot             bool
	BotExecutedTime int64
}

// BootstrapExecutedTime is the sentinel BotExecutedTime written by the
// one-time bootstrap pass to distinguish "marked as historical" from a real
// execution timestamp.
const BootstrapExecutedTime = 999
