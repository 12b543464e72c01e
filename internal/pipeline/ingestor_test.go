package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymirror/mirrorbot/internal/platform/polymarket"
)

const wallet = "0x56687bf447db6ffa42ffe2204a05edaa20f55839"

func rawTrade(txHash string, ts int64) polymarket.RawRecord {
	return polymarket.RawRecord{
		"transactionHash": txHash,
		"timestamp":       float64(ts),
		"conditionId":     "0xcond",
		"type":            "TRADE",
		"side":            "BUY",
		"size":            float64(10),
		"usdcSize":        float64(5),
		"price":           0.5,
		"title":           "Test market",
	}
}

func newTestIngestor(ledger *memTradeLedger, bus *memBus, cutoff int64) *TradeIngestor {
	return NewTradeIngestor(ledger, bus, nopAlerter{}, nil, "mirror:signals", cutoff, discardLogger())
}

func TestIngestRecordsNewTrades(t *testing.T) {
	ledger := newMemTradeLedger()
	bus := &memBus{}
	ing := newTestIngestor(ledger, bus, 0)

	n, err := ing.Ingest(context.Background(), wallet, []polymarket.RawRecord{
		rawTrade("0x1", 100),
		rawTrade("0x2", 200),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	trades := ledger.all()
	require.Len(t, trades, 2)
	for _, tr := range trades {
		assert.False(t, tr.Bot)
		assert.Zero(t, tr.BotExecutedTime)
	}
	assert.Len(t, bus.published(), 2)
}

func TestIngestIsIdempotent(t *testing.T) {
	ledger := newMemTradeLedger()
	bus := &memBus{}
	ing := newTestIngestor(ledger, bus, 0)

	batch := []polymarket.RawRecord{rawTrade("0x1", 100)}

	n, err := ing.Ingest(context.Background(), wallet, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Re-polling re-delivers the same record.
	n, err = ing.Ingest(context.Background(), wallet, batch)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Len(t, ledger.all(), 1)
	assert.Len(t, bus.published(), 1) // no duplicate signal
}

func TestIngestCutoffFilter(t *testing.T) {
	ledger := newMemTradeLedger()
	bus := &memBus{}
	ing := newTestIngestor(ledger, bus, 1000)

	n, err := ing.Ingest(context.Background(), wallet, []polymarket.RawRecord{
		rawTrade("0xold", 999),
		rawTrade("0xboundary", 1000),
		rawTrade("0xnew", 1001),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n) // boundary timestamp is kept, only strictly-older dropped

	for _, tr := range ledger.all() {
		assert.NotEqual(t, "0xold", tr.TransactionHash)
	}
}

func TestIngestSkipsMissingTxHash(t *testing.T) {
	ledger := newMemTradeLedger()
	bus := &memBus{}
	ing := newTestIngestor(ledger, bus, 0)

	rec := rawTrade("", 100)
	delete(rec, "transactionHash")

	n, err := ing.Ingest(context.Background(), wallet, []polymarket.RawRecord{rec})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, ledger.all())
}

func TestIngestContinuesPastInsertFailure(t *testing.T) {
	ledger := newMemTradeLedger()
	bus := &memBus{}
	ing := newTestIngestor(ledger, bus, 0)

	ledger.insertErr = assert.AnError
	n, err := ing.Ingest(context.Background(), wallet, []polymarket.RawRecord{
		rawTrade("0x1", 100),
		rawTrade("0x2", 200),
	})
	require.NoError(t, err)
	assert.Zero(t, n)

	// Recovery: the same feed records ingest cleanly next pass.
	ledger.insertErr = nil
	n, err = ing.Ingest(context.Background(), wallet, []polymarket.RawRecord{
		rawTrade("0x1", 100),
		rawTrade("0x2", 200),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIngestSignalPayload(t *testing.T) {
	ledger := newMemTradeLedger()
	bus := &memBus{}
	ing := newTestIngestor(ledger, bus, 0)

	_, err := ing.Ingest(context.Background(), wallet, []polymarket.RawRecord{rawTrade("0x1", 100)})
	require.NoError(t, err)

	payloads := bus.published()
	require.Len(t, payloads, 1)

	var sig map[string]any
	require.NoError(t, json.Unmarshal(payloads[0], &sig))
	assert.NotEmpty(t, sig["id"])
	assert.Equal(t, wallet, sig["wallet"])
	assert.Equal(t, "0x1", sig["transactionHash"])
	assert.Equal(t, "BUY", sig["side"])
	assert.Equal(t, 5.0, sig["usdcSize"])
}

func TestIngestPublishFailureStillRecords(t *testing.T) {
	ledger := newMemTradeLedger()
	bus := &memBus{err: assert.AnError}
	ing := newTestIngestor(ledger, bus, 0)

	n, err := ing.Ingest(context.Background(), wallet, []polymarket.RawRecord{rawTrade("0x1", 100)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, ledger.all(), 1) // ledger write survives a lost signal
}
