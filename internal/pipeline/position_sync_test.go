package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymirror/mirrorbot/internal/platform/polymarket"
)

func rawPosition(asset, conditionID string, size, value float64) polymarket.RawRecord {
	return polymarket.RawRecord{
		"asset":        asset,
		"conditionId":  conditionID,
		"size":         size,
		"currentValue": value,
		"avgPrice":     0.5,
		"title":        "Test market",
	}
}

func TestSyncUpsertsPositions(t *testing.T) {
	feed := newFakeFeed()
	feed.positions[wallet] = []polymarket.RawRecord{
		rawPosition("111", "0xa", 10, 5),
		rawPosition("222", "0xb", 20, 12),
	}
	ledger := newMemPositionLedger()
	ps := NewPositionSynchronizer(feed, ledger, discardLogger())

	n, err := ps.Sync(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := ledger.List(context.Background(), wallet)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestSyncFullyReplacesExisting(t *testing.T) {
	feed := newFakeFeed()
	feed.positions[wallet] = []polymarket.RawRecord{rawPosition("111", "0xa", 10, 5)}
	ledger := newMemPositionLedger()
	ps := NewPositionSynchronizer(feed, ledger, discardLogger())

	_, err := ps.Sync(context.Background(), wallet)
	require.NoError(t, err)

	// The next snapshot reports a different size and value for the same
	// identity.
	feed.mu.Lock()
	feed.positions[wallet] = []polymarket.RawRecord{rawPosition("111", "0xa", 4, 2)}
	feed.mu.Unlock()

	_, err = ps.Sync(context.Background(), wallet)
	require.NoError(t, err)

	stored, _ := ledger.List(context.Background(), wallet)
	require.Len(t, stored, 1)
	assert.Equal(t, 4.0, stored[0].Size)
	assert.Equal(t, 2.0, stored[0].CurrentValue)
}

func TestSyncSkipsRecordsWithoutIdentity(t *testing.T) {
	feed := newFakeFeed()
	feed.positions[wallet] = []polymarket.RawRecord{
		rawPosition("", "0xa", 10, 5), // missing asset
		rawPosition("111", "", 10, 5), // missing condition id
		rawPosition("222", "0xb", 1, 1),
	}
	ledger := newMemPositionLedger()
	ps := NewPositionSynchronizer(feed, ledger, discardLogger())

	n, err := ps.Sync(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncFetchErrorPropagates(t *testing.T) {
	feed := newFakeFeed()
	feed.posErr = assert.AnError
	ps := NewPositionSynchronizer(feed, newMemPositionLedger(), discardLogger())

	_, err := ps.Sync(context.Background(), wallet)
	require.Error(t, err)
}

func TestSyncContinuesPastUpsertFailure(t *testing.T) {
	feed := newFakeFeed()
	feed.positions[wallet] = []polymarket.RawRecord{
		rawPosition("111", "0xa", 10, 5),
		rawPosition("222", "0xb", 20, 12),
	}
	ledger := newMemPositionLedger()
	ledger.upsertErr = assert.AnError
	ps := NewPositionSynchronizer(feed, ledger, discardLogger())

	n, err := ps.Sync(context.Background(), wallet)
	require.NoError(t, err)
	assert.Zero(t, n)
}
