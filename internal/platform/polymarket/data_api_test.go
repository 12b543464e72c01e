package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymirror/mirrorbot/internal/domain"
)

const testWallet = "0x56687Bf447db6fFa42FFe2204a05EdAa20F55839"

func TestUserActivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activity", r.URL.Path)
		assert.Equal(t, "0x56687bf447db6ffa42ffe2204a05edaa20f55839", r.URL.Query().Get("user"))
		assert.Equal(t, "TRADE", r.URL.Query().Get("type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"transactionHash":"0xabc","timestamp":1741000000,"conditionId":"0xcond","type":"TRADE",
			 "asset":"123","side":"BUY","size":10.5,"usdcSize":5.25,"price":0.5,"outcomeIndex":1,
			 "title":"Will it rain?","slug":"will-it-rain","outcome":"Yes"}
		]`))
	}))
	defer srv.Close()

	client := NewDataClient(srv.URL)
	records, err := client.UserActivity(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, records, 1)

	trade := NormalizeTrade(testWallet, records[0])
	assert.Equal(t, "0xabc", trade.TransactionHash)
	assert.Equal(t, int64(1741000000), trade.Timestamp)
	assert.Equal(t, 10.5, trade.Size)
	assert.Equal(t, 1, trade.OutcomeIndex)
	assert.False(t, trade.Bot)
	assert.Zero(t, trade.BotExecutedTime)
}

func TestUserPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/positions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"asset":"123","conditionId":"0xcond","size":"42.0","avgPrice":0.35,
			 "currentValue":21.7,"initialValue":14.7,"endDate":"2026-11-05","redeemable":false}
		]`))
	}))
	defer srv.Close()

	client := NewDataClient(srv.URL)
	records, err := client.UserPositions(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, records, 1)

	pos := NormalizePosition(testWallet, records[0])
	assert.Equal(t, "0xcond", pos.ConditionID)
	assert.Equal(t, 42.0, pos.Size) // string-typed number coerced
	assert.Equal(t, 21.7, pos.CurrentValue)
	assert.Equal(t, "2026-11-05", pos.EndDate)
}

func TestUserValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/value", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"user":"0x56687bf447db6ffa42ffe2204a05edaa20f55839","value":1234.56}]`))
	}))
	defer srv.Close()

	client := NewDataClient(srv.URL)
	value, err := client.UserValue(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, 1234.56, value)
}

func TestUserValueEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewDataClient(srv.URL)
	value, err := client.UserValue(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Zero(t, value)
}

func TestDoGetStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/activity":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewDataClient(srv.URL)

	_, err := client.UserActivity(context.Background(), testWallet)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	_, err = client.UserPositions(context.Background(), testWallet)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNormalizeMissingFields(t *testing.T) {
	trade := NormalizeTrade(testWallet, RawRecord{})
	assert.Equal(t, testWallet, trade.Wallet)
	assert.Empty(t, trade.TransactionHash)
	assert.Zero(t, trade.Timestamp)
	assert.Zero(t, trade.Size)

	pos := NormalizePosition(testWallet, RawRecord{"outcomeIndex": float64(2)})
	assert.Equal(t, 2, pos.OutcomeIndex)
}

func TestCoercionHelpers(t *testing.T) {
	assert.Equal(t, 1.5, asFloat("1.5"))
	assert.Equal(t, 0.0, asFloat("garbage"))
	assert.Equal(t, int64(7), asInt64("7"))
	assert.Equal(t, int64(7), asInt64("7.0"))
	assert.Equal(t, int64(7), asInt64(float64(7)))
	assert.True(t, asBool("true"))
	assert.False(t, asBool(nil))
	assert.Equal(t, "3.25", asString(3.25))
}
