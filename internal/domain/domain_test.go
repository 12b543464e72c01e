package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x5668...5839", ShortAddress("0x56687bf447db6ffa42ffe2204a05edaa20f55839"))
	assert.Equal(t, "0xshort", ShortAddress("0xshort"))
	assert.Equal(t, "", ShortAddress(""))
}

func TestCalcPositionStats(t *testing.T) {
	stats := CalcPositionStats([]PositionRecord{
		{CurrentValue: 120, InitialValue: 100},
		{CurrentValue: 30, InitialValue: 50},
	})

	assert.Equal(t, 150.0, stats.TotalValue)
	assert.Equal(t, 150.0, stats.InitialValue)
	assert.InDelta(t, 0.0, stats.OverallPnl, 1e-9)

	stats = CalcPositionStats([]PositionRecord{
		{CurrentValue: 110, InitialValue: 100},
	})
	assert.InDelta(t, 10.0, stats.OverallPnl, 1e-9)
}

func TestCalcPositionStatsEmpty(t *testing.T) {
	stats := CalcPositionStats(nil)
	assert.Zero(t, stats.TotalValue)
	assert.Zero(t, stats.OverallPnl) // no division by zero
}
