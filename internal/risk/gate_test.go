package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPositionLimitNoLimitsConfigured(t *testing.T) {
	g := New(Limits{})

	d := g.CheckMarketPositionLimit(5000, 10, nil)
	assert.True(t, d.Allowed)
	assert.Equal(t, 5000.0, d.AdjustedUSD)
	assert.Empty(t, d.Reason)
}

func TestPositionLimitWithinCap(t *testing.T) {
	g := New(Limits{MaxPositionUSD: 100})

	d := g.CheckMarketPositionLimit(50, 1000, nil)
	assert.True(t, d.Allowed)
	assert.Equal(t, 50.0, d.AdjustedUSD)
}

func TestPositionLimitScalesDown(t *testing.T) {
	g := New(Limits{MaxPositionUSD: 100})

	d := g.CheckMarketPositionLimit(50, 1000, &Position{CurrentValue: 80})
	assert.True(t, d.Allowed)
	assert.Equal(t, 20.0, d.AdjustedUSD)
	assert.Contains(t, d.Reason, "Scaled down")
}

func TestPositionLimitRejectsUnderMinBudget(t *testing.T) {
	g := New(Limits{MaxPositionUSD: 100})

	d := g.CheckMarketPositionLimit(50, 1000, &Position{CurrentValue: 99.5})
	assert.False(t, d.Allowed)
	assert.Zero(t, d.AdjustedUSD)
	assert.Contains(t, d.Reason, "limit reached")
}

func TestPositionLimitStricterOfTwo(t *testing.T) {
	// 10% of $500 = $50, stricter than the $100 USD cap.
	g := New(Limits{MaxPositionUSD: 100, MaxPositionPct: 10})

	d := g.CheckMarketPositionLimit(80, 500, nil)
	assert.True(t, d.Allowed)
	assert.Equal(t, 50.0, d.AdjustedUSD)

	// With a bigger balance the USD cap becomes the stricter one.
	d = g.CheckMarketPositionLimit(150, 5000, nil)
	assert.True(t, d.Allowed)
	assert.Equal(t, 100.0, d.AdjustedUSD)
}

func TestPositionLimitExactBoundary(t *testing.T) {
	g := New(Limits{MaxPositionUSD: 100})

	// newTotal == limit is within bounds.
	d := g.CheckMarketPositionLimit(100, 1000, nil)
	assert.True(t, d.Allowed)
	assert.Equal(t, 100.0, d.AdjustedUSD)
	assert.Empty(t, d.Reason)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEndDateNoDate(t *testing.T) {
	g := New(Limits{MinMarketDays: 1})

	d := g.CheckMarketEndDate("")
	assert.True(t, d.Allowed)
}

func TestEndDateUnparsable(t *testing.T) {
	g := New(Limits{MinMarketDays: 1, MaxMarketDays: 30})

	d := g.CheckMarketEndDate("whenever")
	assert.True(t, d.Allowed)
}

func TestEndDateAlreadyEnded(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewWithClock(Limits{}, fixedClock(now))

	d := g.CheckMarketEndDate("2026-02-01T00:00:00Z")
	assert.False(t, d.Allowed)
	assert.Equal(t, "Market has already ended", d.Reason)
	assert.Zero(t, d.DaysUntilEnd)
}

func TestEndDateMinBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := NewWithClock(Limits{MinMarketDays: 3}, fixedClock(now))

	// Exactly 3 days out is allowed.
	d := g.CheckMarketEndDate("2026-03-04T00:00:00Z")
	assert.True(t, d.Allowed)
	assert.InDelta(t, 3.0, d.DaysUntilEnd, 1e-9)

	// One second shy of 3 days is rejected.
	d = g.CheckMarketEndDate("2026-03-03T23:59:59Z")
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "too soon")
}

func TestEndDateMaxBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := NewWithClock(Limits{MaxMarketDays: 30}, fixedClock(now))

	d := g.CheckMarketEndDate("2026-03-31T00:00:00Z")
	assert.True(t, d.Allowed)

	d = g.CheckMarketEndDate("2026-05-01T00:00:00Z")
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "too far away")
}

func TestEndDateFormats(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := NewWithClock(Limits{}, fixedClock(now))

	// Bare date.
	d := g.CheckMarketEndDate("2026-04-01")
	assert.True(t, d.Allowed)
	assert.InDelta(t, 31.0, d.DaysUntilEnd, 1e-9)

	// Unix seconds.
	end := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	d = g.CheckMarketEndDate("1773187200")
	assert.True(t, d.Allowed)
	assert.InDelta(t, end.Sub(now).Hours()/24, d.DaysUntilEnd, 0.5)

	// Unix milliseconds.
	d = g.CheckMarketEndDate("1773187200000")
	assert.True(t, d.Allowed)
}
