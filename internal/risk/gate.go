// Package risk implements the pure pre-trade checks applied before a mirrored
// trade is sized: per-market position caps and market duration filtering.
// Nothing here performs I/O; callers supply balances and positions.
package risk

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// minRemainingBudgetUSD is the smallest scaled-down trade worth placing.
// Below this the exchange minimum order size makes the trade pointless.
const minRemainingBudgetUSD = 1.0

// Limits configures the gate. A zero value means the corresponding limit is
// not enforced.
type Limits struct {
	// MaxPositionUSD caps total exposure per market in USD.
	MaxPositionUSD float64
	// MaxPositionPct caps total exposure per market as a percentage of the
	// available USDC balance (0-100).
	MaxPositionPct float64
	// MinMarketDays rejects markets ending sooner than this many days out.
	MinMarketDays float64
	// MaxMarketDays rejects markets ending further than this many days out.
	MaxMarketDays float64
}

// Position is the slice of an existing market position the gate cares about.
type Position struct {
	CurrentValue float64
	Size         float64
}

// SizeDecision is the outcome of a position-limit check.
type SizeDecision struct {
	Allowed     bool
	AdjustedUSD float64
	Reason      string
}

// DurationDecision is the outcome of a market-duration check.
type DurationDecision struct {
	Allowed      bool
	Reason       string
	DaysUntilEnd float64
}

// Gate evaluates trades against the configured limits.
type Gate struct {
	limits Limits
	now    func() time.Time
}

// New creates a Gate with the given limits.
func New(limits Limits) *Gate {
	return &Gate{limits: limits, now: time.Now}
}

// NewWithClock creates a Gate with an injected clock. Tests use this to pin
// duration boundaries.
func NewWithClock(limits Limits, now func() time.Time) *Gate {
	return &Gate{limits: limits, now: now}
}

// CheckMarketPositionLimit decides whether adding proposedUSD of exposure to
// a market is allowed, given the available USDC balance and the existing
// position in that market (nil when none).
//
// When both limits are configured the stricter one applies. A trade that would
// push the market position past the limit is scaled down to the remaining
// budget; if less than a dollar of budget remains the trade is rejected.
func (g *Gate) CheckMarketPositionLimit(proposedUSD, availableUSDC float64, current *Position) SizeDecision {
	if g.limits.MaxPositionUSD == 0 && g.limits.MaxPositionPct == 0 {
		return SizeDecision{Allowed: true, AdjustedUSD: proposedUSD}
	}

	var currentValue float64
	if current != nil {
		currentValue = current.CurrentValue
	}

	actualLimit := math.Inf(1)
	if g.limits.MaxPositionUSD > 0 {
		actualLimit = math.Min(actualLimit, g.limits.MaxPositionUSD)
	}
	if g.limits.MaxPositionPct > 0 {
		actualLimit = math.Min(actualLimit, availableUSDC*g.limits.MaxPositionPct/100)
	}

	newTotal := currentValue + proposedUSD
	if newTotal <= actualLimit {
		return SizeDecision{Allowed: true, AdjustedUSD: proposedUSD}
	}

	remainingBudget := actualLimit - currentValue
	if remainingBudget < minRemainingBudgetUSD {
		return SizeDecision{
			Allowed:     false,
			AdjustedUSD: 0,
			Reason: fmt.Sprintf("Market position limit reached ($%.2f max, currently $%.2f)",
				actualLimit, currentValue),
		}
	}

	return SizeDecision{
		Allowed:     true,
		AdjustedUSD: remainingBudget,
		Reason: fmt.Sprintf("Scaled down from $%.2f to $%.2f (market limit: $%.2f)",
			proposedUSD, remainingBudget, actualLimit),
	}
}

// CheckMarketEndDate decides whether a market's end date fits the configured
// duration window. Markets with a missing or unparsable end date are allowed:
// the duration filter only rejects what it can positively measure.
func (g *Gate) CheckMarketEndDate(endDate string) DurationDecision {
	if endDate == "" {
		return DurationDecision{Allowed: true}
	}

	end, ok := parseEndDate(endDate)
	if !ok {
		return DurationDecision{Allowed: true}
	}

	daysUntilEnd := end.Sub(g.now()).Hours() / 24

	if daysUntilEnd < 0 {
		return DurationDecision{
			Allowed:      false,
			Reason:       "Market has already ended",
			DaysUntilEnd: 0,
		}
	}

	if g.limits.MinMarketDays > 0 && daysUntilEnd < g.limits.MinMarketDays {
		return DurationDecision{
			Allowed: false,
			Reason: fmt.Sprintf("Market ends too soon (%.1f days, min: %g days)",
				daysUntilEnd, g.limits.MinMarketDays),
			DaysUntilEnd: daysUntilEnd,
		}
	}

	if g.limits.MaxMarketDays > 0 && daysUntilEnd > g.limits.MaxMarketDays {
		return DurationDecision{
			Allowed: false,
			Reason: fmt.Sprintf("Market ends too far away (%.0f days, max: %g days)",
				daysUntilEnd, g.limits.MaxMarketDays),
			DaysUntilEnd: daysUntilEnd,
		}
	}

	return DurationDecision{Allowed: true, DaysUntilEnd: daysUntilEnd}
}

// parseEndDate accepts the formats the feed actually emits: RFC 3339, a bare
// date, or a unix timestamp in seconds or milliseconds.
func parseEndDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		// Millisecond timestamps are unambiguously larger than any
		// plausible second timestamp.
		if n > 1e12 {
			return time.UnixMilli(int64(n)), true
		}
		return time.Unix(int64(n), 0), true
	}
	return time.Time{}, false
}
