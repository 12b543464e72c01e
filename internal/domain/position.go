package domain

// PositionRecord mirrors one open position of a tracked wallet in one market
// outcome. The composite key is (wallet, asset, condition_id); every sync
// fully replaces the value fields with the freshly fetched state rather than
// merging. Closed positions simply stop appearing in the feed and go stale
// until overwritten or externally pruned.
type PositionRecord struct {
	Wallet             string
	Asset              string
	ConditionID        string
	Size               float64
	AvgPrice           float64
	InitialValue       float64
	CurrentValue       float64
	CashPnl            float64
	PercentPnl         float64
	TotalBought        float64
	RealizedPnl        float64
	PercentRealizedPnl float64
	CurPrice           float64
	Redeemable         bool
	Mergeable          bool
	Title              string
	Slug               string
	Icon               string
	EventSlug          string
	Outcome            string
	OutcomeIndex       int
	OppositeOutcome    string
	OppositeAsset      string
	EndDate            string
	NegativeRisk       bool
}

// PositionStats aggregates a set of positions for the observability snapshot.
type PositionStats struct {
	TotalValue   float64
	InitialValue float64
	OverallPnl   float64 // percent, relative to initial value
}

// CalcPositionStats computes aggregate value and PnL over positions.
func CalcPositionStats(positions []PositionRecord) PositionStats {
	var s PositionStats
	for _, p := range positions {
		s.TotalValue += p.CurrentValue
		s.InitialValue += p.InitialValue
	}
	if s.InitialValue > 0 {
		s.OverallPnl = (s.TotalValue - s.InitialValue) / s.InitialValue * 100
	}
	return s
}
