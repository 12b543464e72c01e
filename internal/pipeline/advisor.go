package pipeline

import (
	"context"
	"log/slog"

	"github.com/polymirror/mirrorbot/internal/domain"
	"github.com/polymirror/mirrorbot/internal/risk"
)

// SignalAdviser attaches a sizing advisory to each newly recorded trade
// before its signal is published.
type SignalAdviser interface {
	Advise(ctx context.Context, trade domain.TradeRecord) SignalAdvice
}

// SignalAdvice is the risk verdict carried on a signal. It is advisory: the
// executor decides what to do with it. SuggestedUSD is the exposure the gate
// would permit, which may be smaller than the observed trade.
type SignalAdvice struct {
	Allowed      bool
	SuggestedUSD float64
	Reason       string
	DaysUntilEnd float64
	EndDate      string
}

// RiskAdvisor evaluates new trades against the risk gate using the operator's
// own ledger position in the market and live portfolio value. It never fails:
// when an input cannot be fetched the corresponding check is skipped, so a
// degraded feed produces permissive advice rather than lost signals.
type RiskAdvisor struct {
	gate      *risk.Gate
	positions domain.PositionLedger
	feed      PositionFetcher
	operator  string
	logger    *slog.Logger
}

// NewRiskAdvisor creates a RiskAdvisor for the operator wallet.
func NewRiskAdvisor(
	gate *risk.Gate,
	positions domain.PositionLedger,
	feed PositionFetcher,
	operator string,
	logger *slog.Logger,
) *RiskAdvisor {
	return &RiskAdvisor{
		gate:      gate,
		positions: positions,
		feed:      feed,
		operator:  operator,
		logger:    logger.With(slog.String("component", "risk_advisor")),
	}
}

// Advise runs the position-limit and duration checks for a trade.
func (ra *RiskAdvisor) Advise(ctx context.Context, trade domain.TradeRecord) SignalAdvice {
	advice := SignalAdvice{Allowed: true, SuggestedUSD: trade.UsdcSize}

	var current *risk.Position
	var endDate string

	held, err := ra.positions.FindByMarket(ctx, ra.operator, trade.ConditionID)
	if err != nil {
		ra.logger.WarnContext(ctx, "operator position lookup failed, advising without it",
			slog.String("condition_id", trade.ConditionID),
			slog.String("error", err.Error()),
		)
	} else if len(held) > 0 {
		agg := risk.Position{}
		for _, p := range held {
			agg.CurrentValue += p.CurrentValue
			agg.Size += p.Size
			if endDate == "" {
				endDate = p.EndDate
			}
		}
		current = &agg
	}

	available, err := ra.feed.UserValue(ctx, ra.operator)
	if err != nil {
		// Without a balance the percent cap cannot be computed; skip the
		// size check rather than reject on a fetch hiccup.
		ra.logger.WarnContext(ctx, "portfolio value unavailable, skipping size check",
			slog.String("error", err.Error()),
		)
	} else {
		size := ra.gate.CheckMarketPositionLimit(trade.UsdcSize, available, current)
		advice.SuggestedUSD = size.AdjustedUSD
		advice.Reason = size.Reason
		if !size.Allowed {
			advice.Allowed = false
		}
	}

	dur := ra.gate.CheckMarketEndDate(endDate)
	advice.DaysUntilEnd = dur.DaysUntilEnd
	advice.EndDate = endDate
	if !dur.Allowed {
		advice.Allowed = false
		if advice.Reason == "" {
			advice.Reason = dur.Reason
		} else {
			advice.Reason += "; " + dur.Reason
		}
	}

	return advice
}

var _ SignalAdviser = (*RiskAdvisor)(nil)
