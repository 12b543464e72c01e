package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/polymirror/mirrorbot/internal/domain"
	"github.com/polymirror/mirrorbot/internal/platform/polymarket"
)

// TradeAlerter receives newly recorded trades for operator notification.
type TradeAlerter interface {
	NotifyNewTrade(ctx context.Context, trade domain.TradeRecord) error
}

// TradeIngestor folds raw activity feed records into the trade ledger.
// Records older than the cutoff are skipped, records already present are
// skipped, and each genuinely new record is persisted and published as a
// signal for the downstream executor.
type TradeIngestor struct {
	trades  domain.TradeLedger
	bus     domain.SignalBus
	alerter TradeAlerter
	adviser SignalAdviser
	stream  string
	cutoff  int64
	logger  *slog.Logger
}

// NewTradeIngestor creates a TradeIngestor. cutoff is a unix timestamp;
// feed records strictly older than it are never ingested. alerter may be a
// no-op Notifier but must not be nil; adviser may be nil, in which case
// signals carry no risk block.
func NewTradeIngestor(
	trades domain.TradeLedger,
	bus domain.SignalBus,
	alerter TradeAlerter,
	adviser SignalAdviser,
	stream string,
	cutoff int64,
	logger *slog.Logger,
) *TradeIngestor {
	return &TradeIngestor{
		trades:  trades,
		bus:     bus,
		alerter: alerter,
		adviser: adviser,
		stream:  stream,
		cutoff:  cutoff,
		logger:  logger.With(slog.String("component", "trade_ingestor")),
	}
}

// signalPayload is the JSON shape published on the signal stream for each new
// trade.
type signalPayload struct {
	ID              string  `json:"id"`
	Wallet          string  `json:"wallet"`
	TransactionHash string  `json:"transactionHash"`
	Timestamp       int64   `json:"timestamp"`
	ConditionID     string  `json:"conditionId"`
	Asset           string  `json:"asset"`
	Side            string  `json:"side"`
	Size            float64 `json:"size"`
	UsdcSize        float64 `json:"usdcSize"`
	Price           float64 `json:"price"`
	OutcomeIndex    int     `json:"outcomeIndex"`
	Outcome         string  `json:"outcome"`
	Title           string  `json:"title"`
	Slug            string  `json:"slug"`
	EndDate         string  `json:"endDate,omitempty"`

	Risk *signalRisk `json:"risk,omitempty"`
}

// signalRisk is the advisory block attached when a risk adviser is
// configured.
type signalRisk struct {
	Allowed      bool    `json:"allowed"`
	SuggestedUSD float64 `json:"suggestedUsd"`
	Reason       string  `json:"reason,omitempty"`
	DaysUntilEnd float64 `json:"daysUntilEnd,omitempty"`
}

// Ingest processes one batch of raw feed records for a wallet and returns the
// number of genuinely new trades recorded. A failure on one record never
// blocks the rest of the batch; per-record errors are logged and the batch
// continues.
func (ti *TradeIngestor) Ingest(ctx context.Context, wallet string, raws []polymarket.RawRecord) (int, error) {
	ingested := 0

	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return ingested, fmt.Errorf("pipeline: ingest cancelled: %w", err)
		}

		trade := polymarket.NormalizeTrade(wallet, raw)

		if trade.TransactionHash == "" {
			ti.logger.WarnContext(ctx, "feed record missing transaction hash, skipping",
				slog.String("wallet", domain.ShortAddress(wallet)),
			)
			continue
		}

		// Cutoff: never replay history from before the bot's epoch.
		if trade.Timestamp < ti.cutoff {
			continue
		}

		err := ti.processTrade(ctx, trade)
		if errors.Is(err, errSeen) {
			continue
		}
		if err != nil {
			ti.logger.ErrorContext(ctx, "failed to process trade",
				slog.String("wallet", domain.ShortAddress(wallet)),
				slog.String("tx_hash", trade.TransactionHash),
				slog.String("error", err.Error()),
			)
			continue
		}

		ingested++
	}

	return ingested, nil
}

// processTrade records a single trade if it has not been seen before and
// publishes the corresponding signal.
func (ti *TradeIngestor) processTrade(ctx context.Context, trade domain.TradeRecord) error {
	_, err := ti.trades.FindByTxHash(ctx, trade.Wallet, trade.TransactionHash)
	if err == nil {
		// Already recorded; re-polling the feed always re-delivers recent
		// records.
		return errSeen
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("dedup lookup: %w", err)
	}

	if err := ti.trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	ti.logger.InfoContext(ctx, "new trade recorded",
		slog.String("wallet", domain.ShortAddress(trade.Wallet)),
		slog.String("tx_hash", trade.TransactionHash),
		slog.String("side", trade.Side),
		slog.Float64("usdc_size", trade.UsdcSize),
		slog.String("title", trade.Title),
	)

	if err := ti.publishSignal(ctx, trade); err != nil {
		// The trade is safely in the ledger; the executor can still pick it
		// up via ListPending even if the live signal was lost.
		ti.logger.ErrorContext(ctx, "failed to publish signal",
			slog.String("tx_hash", trade.TransactionHash),
			slog.String("error", err.Error()),
		)
	}

	if err := ti.alerter.NotifyNewTrade(ctx, trade); err != nil {
		ti.logger.WarnContext(ctx, "trade notification failed",
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// errSeen marks a record skipped because it is already in the ledger. It is
// internal to Ingest's accounting and never escapes.
var errSeen = errors.New("trade already recorded")

func (ti *TradeIngestor) publishSignal(ctx context.Context, trade domain.TradeRecord) error {
	sig := signalPayload{
		ID:              uuid.NewString(),
		Wallet:          trade.Wallet,
		TransactionHash: trade.TransactionHash,
		Timestamp:       trade.Timestamp,
		ConditionID:     trade.ConditionID,
		Asset:           trade.Asset,
		Side:            trade.Side,
		Size:            trade.Size,
		UsdcSize:        trade.UsdcSize,
		Price:           trade.Price,
		OutcomeIndex:    trade.OutcomeIndex,
		Outcome:         trade.Outcome,
		Title:           trade.Title,
		Slug:            trade.Slug,
	}

	if ti.adviser != nil {
		advice := ti.adviser.Advise(ctx, trade)
		sig.EndDate = advice.EndDate
		sig.Risk = &signalRisk{
			Allowed:      advice.Allowed,
			SuggestedUSD: advice.SuggestedUSD,
			Reason:       advice.Reason,
			DaysUntilEnd: advice.DaysUntilEnd,
		}
	}

	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	if err := ti.bus.Publish(ctx, ti.stream, payload); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}
