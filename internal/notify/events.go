package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/polymirror/mirrorbot/internal/domain"
)

// The helpers below format the bot's standard operator alerts. They swallow
// nothing: errors bubble up so callers can decide whether a failed alert is
// worth logging.

// NotifyStartup announces that the bot is online and which wallets it mirrors.
func (n *Notifier) NotifyStartup(ctx context.Context, mode string, wallets []string) error {
	short := make([]string, 0, len(wallets))
	for _, w := range wallets {
		short = append(short, domain.ShortAddress(w))
	}

	message := fmt.Sprintf(
		"Status: Online\nMode: %s\nTime: %s\nTracking: %s\n\nThe bot is now monitoring trades.",
		mode,
		time.Now().UTC().Format(time.RFC3339),
		strings.Join(short, ", "),
	)
	return n.Notify(ctx, EventStartup, "Bot Started", message)
}

// NotifyShutdown announces that the bot has stopped.
func (n *Notifier) NotifyShutdown(ctx context.Context) error {
	message := fmt.Sprintf(
		"Status: Offline\nTime: %s\n\nThe bot has been shut down.",
		time.Now().UTC().Format(time.RFC3339),
	)
	return n.Notify(ctx, EventShutdown, "Bot Stopped", message)
}

// NotifyNewTrade announces a newly recorded trade from a tracked wallet.
func (n *Notifier) NotifyNewTrade(ctx context.Context, trade domain.TradeRecord) error {
	title := fmt.Sprintf("%s Signal Recorded", trade.Side)

	market := trade.Title
	if len(market) > 50 {
		market = market[:50]
	}

	message := fmt.Sprintf(
		"Market: %s\nOutcome: %s\nSide: %s\nAmount: $%.2f\nPrice: %.4f\nTrader: %s",
		market,
		trade.Outcome,
		trade.Side,
		trade.UsdcSize,
		trade.Price,
		domain.ShortAddress(trade.Wallet),
	)
	return n.Notify(ctx, EventNewTrade, title, message)
}

// NotifyError reports a non-fatal operational error.
func (n *Notifier) NotifyError(ctx context.Context, where string, err error) error {
	message := fmt.Sprintf("Where: %s\nError: %v", where, err)
	return n.Notify(ctx, EventError, "Bot Error", message)
}
