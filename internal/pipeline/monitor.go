package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polymirror/mirrorbot/internal/domain"
	"github.com/polymirror/mirrorbot/internal/platform/polymarket"
)

// State is the monitor's lifecycle phase.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	StateStopping
	StateStopped
)

// String implements fmt.Stringer for log output.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ActivityFetcher retrieves a wallet's trade activity from the feed.
type ActivityFetcher interface {
	UserActivity(ctx context.Context, wallet string) ([]polymarket.RawRecord, error)
}

// Ingestor folds raw activity records into the trade ledger.
type Ingestor interface {
	Ingest(ctx context.Context, wallet string, raws []polymarket.RawRecord) (int, error)
}

// Syncer mirrors a wallet's positions into the position ledger.
type Syncer interface {
	Sync(ctx context.Context, wallet string) (int, error)
}

// LifecycleAlerter receives start/stop notifications and operational error
// alerts.
type LifecycleAlerter interface {
	NotifyStartup(ctx context.Context, mode string, wallets []string) error
	NotifyShutdown(ctx context.Context) error
	NotifyError(ctx context.Context, where string, err error) error
}

// MonitorConfig configures the polling monitor.
type MonitorConfig struct {
	// Tracked wallets are ingested and position-synced every pass.
	Tracked []string
	// Operator, when set, has its positions synced into the same ledger so
	// downstream risk checks can read the bot's own exposure. Its activity
	// feed is never ingested.
	Operator string
	// Interval is the pause between passes.
	Interval time.Duration
	// Mode is reported in lifecycle notifications.
	Mode string
}

// Monitor drives the ingest-then-sync polling loop over all tracked wallets.
//
// The lifecycle is Initializing → Running → Stopping → Stopped. Stop requests
// are observed only at pass boundaries: a pass that has started always
// completes, so the ledger is never left mid-batch.
type Monitor struct {
	cfg     MonitorConfig
	feed    ActivityFetcher
	ingest  Ingestor
	sync    Syncer
	trades  domain.TradeLedger
	posns   domain.PositionLedger
	alerter LifecycleAlerter
	logger  *slog.Logger

	state    atomic.Int32
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a Monitor in the Initializing state.
func NewMonitor(
	cfg MonitorConfig,
	feed ActivityFetcher,
	ingest Ingestor,
	sync Syncer,
	trades domain.TradeLedger,
	posns domain.PositionLedger,
	alerter LifecycleAlerter,
	logger *slog.Logger,
) *Monitor {
	m := &Monitor{
		cfg:     cfg,
		feed:    feed,
		ingest:  ingest,
		sync:    sync,
		trades:  trades,
		posns:   posns,
		alerter: alerter,
		logger:  logger.With(slog.String("component", "monitor")),
	}
	m.state.Store(int32(StateInitializing))
	m.stopCh = make(chan struct{})
	return m
}

// State returns the current lifecycle phase.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Running reports whether the monitor is actively polling.
func (m *Monitor) Running() bool {
	return m.State() == StateRunning
}

// Stop requests a cooperative shutdown. The current pass finishes before the
// loop exits. Safe to call multiple times and from any goroutine.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.state.Store(int32(StateStopping))
		close(m.stopCh)
	})
}

// Run executes the monitor until Stop is called or ctx is cancelled. It logs
// the init snapshot, performs the one-time bootstrap, then loops passes at
// the configured interval. The first pass starts immediately.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.state.Store(int32(StateStopped))

	m.logSnapshot(ctx)

	if err := m.bootstrap(ctx); err != nil {
		m.alertError(context.WithoutCancel(ctx), "bootstrap", err)
		return fmt.Errorf("pipeline: bootstrap: %w", err)
	}

	if err := m.alerter.NotifyStartup(ctx, m.cfg.Mode, m.cfg.Tracked); err != nil {
		m.logger.WarnContext(ctx, "startup notification failed",
			slog.String("error", err.Error()),
		)
	}

	m.state.Store(int32(StateRunning))
	m.logger.InfoContext(ctx, "monitor running",
		slog.Int("wallets", len(m.cfg.Tracked)),
		slog.Duration("interval", m.cfg.Interval),
	)

	for {
		if m.stopRequested(ctx) {
			break
		}

		m.runPass(ctx)

		if !m.sleep(ctx) {
			break
		}
	}

	if err := m.alerter.NotifyShutdown(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("shutdown notification failed",
			slog.String("error", err.Error()),
		)
	}

	m.logger.Info("monitor stopped")
	return nil
}

// bootstrap marks every pre-existing unprocessed trade as handled, once per
// process start. Without it a restart would replay the tracked wallets'
// entire visible history as fresh signals.
func (m *Monitor) bootstrap(ctx context.Context) error {
	total := int64(0)
	for _, wallet := range m.cfg.Tracked {
		marked, err := m.trades.MarkAllProcessed(ctx, wallet, domain.BootstrapExecutedTime)
		if err != nil {
			return fmt.Errorf("mark processed for %s: %w", domain.ShortAddress(wallet), err)
		}
		total += marked
	}

	if total > 0 {
		m.logger.InfoContext(ctx, "bootstrap complete",
			slog.Int64("marked", total),
		)
	}
	return nil
}

// logSnapshot emits per-wallet counts and aggregate position stats. Failures
// are logged and ignored; the snapshot is observability only.
func (m *Monitor) logSnapshot(ctx context.Context) {
	wallets := m.cfg.Tracked
	if m.cfg.Operator != "" {
		wallets = append(append([]string{}, wallets...), m.cfg.Operator)
	}

	for _, wallet := range wallets {
		short := domain.ShortAddress(wallet)

		tradeCount, err := m.trades.Count(ctx, wallet)
		if err != nil {
			m.logger.WarnContext(ctx, "snapshot: trade count failed",
				slog.String("wallet", short),
				slog.String("error", err.Error()),
			)
			continue
		}

		positions, err := m.posns.List(ctx, wallet)
		if err != nil {
			m.logger.WarnContext(ctx, "snapshot: position list failed",
				slog.String("wallet", short),
				slog.String("error", err.Error()),
			)
			continue
		}

		stats := domain.CalcPositionStats(positions)
		m.logger.InfoContext(ctx, "wallet snapshot",
			slog.String("wallet", short),
			slog.Int64("trades", tradeCount),
			slog.Int("positions", len(positions)),
			slog.Float64("total_value", stats.TotalValue),
			slog.Float64("initial_value", stats.InitialValue),
			slog.Float64("overall_pnl_pct", stats.OverallPnl),
		)
	}
}

// runPass processes every tracked wallet once: ingest the activity feed, then
// sync positions. One wallet failing never blocks the others. The operator
// wallet gets a position sync only.
func (m *Monitor) runPass(ctx context.Context) {
	start := time.Now()

	for _, wallet := range m.cfg.Tracked {
		short := domain.ShortAddress(wallet)

		raws, err := m.feed.UserActivity(ctx, wallet)
		if err != nil {
			m.logger.ErrorContext(ctx, "activity fetch failed",
				slog.String("wallet", short),
				slog.String("error", err.Error()),
			)
			m.alertError(ctx, "activity fetch ("+short+")", err)
			continue
		}

		ingested, err := m.ingest.Ingest(ctx, wallet, raws)
		if err != nil {
			m.logger.ErrorContext(ctx, "ingest failed",
				slog.String("wallet", short),
				slog.String("error", err.Error()),
			)
			m.alertError(ctx, "ingest ("+short+")", err)
			continue
		}

		if _, err := m.sync.Sync(ctx, wallet); err != nil {
			m.logger.ErrorContext(ctx, "position sync failed",
				slog.String("wallet", short),
				slog.String("error", err.Error()),
			)
			m.alertError(ctx, "position sync ("+short+")", err)
			continue
		}

		if ingested > 0 {
			m.logger.InfoContext(ctx, "pass ingested new trades",
				slog.String("wallet", short),
				slog.Int("count", ingested),
			)
		}
	}

	if m.cfg.Operator != "" {
		if _, err := m.sync.Sync(ctx, m.cfg.Operator); err != nil {
			m.logger.ErrorContext(ctx, "operator position sync failed",
				slog.String("wallet", domain.ShortAddress(m.cfg.Operator)),
				slog.String("error", err.Error()),
			)
			m.alertError(ctx, "operator position sync", err)
		}
	}

	m.logger.DebugContext(ctx, "pass complete",
		slog.Duration("elapsed", time.Since(start)),
	)
}

// alertError forwards an operational error to the alerter. The alert itself
// failing is only worth a log line.
func (m *Monitor) alertError(ctx context.Context, where string, err error) {
	if nerr := m.alerter.NotifyError(ctx, where, err); nerr != nil {
		m.logger.WarnContext(ctx, "error notification failed",
			slog.String("error", nerr.Error()),
		)
	}
}

// stopRequested reports whether a stop or cancellation has been observed.
func (m *Monitor) stopRequested(ctx context.Context) bool {
	select {
	case <-m.stopCh:
		return true
	case <-ctx.Done():
		m.Stop()
		return true
	default:
		return false
	}
}

// sleep waits out the inter-pass interval. It returns false when the wait was
// interrupted by a stop request or context cancellation.
func (m *Monitor) sleep(ctx context.Context) bool {
	timer := time.NewTimer(m.cfg.Interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-m.stopCh:
		return false
	case <-ctx.Done():
		m.Stop()
		return false
	}
}
