package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/polymirror/mirrorbot/internal/domain"
	"github.com/polymirror/mirrorbot/internal/platform/polymarket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memTradeLedger is an in-memory domain.TradeLedger keyed like the real one.
type memTradeLedger struct {
	mu     sync.Mutex
	trades map[string]domain.TradeRecord // key: wallet + "/" + txHash
	nextID int64

	insertErr error
	findErr   error
	markErr   error
}

func newMemTradeLedger() *memTradeLedger {
	return &memTradeLedger{trades: make(map[string]domain.TradeRecord)}
}

func tradeKey(wallet, txHash string) string { return wallet + "/" + txHash }

func (m *memTradeLedger) FindByTxHash(_ context.Context, wallet, txHash string) (domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return domain.TradeRecord{}, m.findErr
	}
	t, ok := m.trades[tradeKey(wallet, txHash)]
	if !ok {
		return domain.TradeRecord{}, fmt.Errorf("mem: trade %s: %w", txHash, domain.ErrNotFound)
	}
	return t, nil
}

func (m *memTradeLedger) Insert(_ context.Context, rec domain.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	key := tradeKey(rec.Wallet, rec.TransactionHash)
	if _, ok := m.trades[key]; ok {
		return nil // ON CONFLICT DO NOTHING
	}
	m.nextID++
	rec.ID = m.nextID
	m.trades[key] = rec
	return nil
}

func (m *memTradeLedger) Count(_ context.Context, wallet string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.trades {
		if t.Wallet == wallet {
			n++
		}
	}
	return n, nil
}

func (m *memTradeLedger) MarkAllProcessed(_ context.Context, wallet string, executedTime int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return 0, m.markErr
	}
	var n int64
	for key, t := range m.trades {
		if t.Wallet == wallet && !t.Bot {
			t.Bot = true
			t.BotExecutedTime = executedTime
			m.trades[key] = t
			n++
		}
	}
	return n, nil
}

func (m *memTradeLedger) MarkExecuted(_ context.Context, wallet, txHash string, executedTime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tradeKey(wallet, txHash)
	t, ok := m.trades[key]
	if !ok {
		return fmt.Errorf("mem: trade %s: %w", txHash, domain.ErrNotFound)
	}
	t.Bot = true
	t.BotExecutedTime = executedTime
	m.trades[key] = t
	return nil
}

func (m *memTradeLedger) ListPending(_ context.Context, wallet string, limit int) ([]domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TradeRecord
	for _, t := range m.trades {
		if t.Wallet == wallet && !t.Bot {
			out = append(out, t)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memTradeLedger) ListBefore(_ context.Context, before int64) ([]domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TradeRecord
	for _, t := range m.trades {
		if t.Timestamp < before {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTradeLedger) all() []domain.TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TradeRecord, 0, len(m.trades))
	for _, t := range m.trades {
		out = append(out, t)
	}
	return out
}

// memPositionLedger is an in-memory domain.PositionLedger.
type memPositionLedger struct {
	mu        sync.Mutex
	positions map[string]domain.PositionRecord // key: wallet/asset/conditionID
	upsertErr error
	marketErr error
}

func newMemPositionLedger() *memPositionLedger {
	return &memPositionLedger{positions: make(map[string]domain.PositionRecord)}
}

func posKey(wallet, asset, conditionID string) string {
	return wallet + "/" + asset + "/" + conditionID
}

func (m *memPositionLedger) Upsert(_ context.Context, pos domain.PositionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.positions[posKey(pos.Wallet, pos.Asset, pos.ConditionID)] = pos
	return nil
}

func (m *memPositionLedger) List(_ context.Context, wallet string) ([]domain.PositionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PositionRecord
	for _, p := range m.positions {
		if p.Wallet == wallet {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPositionLedger) FindByMarket(_ context.Context, wallet, conditionID string) ([]domain.PositionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marketErr != nil {
		return nil, m.marketErr
	}
	var out []domain.PositionRecord
	for _, p := range m.positions {
		if p.Wallet == wallet && p.ConditionID == conditionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPositionLedger) Count(_ context.Context, wallet string) (int64, error) {
	ps, _ := m.List(context.Background(), wallet)
	return int64(len(ps)), nil
}

// memBus records published payloads.
type memBus struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (b *memBus) Publish(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.payloads = append(b.payloads, payload)
	return nil
}

func (b *memBus) published() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte{}, b.payloads...)
}

// fakeFeed serves canned activity and position records per wallet.
type fakeFeed struct {
	mu        sync.Mutex
	activity  map[string][]polymarket.RawRecord
	positions map[string][]polymarket.RawRecord
	value     map[string]float64
	actErrFor map[string]error
	posErr    error
	valErr    error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		activity:  make(map[string][]polymarket.RawRecord),
		positions: make(map[string][]polymarket.RawRecord),
		value:     make(map[string]float64),
		actErrFor: make(map[string]error),
	}
}

func (f *fakeFeed) UserActivity(_ context.Context, wallet string) ([]polymarket.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.actErrFor[wallet]; err != nil {
		return nil, err
	}
	return f.activity[wallet], nil
}

func (f *fakeFeed) UserPositions(_ context.Context, wallet string) ([]polymarket.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.posErr != nil {
		return nil, f.posErr
	}
	return f.positions[wallet], nil
}

func (f *fakeFeed) UserValue(_ context.Context, wallet string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.valErr != nil {
		return 0, f.valErr
	}
	return f.value[wallet], nil
}

// nopAlerter satisfies both alerter interfaces.
type nopAlerter struct{}

func (nopAlerter) NotifyNewTrade(context.Context, domain.TradeRecord) error { return nil }
func (nopAlerter) NotifyStartup(context.Context, string, []string) error    { return nil }
func (nopAlerter) NotifyShutdown(context.Context) error                     { return nil }
func (nopAlerter) NotifyError(context.Context, string, error) error         { return nil }

// recAlerter records error alerts.
type recAlerter struct {
	nopAlerter
	mu     sync.Mutex
	wheres []string
}

func (r *recAlerter) NotifyError(_ context.Context, where string, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wheres = append(r.wheres, where)
	return nil
}

func (r *recAlerter) errorWheres() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.wheres...)
}
