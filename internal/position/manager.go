// Package position owns the trade lifecycle state machine. Trades move from
// open to exactly one of closed, stopped or failed; terminal states are final
// and every transition is persisted through the ledger store.
package position

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pilot/internal/ledger"
	"pilot/internal/logger"
	"pilot/internal/notifier"
	symbolpkg "pilot/internal/pkg/symbol"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Executor is the execution collaborator contract consumed by the manager.
type Executor interface {
	Invoke(ctx context.Context, action string, args map[string]any) (string, error)
}

// PriceSource supplies current prices for open-position evaluation.
type PriceSource interface {
	LatestPrice(ctx context.Context, sym string) (decimal.Decimal, error)
}

// Candidate is a buy decision handed over by the scanner or a skill.
type Candidate struct {
	Symbol string
	Amount decimal.Decimal
	Price  decimal.Decimal
	Reason string
}

// Decision is the outcome of evaluating an open position against current
// price.
type Decision int

const (
	Hold Decision = iota
	Close
	Stop
)

func (d Decision) String() string {
	switch d {
	case Close:
		return "close"
	case Stop:
		return "stop"
	default:
		return "hold"
	}
}

// Manager opens, evaluates and closes positions. Opens and closes serialize
// on one internal mutex so the duplicate-symbol, max-open-positions and
// already-terminal checks still hold while the collaborator call is in
// flight, even under concurrent callers (scheduler sweep racing a chat
// skill). Without it two closers of the same trade could both submit a sell
// before either records the terminal status.
type Manager struct {
	store  *ledger.Store
	exec   Executor
	prices PriceSource
	notify notifier.TextNotifier

	mu sync.Mutex
}

func NewManager(store *ledger.Store, exec Executor, prices PriceSource, notify notifier.TextNotifier) *Manager {
	if notify == nil {
		notify = notifier.Noop{}
	}
	return &Manager{
		store:  store,
		exec:   exec,
		prices: prices,
		notify: notify,
	}
}

// Open validates a candidate against the current settings, submits the buy
// through the execution collaborator, and records the trade. status=open is
// written only after the collaborator reports success; a collaborator
// failure is recorded as a failed trade and surfaced to the caller with no
// automatic retry.
func (m *Manager) Open(ctx context.Context, cand Candidate) (ledger.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sym := symbolpkg.Normalize(cand.Symbol)
	if sym == "" {
		return ledger.Trade{}, fmt.Errorf("invalid symbol %q", cand.Symbol)
	}
	settings := m.store.Settings()
	snap := m.store.Snapshot()

	if open := ledger.OpenPositions(snap); len(open) >= settings.MaxOpenPositions {
		return ledger.Trade{}, fmt.Errorf("position limit reached (%d/%d open), close a position first",
			len(open), settings.MaxOpenPositions)
	}
	if snap.OpenIndex(sym) >= 0 {
		return ledger.Trade{}, fmt.Errorf("already holding an open position on %s", sym)
	}
	if cand.Amount.LessThanOrEqual(decimal.Zero) {
		return ledger.Trade{}, fmt.Errorf("buy amount must be positive")
	}
	if cand.Amount.GreaterThan(settings.MaxBuyAmount) {
		return ledger.Trade{}, fmt.Errorf("amount %s exceeds max buy amount %s, lower the size or raise the limit",
			cand.Amount, settings.MaxBuyAmount)
	}

	trade := ledger.Trade{
		ID:        uuid.NewString(),
		Symbol:    sym,
		Action:    ledger.ActionBuy,
		Amount:    cand.Amount,
		Price:     cand.Price,
		Reason:    cand.Reason,
		Status:    ledger.StatusOpen,
		Timestamp: time.Now().UTC(),
	}

	_, execErr := m.exec.Invoke(ctx, "buy", map[string]any{
		"symbol": sym,
		"amount": cand.Amount.String(),
	})
	if execErr != nil {
		trade.Status = ledger.StatusFailed
		if err := m.record(trade); err != nil {
			logger.Errorf("Position: persisting failed trade %s: %v", sym, err)
		}
		return trade, fmt.Errorf("buy %s did not execute: %w, check the executor balance and retry", sym, execErr)
	}

	if err := m.record(trade); err != nil {
		return trade, err
	}
	logger.Infof("Position: opened %s amount=%s price=%s", sym, trade.Amount, trade.Price)
	m.notifyText(fmt.Sprintf("🟢 Opened %s: amount %s at %s\n%s", sym, trade.Amount, trade.Price, trade.Reason))
	return trade, nil
}

// Evaluate applies the take-profit/stop-loss thresholds to an open trade.
// When both thresholds are satisfied at once, stop wins (capital
// preservation bias).
func (m *Manager) Evaluate(t ledger.Trade, current decimal.Decimal, settings ledger.Settings) Decision {
	if t.Status != ledger.StatusOpen || t.Price.IsZero() {
		return Hold
	}
	change := unrealizedPct(t, current)
	if settings.StopLossPct > 0 && change.LessThanOrEqual(decimal.NewFromFloat(-settings.StopLossPct)) {
		return Stop
	}
	if settings.TakeProfitPct > 0 && change.GreaterThanOrEqual(decimal.NewFromFloat(settings.TakeProfitPct)) {
		return Close
	}
	return Hold
}

// ClosePosition sells through the collaborator, realizes the PnL and moves
// the trade to its terminal status (closed on target/manual exit, stopped on
// stop-loss). A collaborator failure leaves the position open and surfaces
// to the caller.
func (m *Manager) ClosePosition(ctx context.Context, tradeID string, exitPrice decimal.Decimal, kind ledger.TradeStatus) (ledger.Trade, error) {
	if kind != ledger.StatusClosed && kind != ledger.StatusStopped {
		return ledger.Trade{}, fmt.Errorf("invalid close kind %q", kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.store.Snapshot()
	var target *ledger.Trade
	for i := range snap.Trades {
		if snap.Trades[i].ID == tradeID {
			target = &snap.Trades[i]
			break
		}
	}
	if target == nil {
		return ledger.Trade{}, fmt.Errorf("no trade with id %s", tradeID)
	}
	if target.Status != ledger.StatusOpen {
		return *target, fmt.Errorf("trade %s on %s is already %s", tradeID, target.Symbol, target.Status)
	}

	if _, err := m.exec.Invoke(ctx, "sell", map[string]any{
		"symbol": target.Symbol,
		"amount": target.Amount.String(),
	}); err != nil {
		return *target, fmt.Errorf("sell %s did not execute: %w, position stays open, retry or close manually", target.Symbol, err)
	}

	pnl := realizedPct(*target, exitPrice)
	var closed ledger.Trade
	err := m.store.Mutate(func(l *ledger.Ledger) error {
		for i := range l.Trades {
			if l.Trades[i].ID != tradeID {
				continue
			}
			if l.Trades[i].Status != ledger.StatusOpen {
				return fmt.Errorf("trade %s is already %s", tradeID, l.Trades[i].Status)
			}
			l.Trades[i].Status = kind
			l.Trades[i].PnL = &pnl
			closed = l.Trades[i]
			return nil
		}
		return fmt.Errorf("no trade with id %s", tradeID)
	})
	if err != nil {
		return *target, err
	}

	icon := "✅"
	if kind == ledger.StatusStopped {
		icon = "🛑"
	}
	logger.Infof("Position: %s %s pnl=%s%%", kind, closed.Symbol, pnl.StringFixed(2))
	m.notifyText(fmt.Sprintf("%s %s %s at %s, P&L %s%%", icon, kind, closed.Symbol, exitPrice, pnl.StringFixed(2)))
	return closed, nil
}

// CheckOpenPositions evaluates every open position against the live price
// and closes the ones that hit a threshold. Per-position failures are logged
// and skipped; one bad symbol never aborts the sweep.
func (m *Manager) CheckOpenPositions(ctx context.Context) {
	settings := m.store.Settings()
	for _, t := range ledger.OpenPositions(m.store.Snapshot()) {
		price, err := m.prices.LatestPrice(ctx, t.Symbol)
		if err != nil {
			logger.Warnf("Position: no price for %s, skipping evaluation: %v", t.Symbol, err)
			continue
		}
		switch m.Evaluate(t, price, settings) {
		case Close:
			if _, err := m.ClosePosition(ctx, t.ID, price, ledger.StatusClosed); err != nil {
				logger.Warnf("Position: take-profit close %s failed: %v", t.Symbol, err)
			}
		case Stop:
			if _, err := m.ClosePosition(ctx, t.ID, price, ledger.StatusStopped); err != nil {
				logger.Warnf("Position: stop-loss close %s failed: %v", t.Symbol, err)
			}
		}
	}
}

func (m *Manager) record(t ledger.Trade) error {
	return m.store.Mutate(func(l *ledger.Ledger) error {
		if t.Status == ledger.StatusOpen && l.OpenIndex(t.Symbol) >= 0 {
			return fmt.Errorf("already holding an open position on %s", t.Symbol)
		}
		l.AppendTrade(t)
		return nil
	})
}

func (m *Manager) notifyText(text string) {
	if err := m.notify.SendText(text); err != nil {
		logger.Warnf("Position: notification failed: %v", err)
	}
}

// unrealizedPct is the signed percentage move from entry, positive when the
// position is in profit. Sell-side entries profit when price falls.
func unrealizedPct(t ledger.Trade, current decimal.Decimal) decimal.Decimal {
	change := current.Sub(t.Price).Div(t.Price).Mul(decimal.NewFromInt(100))
	if t.Action == ledger.ActionSell {
		return change.Neg()
	}
	return change
}

func realizedPct(t ledger.Trade, exit decimal.Decimal) decimal.Decimal {
	return unrealizedPct(t, exit)
}
