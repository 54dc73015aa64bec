// Package ledger owns the durable trading record: every trade the system
// ever took, the mutable risk settings, and the free-text learnings the
// reflection loop accumulates. The document is read whole and written whole;
// derived aggregates are caches recomputed from the trade list.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeAction is the direction of the position entry.
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// TradeStatus is the lifecycle state of a trade.
// open -> closed (target hit or explicit sell), open -> stopped (stop-loss),
// open -> failed (execution error before confirmation). Terminal states are
// absorbing.
type TradeStatus string

const (
	StatusOpen    TradeStatus = "open"
	StatusClosed  TradeStatus = "closed"
	StatusStopped TradeStatus = "stopped"
	StatusFailed  TradeStatus = "failed"
)

// Terminal reports whether no further transition may leave the status.
func (s TradeStatus) Terminal() bool {
	switch s {
	case StatusClosed, StatusStopped, StatusFailed:
		return true
	}
	return false
}

// Trade is one position lifecycle record. Amounts and prices are decimals so
// persisted documents never accumulate float rounding loss. PnL is a realized
// percentage and is set iff the status is closed or stopped; failed trades
// carry no PnL and are excluded from performance stats.
type Trade struct {
	ID        string           `json:"id"`
	Symbol    string           `json:"symbol"`
	Action    TradeAction      `json:"action"`
	Amount    decimal.Decimal  `json:"amount"`
	Price     decimal.Decimal  `json:"price"`
	Reason    string           `json:"reason"`
	Status    TradeStatus      `json:"status"`
	PnL       *decimal.Decimal `json:"pnl,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Settings is the single process-wide trading configuration. It lives inside
// the ledger document so toggles survive restarts.
type Settings struct {
	MaxMarketCap     float64         `json:"maxMarketCap"`
	MaxBuyAmount     decimal.Decimal `json:"maxBuyAmount"`
	TakeProfitPct    float64         `json:"takeProfitPct"`
	StopLossPct      float64         `json:"stopLossPct"`
	ScanIntervalMin  int             `json:"scanIntervalMin"`
	MaxOpenPositions int             `json:"maxOpenPositions"`
	AutoTradeEnabled bool            `json:"autoTradeEnabled"`
}

// DefaultSettings mirrors the documented defaults used when no prior state
// exists.
func DefaultSettings() Settings {
	return Settings{
		MaxMarketCap:     50_000_000,
		MaxBuyAmount:     decimal.NewFromInt(100),
		TakeProfitPct:    50,
		StopLossPct:      20,
		ScanIntervalMin:  30,
		MaxOpenPositions: 3,
		AutoTradeEnabled: false,
	}
}

// MaxLearnings caps the reflection notes kept in the document.
const MaxLearnings = 100

// Ledger is the aggregate root. TotalTrades, WinRate and TotalPnL are caches
// recomputed from Trades; Trades is always the source of truth.
type Ledger struct {
	Trades      []Trade  `json:"trades"`
	Settings    Settings `json:"settings"`
	Learnings   []string `json:"learnings"`
	TotalTrades int      `json:"totalTrades"`
	WinRate     float64  `json:"winRate"`
	TotalPnL    string   `json:"totalPnl"`
}

// NewLedger returns a default-initialized document.
func NewLedger() *Ledger {
	return &Ledger{
		Trades:    []Trade{},
		Settings:  DefaultSettings(),
		Learnings: []string{},
		TotalPnL:  "0",
	}
}

// OpenIndex returns the index of the open trade for symbol, or -1.
// At most one open trade may exist per symbol.
func (l *Ledger) OpenIndex(sym string) int {
	for i := range l.Trades {
		if l.Trades[i].Status == StatusOpen && l.Trades[i].Symbol == sym {
			return i
		}
	}
	return -1
}

// AppendTrade adds a trade, keeping timestamps monotonic non-decreasing.
func (l *Ledger) AppendTrade(t Trade) {
	if n := len(l.Trades); n > 0 && t.Timestamp.Before(l.Trades[n-1].Timestamp) {
		t.Timestamp = l.Trades[n-1].Timestamp
	}
	l.Trades = append(l.Trades, t)
}

// AppendLearning appends one reflection note, truncating to the most recent
// MaxLearnings entries.
func (l *Ledger) AppendLearning(note string) {
	l.Learnings = append(l.Learnings, note)
	if len(l.Learnings) > MaxLearnings {
		l.Learnings = l.Learnings[len(l.Learnings)-MaxLearnings:]
	}
}

// Clone returns a deep copy safe to hand across goroutines.
func (l *Ledger) Clone() *Ledger {
	out := *l
	out.Trades = make([]Trade, len(l.Trades))
	copy(out.Trades, l.Trades)
	for i := range out.Trades {
		if p := out.Trades[i].PnL; p != nil {
			v := *p
			out.Trades[i].PnL = &v
		}
	}
	out.Learnings = append([]string(nil), l.Learnings...)
	return &out
}
