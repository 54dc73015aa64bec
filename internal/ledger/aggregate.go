package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultHistoryLimit is used when callers pass no explicit limit.
const DefaultHistoryLimit = 10

// OpenPositions filters trades with status=open in insertion order.
func OpenPositions(l *Ledger) []Trade {
	var out []Trade
	for _, t := range l.Trades {
		if t.Status == StatusOpen {
			out = append(out, t)
		}
	}
	return out
}

// TradeHistory returns the most recent trades, newest first, capped at limit.
// A limit <= 0 returns an empty slice.
func TradeHistory(l *Ledger, limit int) []Trade {
	if limit <= 0 {
		return nil
	}
	out := make([]Trade, 0, limit)
	for i := len(l.Trades) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.Trades[i])
	}
	return out
}

// closedTrades returns terminal trades that carry a realized PnL, i.e.
// closed and stopped. Failed trades never count toward performance.
func closedTrades(l *Ledger) []Trade {
	var out []Trade
	for _, t := range l.Trades {
		if (t.Status == StatusClosed || t.Status == StatusStopped) && t.PnL != nil {
			out = append(out, t)
		}
	}
	return out
}

// WinRate computes wins over all closed trades; 0 when nothing has closed yet
// (never divides by zero).
func WinRate(l *Ledger) float64 {
	closed := closedTrades(l)
	if len(closed) == 0 {
		return 0
	}
	wins := 0
	for _, t := range closed {
		if t.PnL.IsPositive() {
			wins++
		}
	}
	return float64(wins) / float64(len(closed)) * 100
}

// TotalPnL sums realized PnL percentages over closed trades.
func TotalPnL(l *Ledger) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range closedTrades(l) {
		sum = sum.Add(*t.PnL)
	}
	return sum
}

// Recompute refreshes the cached aggregate fields from the trade list.
func Recompute(l *Ledger) {
	l.TotalTrades = len(l.Trades)
	l.WinRate = WinRate(l)
	l.TotalPnL = TotalPnL(l).StringFixed(2)
}

// PerformanceSummary renders a human-readable account of the trading record.
func PerformanceSummary(l *Ledger) string {
	closed := closedTrades(l)
	open := OpenPositions(l)

	var b strings.Builder
	b.WriteString("Trading performance\n")
	fmt.Fprintf(&b, "- total trades: %d (open %d, closed %d)\n", len(l.Trades), len(open), len(closed))
	fmt.Fprintf(&b, "- win rate: %.1f%%\n", WinRate(l))
	fmt.Fprintf(&b, "- total realized P&L: %s%%\n", TotalPnL(l).StringFixed(2))
	if len(closed) > 0 {
		best := closed[0]
		worst := closed[0]
		for _, t := range closed[1:] {
			if t.PnL.GreaterThan(*best.PnL) {
				best = t
			}
			if t.PnL.LessThan(*worst.PnL) {
				worst = t
			}
		}
		fmt.Fprintf(&b, "- best: %s %s%%\n", best.Symbol, best.PnL.StringFixed(2))
		fmt.Fprintf(&b, "- worst: %s %s%%\n", worst.Symbol, worst.PnL.StringFixed(2))
	}
	return strings.TrimRight(b.String(), "\n")
}
