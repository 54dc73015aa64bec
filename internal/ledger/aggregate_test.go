package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func pnl(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func sampleLedger() *Ledger {
	l := NewLedger()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.Trades = []Trade{
		{ID: "t1", Symbol: "PEPE", Action: ActionBuy, Status: StatusClosed, PnL: pnl(42.5), Timestamp: base},
		{ID: "t2", Symbol: "WIF", Action: ActionBuy, Status: StatusStopped, PnL: pnl(-21.0), Timestamp: base.Add(time.Hour)},
		{ID: "t3", Symbol: "BONK", Action: ActionBuy, Status: StatusFailed, Timestamp: base.Add(2 * time.Hour)},
		{ID: "t4", Symbol: "DOGE", Action: ActionBuy, Status: StatusOpen, Timestamp: base.Add(3 * time.Hour)},
	}
	return l
}

func TestWinRate(t *testing.T) {
	t.Run("no closed trades gives zero, not NaN", func(t *testing.T) {
		assert.Equal(t, 0.0, WinRate(NewLedger()))

		l := NewLedger()
		l.Trades = []Trade{{ID: "x", Symbol: "PEPE", Status: StatusOpen}}
		assert.Equal(t, 0.0, WinRate(l))
	})

	t.Run("failed trades are excluded from the denominator", func(t *testing.T) {
		l := sampleLedger()
		// one win out of two terminal trades with pnl
		assert.InDelta(t, 50.0, WinRate(l), 0.001)
	})
}

func TestTotalPnL(t *testing.T) {
	l := sampleLedger()
	assert.Equal(t, "21.5", TotalPnL(l).String())
}

func TestTradeHistory(t *testing.T) {
	l := sampleLedger()

	t.Run("newest first", func(t *testing.T) {
		out := TradeHistory(l, 2)
		assert.Len(t, out, 2)
		assert.Equal(t, "t4", out[0].ID)
		assert.Equal(t, "t3", out[1].ID)
	})

	t.Run("limit larger than history", func(t *testing.T) {
		assert.Len(t, TradeHistory(l, 100), 4)
	})

	t.Run("non-positive limit returns nothing", func(t *testing.T) {
		assert.Empty(t, TradeHistory(l, 0))
		assert.Empty(t, TradeHistory(l, -5))
	})
}

func TestOpenPositions(t *testing.T) {
	l := sampleLedger()
	open := OpenPositions(l)
	assert.Len(t, open, 1)
	assert.Equal(t, "DOGE", open[0].Symbol)
}

func TestRecompute(t *testing.T) {
	l := sampleLedger()
	Recompute(l)
	assert.Equal(t, 4, l.TotalTrades)
	assert.InDelta(t, 50.0, l.WinRate, 0.001)
	assert.Equal(t, "21.50", l.TotalPnL)
}

func TestOpenIndex(t *testing.T) {
	l := sampleLedger()
	assert.GreaterOrEqual(t, l.OpenIndex("DOGE"), 0)
	assert.Equal(t, -1, l.OpenIndex("PEPE")) // closed, not open
	assert.Equal(t, -1, l.OpenIndex("NOPE"))
}

func TestAppendTrade_MonotonicTimestamps(t *testing.T) {
	l := NewLedger()
	later := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.AppendTrade(Trade{ID: "a", Timestamp: later})
	l.AppendTrade(Trade{ID: "b", Timestamp: later.Add(-time.Hour)})
	assert.False(t, l.Trades[1].Timestamp.Before(l.Trades[0].Timestamp))
}

func TestAppendLearning_Cap(t *testing.T) {
	l := NewLedger()
	for i := 0; i < MaxLearnings+25; i++ {
		l.AppendLearning(time.Duration(i).String())
	}
	assert.Len(t, l.Learnings, MaxLearnings)
	// the oldest entries are the ones dropped
	assert.Equal(t, time.Duration(25).String(), l.Learnings[0])
}

func TestClone_Independence(t *testing.T) {
	l := sampleLedger()
	c := l.Clone()
	c.Trades[0].Symbol = "CHANGED"
	*c.Trades[0].PnL = decimal.NewFromInt(999)
	c.Learnings = append(c.Learnings, "note")

	assert.Equal(t, "PEPE", l.Trades[0].Symbol)
	assert.Equal(t, "42.5", l.Trades[0].PnL.String())
	assert.Empty(t, l.Learnings)
}

func TestPerformanceSummary(t *testing.T) {
	s := PerformanceSummary(sampleLedger())
	assert.Contains(t, s, "win rate: 50.0%")
	assert.Contains(t, s, "best: PEPE 42.50%")
	assert.Contains(t, s, "worst: WIF -21.00%")
}
