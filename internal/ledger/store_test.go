package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestStore_FreshDocument(t *testing.T) {
	s, _ := newTestStore(t)
	assert.True(t, s.Fresh())

	snap := s.Snapshot()
	assert.Empty(t, snap.Trades)
	assert.Equal(t, DefaultSettings(), snap.Settings)
}

func TestStore_RoundTrip(t *testing.T) {
	s, path := newTestStore(t)

	loss := decimal.NewFromFloat(-12.34)
	err := s.Mutate(func(l *Ledger) error {
		l.AppendTrade(Trade{
			ID:        "t1",
			Symbol:    "PEPE",
			Action:    ActionBuy,
			Amount:    decimal.NewFromInt(100),
			Price:     decimal.RequireFromString("0.0000012"),
			Status:    StatusStopped,
			PnL:       &loss,
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		})
		l.AppendLearning("prefers meme coins")
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.False(t, reopened.Fresh())
	assert.Equal(t, s.Snapshot(), reopened.Snapshot())

	snap := reopened.Snapshot()
	require.Len(t, snap.Trades, 1)
	assert.Equal(t, "0.0000012", snap.Trades[0].Price.String())
	assert.Equal(t, "-12.34", snap.Trades[0].PnL.String())
	assert.Equal(t, []string{"prefers meme coins"}, snap.Learnings)
}

func TestStore_CorruptDocumentIsNotFresh(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.Mutate(func(l *Ledger) error {
		l.AppendTrade(Trade{ID: "t1", Symbol: "PEPE", Status: StatusOpen})
		return nil
	}))
	require.NoError(t, s.db.Exec("UPDATE ledger_documents SET doc = 'not json' WHERE id = 1").Error)
	require.NoError(t, s.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	// The blob is unreadable so the store runs on defaults, but it must not
	// look fresh, or the settings seed would save over the stored row.
	assert.False(t, reopened.Fresh())
	assert.Empty(t, reopened.Snapshot().Trades)
}

func TestStore_LoadErrorIsNotFresh(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.db.Exec("DROP TABLE ledger_documents").Error)

	broken := &Store{db: s.db}
	broken.cur = broken.load()

	assert.False(t, broken.Fresh())
	assert.Equal(t, DefaultSettings(), broken.cur.Settings)
}

func TestStore_MutateRecomputesAggregates(t *testing.T) {
	s, _ := newTestStore(t)

	win := decimal.NewFromInt(80)
	require.NoError(t, s.Mutate(func(l *Ledger) error {
		l.AppendTrade(Trade{ID: "t1", Symbol: "WIF", Status: StatusClosed, PnL: &win})
		return nil
	}))

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.TotalTrades)
	assert.InDelta(t, 100.0, snap.WinRate, 0.001)
	assert.Equal(t, "80.00", snap.TotalPnL)
}

func TestStore_MutateErrorPersistsNothing(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Mutate(func(l *Ledger) error {
		return assert.AnError
	})
	assert.Error(t, err)
	assert.Empty(t, s.Snapshot().Trades)
}

func TestStore_UpdateSettings(t *testing.T) {
	s, path := newTestStore(t)

	require.NoError(t, s.UpdateSettings(func(set *Settings) {
		set.AutoTradeEnabled = true
		set.ScanIntervalMin = 5
	}))
	require.NoError(t, s.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got := reopened.Settings()
	assert.True(t, got.AutoTradeEnabled)
	assert.Equal(t, 5, got.ScanIntervalMin)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Mutate(func(l *Ledger) error {
		l.AppendTrade(Trade{ID: "t1", Symbol: "DOGE", Status: StatusOpen})
		return nil
	}))

	snap := s.Snapshot()
	snap.Trades[0].Symbol = "MUTATED"
	assert.Equal(t, "DOGE", s.Snapshot().Trades[0].Symbol)
}
