package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"pilot/internal/ledger"
	"pilot/internal/market"
	"pilot/internal/position"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockResearch struct {
	mock.Mock
}

func (m *MockResearch) Prompt(ctx context.Context, text string) market.Outcome {
	called := m.Called(ctx, text)
	return called.Get(0).(market.Outcome)
}

func (m *MockResearch) Configured() bool { return true }

type unconfiguredResearch struct{}

func (unconfiguredResearch) Prompt(context.Context, string) market.Outcome { return market.Outcome{} }
func (unconfiguredResearch) Configured() bool                              { return false }

type MockOpener struct {
	mock.Mock
}

func (m *MockOpener) Open(ctx context.Context, cand position.Candidate) (ledger.Trade, error) {
	called := m.Called(ctx, cand)
	return called.Get(0).(ledger.Trade), called.Error(1)
}

type stubMomentum struct {
	score float64
	ok    bool
}

func (s stubMomentum) MomentumScore(context.Context, string) (float64, bool) { return s.score, s.ok }

type memRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *memRecorder) RecordScan(traceID, report, errText string, candidates []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, report+errText)
	return nil
}

func newTestStore(t *testing.T) *ledger.Store {
	t.Helper()
	s, err := ledger.NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

const feedJSON = `Here are the tokens:
[
  {"symbol": "PEPE", "price": "0.001", "marketCap": 40000000, "volume24h": 90, "momentum": 85, "liquidity": 80},
  {"symbol": "WIF",  "price": "2.5",   "marketCap": 30000000, "volume24h": 20, "momentum": 10, "liquidity": 15},
  {"symbol": "HUGE", "price": "1.0",   "marketCap": 900000000, "volume24h": 99, "momentum": 99, "liquidity": 99}
]`

func TestScanner_Scan(t *testing.T) {
	t.Run("unconfigured research disables scanning", func(t *testing.T) {
		s := New(newTestStore(t), unconfiguredResearch{}, nil, new(MockOpener), nil)
		_, err := s.Scan(context.Background())
		assert.ErrorContains(t, err, "not configured")
	})

	t.Run("research failure is an error outcome", func(t *testing.T) {
		research := new(MockResearch)
		research.On("Prompt", mock.Anything, mock.Anything).Return(market.Outcome{Error: "upstream down"})
		rec := &memRecorder{}
		s := New(newTestStore(t), research, nil, new(MockOpener), rec)

		_, err := s.Scan(context.Background())
		assert.ErrorContains(t, err, "upstream down")
		assert.Len(t, rec.entries, 1)
	})

	t.Run("market cap filter drops oversized candidates", func(t *testing.T) {
		research := new(MockResearch)
		research.On("Prompt", mock.Anything, mock.Anything).Return(market.Outcome{Success: true, Response: feedJSON})
		s := New(newTestStore(t), research, nil, new(MockOpener), nil)

		report, err := s.Scan(context.Background())
		require.NoError(t, err)
		assert.NotContains(t, report, "HUGE")
		assert.Contains(t, report, "PEPE")
	})

	t.Run("autotrade off returns ranking without opening", func(t *testing.T) {
		store := newTestStore(t)
		research := new(MockResearch)
		research.On("Prompt", mock.Anything, mock.Anything).Return(market.Outcome{Success: true, Response: feedJSON})
		opener := new(MockOpener) // no expectations: Open must not be called
		s := New(store, research, nil, opener, nil)

		report, err := s.Scan(context.Background())
		require.NoError(t, err)
		assert.Contains(t, report, "Auto-trade is off")
		opener.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
	})

	t.Run("autotrade on opens selected candidates only", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.UpdateSettings(func(set *ledger.Settings) {
			set.AutoTradeEnabled = true
		}))
		research := new(MockResearch)
		research.On("Prompt", mock.Anything, mock.Anything).Return(market.Outcome{Success: true, Response: feedJSON})
		opener := new(MockOpener)
		opener.On("Open", mock.Anything, mock.MatchedBy(func(c position.Candidate) bool {
			return c.Symbol == "PEPE"
		})).Return(ledger.Trade{Symbol: "PEPE"}, nil).Once()
		s := New(store, research, nil, opener, nil)

		report, err := s.Scan(context.Background())
		require.NoError(t, err)
		assert.Contains(t, report, "opened PEPE")
		// WIF scores below threshold, HUGE is filtered out
		opener.AssertExpectations(t)
	})

	t.Run("open rejection is reported, not fatal", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.UpdateSettings(func(set *ledger.Settings) {
			set.AutoTradeEnabled = true
		}))
		research := new(MockResearch)
		research.On("Prompt", mock.Anything, mock.Anything).Return(market.Outcome{Success: true, Response: feedJSON})
		opener := new(MockOpener)
		opener.On("Open", mock.Anything, mock.Anything).Return(ledger.Trade{}, fmt.Errorf("already holding an open position on PEPE"))
		s := New(store, research, nil, opener, nil)

		report, err := s.Scan(context.Background())
		require.NoError(t, err)
		assert.Contains(t, report, "skipped PEPE")
	})

	t.Run("momentum backfill kicks in when the feed omits it", func(t *testing.T) {
		feed := `[{"symbol": "LOW", "price": "1.0", "marketCap": 1000000, "volume24h": 90, "liquidity": 90}]`
		research := new(MockResearch)
		research.On("Prompt", mock.Anything, mock.Anything).Return(market.Outcome{Success: true, Response: feed})
		s := New(newTestStore(t), research, stubMomentum{score: 75, ok: true}, new(MockOpener), nil)

		report, err := s.Scan(context.Background())
		require.NoError(t, err)
		// volume 90*0.40 + momentum 75*0.35 + liquidity 90*0.25 = 84.75
		assert.Contains(t, report, "84.8")
	})

	t.Run("no parsable candidates", func(t *testing.T) {
		research := new(MockResearch)
		research.On("Prompt", mock.Anything, mock.Anything).Return(market.Outcome{Success: true, Response: "nothing to see here"})
		s := New(newTestStore(t), research, nil, new(MockOpener), nil)

		report, err := s.Scan(context.Background())
		require.NoError(t, err)
		assert.Contains(t, report, "no candidates")
	})
}

func TestScore(t *testing.T) {
	t.Run("pre-scaled readings pass through the weights", func(t *testing.T) {
		assert.InDelta(t, 100.0, score(100, 100, 100), 0.001)
		assert.InDelta(t, 0.0, score(0, 0, 0), 0.001)
		assert.InDelta(t, 40.0, score(100, 0, 0), 0.001)
	})

	t.Run("raw USD values map onto the log scale", func(t *testing.T) {
		assert.InDelta(t, 0.0, factorScore(1_000), 0.1)
		assert.InDelta(t, 50.0, factorScore(1_000_000), 0.1)
		assert.InDelta(t, 100.0, factorScore(1_000_000_000), 0.1)
	})

	t.Run("negative and zero readings score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, factorScore(0))
		assert.Equal(t, 0.0, factorScore(-5))
	})
}
