package skill

import (
	"context"
	"path/filepath"
	"testing"

	"pilot/internal/ledger"
	"pilot/internal/position"
	"pilot/internal/scheduler"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Invoke(ctx context.Context, action string, args map[string]any) (string, error) {
	called := m.Called(ctx, action, args)
	return called.String(0), called.Error(1)
}

type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) LatestPrice(ctx context.Context, sym string) (decimal.Decimal, error) {
	called := m.Called(ctx, sym)
	return called.Get(0).(decimal.Decimal), called.Error(1)
}

type stubScanner struct{ report string }

func (s stubScanner) Scan(context.Context) (string, error) { return s.report, nil }

func newTradingRegistry(t *testing.T) (*Registry, Deps, *MockExecutor, *MockPriceSource) {
	t.Helper()
	store, err := ledger.NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	exec := new(MockExecutor)
	prices := new(MockPriceSource)
	manager := position.NewManager(store, exec, prices, nil)
	runner := scheduler.NewRunner(store, manager, stubScanner{report: "ranked list"})

	deps := Deps{Store: store, Manager: manager, Runner: runner, Prices: prices}
	r := NewRegistry()
	require.NoError(t, RegisterTradingSkills(r, deps))
	return r, deps, exec, prices
}

func invoke(t *testing.T, r *Registry, name string, params map[string]any) (string, error) {
	t.Helper()
	s, ok := r.Get(name)
	require.True(t, ok, "skill %s not registered", name)
	return s.Invoke(context.Background(), params)
}

func TestTradingSkills_Catalog(t *testing.T) {
	r, _, _, _ := newTradingRegistry(t)
	assert.Equal(t, []string{
		"close_position",
		"get_open_positions",
		"get_performance",
		"get_trade_history",
		"open_position",
		"scan_market",
		"toggle_autotrade",
		"update_settings",
	}, r.Names())
}

func TestTradingSkills_ReadOnly(t *testing.T) {
	r, _, _, _ := newTradingRegistry(t)

	out, err := invoke(t, r, "get_open_positions", nil)
	require.NoError(t, err)
	assert.Equal(t, "No open positions.", out)

	out, err = invoke(t, r, "get_trade_history", nil)
	require.NoError(t, err)
	assert.Equal(t, "No trades recorded yet.", out)

	out, err = invoke(t, r, "get_performance", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "win rate: 0.0%")
}

func TestTradingSkills_OpenAndClose(t *testing.T) {
	r, deps, exec, prices := newTradingRegistry(t)
	exec.On("Invoke", mock.Anything, "buy", mock.Anything).Return("ok", nil)
	exec.On("Invoke", mock.Anything, "sell", mock.Anything).Return("ok", nil)
	prices.On("LatestPrice", mock.Anything, "PEPE").Return(decimal.RequireFromString("1.0"), nil).Once()

	out, err := invoke(t, r, "open_position", map[string]any{"symbol": "PEPE", "amount": "25"})
	require.NoError(t, err)
	assert.Contains(t, out, "Opened PEPE")
	assert.Len(t, ledger.OpenPositions(deps.Store.Snapshot()), 1)

	prices.On("LatestPrice", mock.Anything, "PEPE").Return(decimal.RequireFromString("1.5"), nil)
	out, err = invoke(t, r, "close_position", map[string]any{"symbol": "pepe"})
	require.NoError(t, err)
	assert.Contains(t, out, "P&L 50.00%")
	assert.Empty(t, ledger.OpenPositions(deps.Store.Snapshot()))
}

func TestTradingSkills_OpenPosition_Errors(t *testing.T) {
	r, _, _, prices := newTradingRegistry(t)

	t.Run("symbol is required", func(t *testing.T) {
		_, err := invoke(t, r, "open_position", nil)
		assert.ErrorContains(t, err, "invalid arguments")
	})

	t.Run("unknown symbol surfaces a price error", func(t *testing.T) {
		prices.On("LatestPrice", mock.Anything, "NOPE").Return(decimal.Zero, assert.AnError)
		_, err := invoke(t, r, "open_position", map[string]any{"symbol": "NOPE"})
		assert.ErrorContains(t, err, "no market price")
	})
}

func TestTradingSkills_ClosePosition_NoHolding(t *testing.T) {
	r, _, _, _ := newTradingRegistry(t)
	_, err := invoke(t, r, "close_position", map[string]any{"symbol": "PEPE"})
	assert.ErrorContains(t, err, "no open position")
}

func TestTradingSkills_ToggleAndSettings(t *testing.T) {
	r, deps, _, _ := newTradingRegistry(t)

	out, err := invoke(t, r, "toggle_autotrade", map[string]any{"enabled": true})
	require.NoError(t, err)
	assert.Contains(t, out, "Auto-trade is ON")
	assert.True(t, deps.Store.Settings().AutoTradeEnabled)

	out, err = invoke(t, r, "update_settings", map[string]any{
		"stopLossPct":     35,
		"maxBuyAmount":    "250",
		"scanIntervalMin": 15,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "SL 35.0%")

	got := deps.Store.Settings()
	assert.Equal(t, 35.0, got.StopLossPct)
	assert.Equal(t, "250", got.MaxBuyAmount.String())
	assert.Equal(t, 15, got.ScanIntervalMin)
	// untouched fields keep their values
	assert.Equal(t, 50.0, got.TakeProfitPct)
	assert.True(t, got.AutoTradeEnabled)

	out, err = invoke(t, r, "toggle_autotrade", map[string]any{"enabled": false})
	require.NoError(t, err)
	assert.Contains(t, out, "Auto-trade is OFF")
}

func TestTradingSkills_ScanMarket(t *testing.T) {
	r, _, _, _ := newTradingRegistry(t)
	out, err := invoke(t, r, "scan_market", nil)
	require.NoError(t, err)
	assert.Equal(t, "ranked list", out)
}
