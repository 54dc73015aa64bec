package skill

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pilot/internal/ledger"
	"pilot/internal/position"
	"pilot/internal/scheduler"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

// Deps carries the trading primitives the built-in skills are bound to.
type Deps struct {
	Store   *ledger.Store
	Manager *position.Manager
	Runner  *scheduler.Runner
	Prices  position.PriceSource
}

// RegisterTradingSkills installs the built-in trading catalog.
func RegisterTradingSkills(r *Registry, d Deps) error {
	skills := []*Skill{
		openPositionsSkill(d),
		tradeHistorySkill(d),
		performanceSkill(d),
		openPositionSkill(d),
		closePositionSkill(d),
		scanMarketSkill(d),
		toggleAutoTradeSkill(d),
		updateSettingsSkill(d),
	}
	for _, s := range skills {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}

func openPositionsSkill(d Deps) *Skill {
	return &Skill{
		Name:        "get_open_positions",
		Description: "List currently open positions with entry price and unrealized P&L.",
		Execute: func(ctx context.Context, _ map[string]any) (string, error) {
			snap := d.Store.Snapshot()
			open := ledger.OpenPositions(snap)
			if len(open) == 0 {
				return "No open positions.", nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "%d open position(s):\n", len(open))
			for _, t := range open {
				line := fmt.Sprintf("- %s: amount %s, entry %s", t.Symbol, t.Amount, t.Price)
				if price, err := d.Prices.LatestPrice(ctx, t.Symbol); err == nil && !t.Price.IsZero() {
					pct := price.Sub(t.Price).Div(t.Price).Mul(decimal.NewFromInt(100))
					line += fmt.Sprintf(", now %s (%s%%)", price, pct.StringFixed(2))
				}
				b.WriteString(line + "\n")
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

func tradeHistorySkill(d Deps) *Skill {
	return &Skill{
		Name:        "get_trade_history",
		Description: "Show the most recent trades, newest first.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "integer", "minimum": 1, "maximum": 50, "description": "How many trades to show (default 10)."}
			}
		}`),
		Execute: func(_ context.Context, params map[string]any) (string, error) {
			var args struct {
				Limit int `mapstructure:"limit"`
			}
			if err := decodeParams(params, &args); err != nil {
				return "", err
			}
			if args.Limit == 0 {
				args.Limit = ledger.DefaultHistoryLimit
			}
			history := ledger.TradeHistory(d.Store.Snapshot(), args.Limit)
			if len(history) == 0 {
				return "No trades recorded yet.", nil
			}
			var b strings.Builder
			for _, t := range history {
				fmt.Fprintf(&b, "- %s %s %s amount %s price %s [%s]",
					t.Timestamp.Format("2006-01-02 15:04"), t.Action, t.Symbol, t.Amount, t.Price, t.Status)
				if t.PnL != nil {
					fmt.Fprintf(&b, " pnl %s%%", t.PnL.StringFixed(2))
				}
				b.WriteString("\n")
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

func performanceSkill(d Deps) *Skill {
	return &Skill{
		Name:        "get_performance",
		Description: "Summarize win rate and total realized P&L.",
		Execute: func(context.Context, map[string]any) (string, error) {
			return ledger.PerformanceSummary(d.Store.Snapshot()), nil
		},
	}
}

func openPositionSkill(d Deps) *Skill {
	return &Skill{
		Name:        "open_position",
		Description: "Buy a token and open a tracked position. Amount defaults to the configured max buy amount.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"symbol": {"type": "string", "description": "Token symbol, e.g. PEPE."},
				"amount": {"type": ["string", "number"], "description": "Notional amount to buy."},
				"reason": {"type": "string", "description": "Why this position is being opened."}
			},
			"required": ["symbol"]
		}`),
		Execute: func(ctx context.Context, params map[string]any) (string, error) {
			var args struct {
				Symbol string `mapstructure:"symbol"`
				Amount any    `mapstructure:"amount"`
				Reason string `mapstructure:"reason"`
			}
			if err := decodeParams(params, &args); err != nil {
				return "", err
			}
			settings := d.Store.Settings()
			amount := settings.MaxBuyAmount
			if args.Amount != nil {
				parsed, err := decimal.NewFromString(strings.TrimSpace(fmt.Sprintf("%v", args.Amount)))
				if err != nil {
					return "", fmt.Errorf("amount %v is not a number", args.Amount)
				}
				amount = parsed
			}
			price, err := d.Prices.LatestPrice(ctx, args.Symbol)
			if err != nil {
				return "", fmt.Errorf("no market price for %s: %w, check the symbol spelling", args.Symbol, err)
			}
			reason := args.Reason
			if reason == "" {
				reason = "manual buy via chat"
			}
			trade, err := d.Manager.Open(ctx, position.Candidate{
				Symbol: args.Symbol,
				Amount: amount,
				Price:  price,
				Reason: reason,
			})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Opened %s: amount %s at %s.", trade.Symbol, trade.Amount, trade.Price), nil
		},
	}
}

func closePositionSkill(d Deps) *Skill {
	return &Skill{
		Name:        "close_position",
		Description: "Sell an open position at the current market price and realize its P&L.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"symbol": {"type": "string", "description": "Symbol of the open position to close."}
			},
			"required": ["symbol"]
		}`),
		Execute: func(ctx context.Context, params map[string]any) (string, error) {
			var args struct {
				Symbol string `mapstructure:"symbol"`
			}
			if err := decodeParams(params, &args); err != nil {
				return "", err
			}
			snap := d.Store.Snapshot()
			idx := snap.OpenIndex(strings.ToUpper(strings.TrimSpace(args.Symbol)))
			if idx < 0 {
				return "", fmt.Errorf("no open position on %s, use get_open_positions to see holdings", args.Symbol)
			}
			t := snap.Trades[idx]
			price, err := d.Prices.LatestPrice(ctx, t.Symbol)
			if err != nil {
				return "", fmt.Errorf("no market price for %s: %w", t.Symbol, err)
			}
			closed, err := d.Manager.ClosePosition(ctx, t.ID, price, ledger.StatusClosed)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Closed %s at %s, P&L %s%%.", closed.Symbol, price, closed.PnL.StringFixed(2)), nil
		},
	}
}

func scanMarketSkill(d Deps) *Skill {
	return &Skill{
		Name:        "scan_market",
		Description: "Run a market scan now and report ranked candidates. Opens positions only when auto-trade is enabled.",
		Execute: func(ctx context.Context, _ map[string]any) (string, error) {
			return d.Runner.ScanNow(ctx)
		},
	}
}

func toggleAutoTradeSkill(d Deps) *Skill {
	return &Skill{
		Name:        "toggle_autotrade",
		Description: "Enable or disable the autonomous trading loop.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"enabled": {"type": "boolean"}
			},
			"required": ["enabled"]
		}`),
		Execute: func(_ context.Context, params map[string]any) (string, error) {
			var args struct {
				Enabled bool `mapstructure:"enabled"`
			}
			if err := decodeParams(params, &args); err != nil {
				return "", err
			}
			if err := d.Runner.ToggleAutoTrade(args.Enabled); err != nil {
				return "", fmt.Errorf("saving the toggle failed: %w", err)
			}
			if args.Enabled {
				settings := d.Store.Settings()
				return fmt.Sprintf("Auto-trade is ON: scanning every %d min, max %d positions, up to %s per buy.",
					settings.ScanIntervalMin, settings.MaxOpenPositions, settings.MaxBuyAmount), nil
			}
			return "Auto-trade is OFF. Open positions keep being monitored until closed.", nil
		},
	}
}

func updateSettingsSkill(d Deps) *Skill {
	return &Skill{
		Name:        "update_settings",
		Description: "Change trading settings. Only provided fields are changed; the rest keep their values.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"maxMarketCap": {"type": "number", "minimum": 0},
				"maxBuyAmount": {"type": ["string", "number"]},
				"takeProfitPct": {"type": "number", "exclusiveMinimum": 0},
				"stopLossPct": {"type": "number", "exclusiveMinimum": 0},
				"scanIntervalMin": {"type": "integer", "minimum": 1},
				"maxOpenPositions": {"type": "integer", "minimum": 1}
			}
		}`),
		Execute: func(_ context.Context, params map[string]any) (string, error) {
			var args struct {
				MaxMarketCap     *float64 `mapstructure:"maxMarketCap"`
				MaxBuyAmount     any      `mapstructure:"maxBuyAmount"`
				TakeProfitPct    *float64 `mapstructure:"takeProfitPct"`
				StopLossPct      *float64 `mapstructure:"stopLossPct"`
				ScanIntervalMin  *int     `mapstructure:"scanIntervalMin"`
				MaxOpenPositions *int     `mapstructure:"maxOpenPositions"`
			}
			if err := decodeParams(params, &args); err != nil {
				return "", err
			}
			var amount *decimal.Decimal
			if args.MaxBuyAmount != nil {
				parsed, err := decimal.NewFromString(strings.TrimSpace(fmt.Sprintf("%v", args.MaxBuyAmount)))
				if err != nil {
					return "", fmt.Errorf("maxBuyAmount %v is not a number", args.MaxBuyAmount)
				}
				amount = &parsed
			}
			err := d.Store.UpdateSettings(func(s *ledger.Settings) {
				if args.MaxMarketCap != nil {
					s.MaxMarketCap = *args.MaxMarketCap
				}
				if amount != nil {
					s.MaxBuyAmount = *amount
				}
				if args.TakeProfitPct != nil {
					s.TakeProfitPct = *args.TakeProfitPct
				}
				if args.StopLossPct != nil {
					s.StopLossPct = *args.StopLossPct
				}
				if args.ScanIntervalMin != nil {
					s.ScanIntervalMin = *args.ScanIntervalMin
				}
				if args.MaxOpenPositions != nil {
					s.MaxOpenPositions = *args.MaxOpenPositions
				}
			})
			if err != nil {
				return "", fmt.Errorf("saving settings failed: %w", err)
			}
			s := d.Store.Settings()
			return fmt.Sprintf("Settings updated: maxMarketCap $%.0f, maxBuyAmount %s, TP %.1f%%, SL %.1f%%, interval %d min, max positions %d, autoTrade %v.",
				s.MaxMarketCap, s.MaxBuyAmount, s.TakeProfitPct, s.StopLossPct, s.ScanIntervalMin, s.MaxOpenPositions, s.AutoTradeEnabled), nil
		},
	}
}

func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("could not read arguments: %v", err)
	}
	return nil
}
