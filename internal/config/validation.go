package config

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pilot/internal/ledger"
)

func validate(c *Config) error {
	if _, err := decimal.NewFromString(c.Trading.MaxBuyAmount); err != nil {
		return fmt.Errorf("trading.max_buy_amount %q is not a decimal number", c.Trading.MaxBuyAmount)
	}
	if c.Trading.StopLossPct >= 100 {
		return fmt.Errorf("trading.stop_loss_pct must be below 100")
	}
	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram is enabled but bot_token/chat_id are missing")
		}
	}
	return nil
}

// InitialSettings converts the trading block into ledger settings; used only
// to seed a brand-new ledger document.
func (c *Config) InitialSettings() ledger.Settings {
	amount, err := decimal.NewFromString(c.Trading.MaxBuyAmount)
	if err != nil {
		amount = ledger.DefaultSettings().MaxBuyAmount
	}
	return ledger.Settings{
		MaxMarketCap:     c.Trading.MaxMarketCap,
		MaxBuyAmount:     amount,
		TakeProfitPct:    c.Trading.TakeProfitPct,
		StopLossPct:      c.Trading.StopLossPct,
		ScanIntervalMin:  c.Trading.ScanIntervalMin,
		MaxOpenPositions: c.Trading.MaxOpenPositions,
		AutoTradeEnabled: c.Trading.AutoTradeEnabled,
	}
}
