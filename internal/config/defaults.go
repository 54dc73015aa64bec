package config

import "strings"

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.App.Env) == "" {
		c.App.Env = "dev"
	}
	if strings.TrimSpace(c.App.LogLevel) == "" {
		c.App.LogLevel = "info"
	}
	if strings.TrimSpace(c.App.HTTPAddr) == "" {
		c.App.HTTPAddr = ":9980"
	}
	if strings.TrimSpace(c.Store.LedgerPath) == "" {
		c.Store.LedgerPath = "data/ledger.db"
	}
	if strings.TrimSpace(c.Store.ScanLogPath) == "" {
		c.Store.ScanLogPath = "data/scanlog.db"
	}
	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = 60
	}
	if c.Executor.TimeoutSeconds <= 0 {
		c.Executor.TimeoutSeconds = 30
	}
	if c.Research.DeadlineSeconds <= 0 {
		c.Research.DeadlineSeconds = 120
	}
	if c.Market.TimeoutSeconds <= 0 {
		c.Market.TimeoutSeconds = 10
	}

	t := &c.Trading
	if t.MaxMarketCap <= 0 {
		t.MaxMarketCap = 50_000_000
	}
	if strings.TrimSpace(t.MaxBuyAmount) == "" {
		t.MaxBuyAmount = "100"
	}
	if t.TakeProfitPct <= 0 {
		t.TakeProfitPct = 50
	}
	if t.StopLossPct <= 0 {
		t.StopLossPct = 20
	}
	if t.ScanIntervalMin <= 0 {
		t.ScanIntervalMin = 30
	}
	if t.MaxOpenPositions <= 0 {
		t.MaxOpenPositions = 3
	}
}
