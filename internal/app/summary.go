package app

import (
	"fmt"
	"strings"

	"pilot/internal/brain"
	"pilot/internal/config"
	"pilot/internal/executor"
	"pilot/internal/ledger"
	"pilot/internal/logger"
	"pilot/internal/market"
	"pilot/internal/notifier"
)

// StartupSummary is the human-readable boot report: which collaborators are
// live, which features degraded to disabled, and the risk settings in force.
type StartupSummary struct {
	Env        string
	HTTPAddr   string
	LedgerPath string
	Settings   ledger.Settings
	OpenCount  int
	TotalCount int

	ExecutorReady bool
	ResearchReady bool
	BrainReady    bool
	NotifyReady   bool
}

func buildStartupSummary(cfg *config.Config, store *ledger.Store, exec *executor.Client, research *market.ResearchClient, model *brain.ChatClient, notify *notifier.Switchable) *StartupSummary {
	snap := store.Snapshot()
	return &StartupSummary{
		Env:           cfg.App.Env,
		HTTPAddr:      cfg.App.HTTPAddr,
		LedgerPath:    cfg.Store.LedgerPath,
		Settings:      snap.Settings,
		OpenCount:     len(ledger.OpenPositions(snap)),
		TotalCount:    snap.TotalTrades,
		ExecutorReady: exec.Configured(),
		ResearchReady: research.Configured(),
		BrainReady:    model.Configured(),
		NotifyReady:   notify.Enabled(),
	}
}

// Print logs the summary block through the structured logger so it lands in
// the same sinks as everything else.
func (s *StartupSummary) Print() {
	if s == nil {
		return
	}
	onOff := func(ready bool) string {
		if ready {
			return "ready"
		}
		return "disabled"
	}
	lines := []string{
		strings.Repeat("=", 60),
		"STARTUP SUMMARY",
		strings.Repeat("=", 60),
		fmt.Sprintf("env=%s http=%s ledger=%s", s.Env, s.HTTPAddr, s.LedgerPath),
		fmt.Sprintf("trades: %d total, %d open", s.TotalCount, s.OpenCount),
		fmt.Sprintf("autotrade=%v interval=%dm maxPositions=%d", s.Settings.AutoTradeEnabled, s.Settings.ScanIntervalMin, s.Settings.MaxOpenPositions),
		fmt.Sprintf("risk: maxBuy=%s takeProfit=%.1f%% stopLoss=%.1f%% maxMarketCap=%.0f", s.Settings.MaxBuyAmount, s.Settings.TakeProfitPct, s.Settings.StopLossPct, s.Settings.MaxMarketCap),
		fmt.Sprintf("executor=%s research=%s brain=%s telegram=%s", onOff(s.ExecutorReady), onOff(s.ResearchReady), onOff(s.BrainReady), onOff(s.NotifyReady)),
		strings.Repeat("=", 60),
	}
	logger.InfoBlock(strings.Join(lines, "\n"))
}
