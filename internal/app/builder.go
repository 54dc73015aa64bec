package app

import (
	"context"
	"fmt"
	"time"

	"pilot/internal/brain"
	"pilot/internal/config"
	"pilot/internal/executor"
	"pilot/internal/ledger"
	"pilot/internal/logger"
	"pilot/internal/market"
	"pilot/internal/notifier"
	"pilot/internal/position"
	"pilot/internal/scanner"
	"pilot/internal/scheduler"
	"pilot/internal/skill"
	"pilot/internal/store/scanlog"
	adminhttp "pilot/internal/transport/http"
)

// AppBuilder assembles the dependency graph. The Fn hooks exist so tests can
// substitute collaborators without touching real sqlite files or sockets.
type AppBuilder struct {
	cfg *config.Config

	ledgerStoreFn func(string) (*ledger.Store, error)
	scanlogFn     func(string) (*scanlog.Store, error)
	notifierFn    func(config.NotifyConfig) notifier.TextNotifier
	httpServerFn  func(adminhttp.ServerConfig) (*adminhttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		ledgerStoreFn: ledger.NewStore,
		scanlogFn:     scanlog.New,
		notifierFn:    buildNotifier,
		httpServerFn:  adminhttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// WithLedgerStore overrides the ledger store constructor.
func WithLedgerStore(fn func(string) (*ledger.Store, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.ledgerStoreFn = fn }
}

// WithNotifier overrides the outbound notification sink.
func WithNotifier(fn func(config.NotifyConfig) notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) { b.notifierFn = fn }
}

func buildNotifier(cfg config.NotifyConfig) notifier.TextNotifier {
	tg := cfg.Telegram
	if tg.BotToken == "" || tg.ChatID == "" {
		if tg.Enabled {
			logger.Warnf("Notify: telegram enabled but credentials missing, notifications disabled")
		}
		return notifier.Noop{}
	}
	return notifier.NewTelegram(tg.BotToken, tg.ChatID)
}

// Build wires every component and returns an App ready to Run.
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	store, err := b.ledgerStoreFn(cfg.Store.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("ledger store init failed: %w", err)
	}
	// Config seeds risk settings exactly once; afterwards the ledger
	// document is the source of truth.
	if store.Fresh() {
		seed := cfg.InitialSettings()
		if err := store.UpdateSettings(func(s *ledger.Settings) { *s = seed }); err != nil {
			store.Close()
			return nil, fmt.Errorf("seeding fresh ledger settings failed: %w", err)
		}
		logger.Infof("Ledger: fresh document seeded from config (autotrade=%v interval=%dm)", seed.AutoTradeEnabled, seed.ScanIntervalMin)
	}

	scans, err := b.scanlogFn(cfg.Store.ScanLogPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("scan log store init failed: %w", err)
	}

	notify := notifier.NewSwitchable(b.notifierFn(cfg.Notify), cfg.Notify.Telegram.Enabled)

	exec := executor.NewClient(cfg.Executor.BaseURL, time.Duration(cfg.Executor.TimeoutSeconds)*time.Second)
	if !exec.Configured() {
		logger.Warnf("Executor: base URL not configured, trade execution disabled")
	}
	prices := market.NewPriceSource(market.PriceConfig{
		RESTBaseURL: cfg.Market.RESTBaseURL,
		HTTPTimeout: time.Duration(cfg.Market.TimeoutSeconds) * time.Second,
	})
	research := market.NewResearchClient(market.ResearchConfig{
		BaseURL:  cfg.Research.BaseURL,
		Deadline: time.Duration(cfg.Research.DeadlineSeconds) * time.Second,
	})
	if !research.Configured() {
		logger.Warnf("Research: base URL not configured, market scans disabled")
	}

	manager := position.NewManager(store, exec, prices, notify)
	scan := scanner.New(store, research, prices, manager, scans)
	runner := scheduler.NewRunner(store, manager, scan)

	registry := skill.NewRegistry()
	if err := skill.RegisterTradingSkills(registry, skill.Deps{
		Store:   store,
		Manager: manager,
		Runner:  runner,
		Prices:  prices,
	}); err != nil {
		scans.Close()
		store.Close()
		return nil, fmt.Errorf("registering trading skills failed: %w", err)
	}

	var br *brain.Brain
	model := &brain.ChatClient{
		BaseURL: cfg.AI.APIURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	}
	if model.Configured() {
		br = brain.New(model, registry, store)
	} else {
		logger.Warnf("AI: model credentials not configured, chat brain disabled")
	}

	router := adminhttp.NewRouter(store, runner, scans, br, cfg)
	server, err := b.httpServerFn(adminhttp.ServerConfig{Addr: cfg.App.HTTPAddr, Router: router})
	if err != nil {
		scans.Close()
		store.Close()
		return nil, fmt.Errorf("admin http server init failed: %w", err)
	}

	app := &App{
		cfg:     cfg,
		store:   store,
		scans:   scans,
		notify:  notify,
		runner:  runner,
		brain:   br,
		http:    server,
		Summary: buildStartupSummary(cfg, store, exec, research, model, notify),
	}
	return app, nil
}
