package app

import (
	"context"
	"fmt"

	"pilot/internal/brain"
	"pilot/internal/config"
	"pilot/internal/ledger"
	"pilot/internal/logger"
	"pilot/internal/notifier"
	"pilot/internal/scheduler"
	"pilot/internal/store/scanlog"
	adminhttp "pilot/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

// App owns process-level orchestration: build the dependency graph, start
// the scheduler and the admin HTTP server, shut both down on ctx cancel.
type App struct {
	cfg    *config.Config
	store  *ledger.Store
	scans  *scanlog.Store
	notify *notifier.Switchable
	runner *scheduler.Runner
	brain  *brain.Brain
	http   *adminhttp.Server

	Summary *StartupSummary
}

// NewApp builds the application from config without starting anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run starts the scheduler loop and the admin server and blocks until ctx
// is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()

	if a.Summary != nil {
		a.Summary.Print()
	}
	if err := a.startConfigWatch(ctx); err != nil {
		logger.Warnf("Config: hot reload unavailable: %v", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("admin http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		a.runner.Start(ctx)
		return nil
	})
	return group.Wait()
}

// startConfigWatch applies the hot-reloadable knobs on file change: log
// level, model payload dump, and the notification toggle.
func (a *App) startConfigWatch(ctx context.Context) error {
	path := a.cfg.Path
	if path == "" {
		return fmt.Errorf("config path unknown")
	}
	return config.Watch(ctx, path, func(next *config.Config) {
		logger.SetLevel(next.App.LogLevel)
		logger.EnableModelPayloadDump(next.App.ModelDump)
		a.notify.SetEnabled(next.Notify.Telegram.Enabled)
	})
}

func (a *App) close() {
	if a.brain != nil {
		a.brain.Wait()
	}
	if a.scans != nil {
		if err := a.scans.Close(); err != nil {
			logger.Warnf("Scan log store close failed: %v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warnf("Ledger store close failed: %v", err)
		}
	}
}

// Brain exposes the chat brain for replay harnesses; nil when the model
// client is unconfigured.
func (a *App) Brain() *brain.Brain {
	if a == nil {
		return nil
	}
	return a.brain
}

// Runner exposes the scheduler for harnesses.
func (a *App) Runner() *scheduler.Runner {
	if a == nil {
		return nil
	}
	return a.runner
}
