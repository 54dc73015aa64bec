// Package scheduler drives the unattended trading loop: a repeating timer
// that sweeps open positions and scans the market at the interval configured
// in the ledger settings.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"pilot/internal/ledger"
	"pilot/internal/logger"
)

// MinInterval is the floor applied to scan_interval_min to prevent
// sub-minute storms.
const MinInterval = time.Minute

// PositionChecker sweeps open positions for take-profit/stop-loss exits.
type PositionChecker interface {
	CheckOpenPositions(ctx context.Context)
}

// MarketScanner runs one scan and returns its report.
type MarketScanner interface {
	Scan(ctx context.Context) (string, error)
}

// Runner owns the repeating timer. A tick that begins while a previous one
// is still in flight is skipped, not queued; the guard is shared with manual
// scans triggered through skills so the two can never overlap either.
type Runner struct {
	store   *ledger.Store
	checker PositionChecker
	scanner MarketScanner

	running atomic.Bool
	nowFn   func() time.Time
}

func NewRunner(store *ledger.Store, checker PositionChecker, scanner MarketScanner) *Runner {
	return &Runner{
		store:   store,
		checker: checker,
		scanner: scanner,
		nowFn:   time.Now,
	}
}

// Start blocks until ctx is cancelled. The interval is re-read from settings
// before every wait, so an interval change takes effect on the next tick.
func (r *Runner) Start(ctx context.Context) {
	logger.Infof("Scheduler: started interval=%s at=%s", r.interval(), r.nowFn().UTC().Format(time.RFC3339))
	for {
		timer := time.NewTimer(r.interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Infof("Scheduler: ctx done, exit")
			return
		case <-timer.C:
		}
		go r.Tick(ctx)
	}
}

func (r *Runner) interval() time.Duration {
	settings := r.store.Settings()
	d := time.Duration(settings.ScanIntervalMin) * time.Minute
	if d < MinInterval {
		d = MinInterval
	}
	return d
}

// Tick runs one scheduled cycle. The autoTradeEnabled flag is re-read here,
// not cached: a disabled tick makes no external calls at all (the cost
// control gate).
func (r *Runner) Tick(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		logger.Infof("Scheduler: previous scan still in flight, tick skipped")
		return
	}
	defer r.running.Store(false)

	if !r.store.Settings().AutoTradeEnabled {
		logger.Debugf("Scheduler: auto-trade disabled, tick is a no-op")
		return
	}

	start := r.nowFn()
	r.checker.CheckOpenPositions(ctx)
	report, err := r.scanner.Scan(ctx)
	if err != nil {
		logger.Warnf("Scheduler: scan failed: %v", err)
	} else {
		logger.InfoBlock(report)
	}
	logger.Infof("Scheduler: tick done in %s", r.nowFn().Sub(start).Truncate(time.Millisecond))
}

// Busy reports whether a tick or manual scan currently holds the guard.
func (r *Runner) Busy() bool { return r.running.Load() }

// ScanNow runs an on-demand scan under the same overlap guard, regardless of
// the auto-trade flag. Used by the scan skill and the admin API.
func (r *Runner) ScanNow(ctx context.Context) (string, error) {
	if !r.running.CompareAndSwap(false, true) {
		return "", fmt.Errorf("a scan is already in flight, try again in a moment")
	}
	defer r.running.Store(false)
	return r.scanner.Scan(ctx)
}

// ToggleAutoTrade flips the enable flag and persists immediately; the change
// takes effect on the next tick, never retroactively.
func (r *Runner) ToggleAutoTrade(enabled bool) error {
	return r.store.UpdateSettings(func(s *ledger.Settings) {
		s.AutoTradeEnabled = enabled
	})
}
