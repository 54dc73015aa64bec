// Package scanner queries the research collaborator for ranked market
// candidates, scores them, and hands buy decisions to the position manager
// when autonomous trading is enabled.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"pilot/internal/ledger"
	"pilot/internal/logger"
	"pilot/internal/market"
	"pilot/internal/pkg/convert"
	"pilot/internal/pkg/jsonutil"
	symbolpkg "pilot/internal/pkg/symbol"
	"pilot/internal/position"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Research is the asynchronous research collaborator surface.
type Research interface {
	Prompt(ctx context.Context, text string) market.Outcome
	Configured() bool
}

// MomentumSource backfills momentum for candidates the feed reports without
// one.
type MomentumSource interface {
	MomentumScore(ctx context.Context, sym string) (float64, bool)
}

// Opener commits buy decisions.
type Opener interface {
	Open(ctx context.Context, cand position.Candidate) (ledger.Trade, error)
}

// Recorder persists scan audit entries; best-effort.
type Recorder interface {
	RecordScan(traceID, report, errText string, candidates []string) error
}

// Candidate is one scored market entry.
type Candidate struct {
	Symbol    string
	Price     decimal.Decimal
	MarketCap float64
	Volume    float64
	Momentum  float64
	Liquidity float64
	Score     float64
}

// Scanner runs one market scan per invocation. Scans are idempotent: even
// when two run back to back, the position manager's duplicate-symbol
// rejection keeps a symbol from being opened twice.
type Scanner struct {
	store    *ledger.Store
	research Research
	momentum MomentumSource
	opener   Opener
	recorder Recorder
}

func New(store *ledger.Store, research Research, momentum MomentumSource, opener Opener, recorder Recorder) *Scanner {
	return &Scanner{
		store:    store,
		research: research,
		momentum: momentum,
		opener:   opener,
		recorder: recorder,
	}
}

// Scan queries the research feed, scores candidates, and (when autonomous
// trading is on) opens positions on everything above the threshold. It
// returns a human-readable report either way.
func (s *Scanner) Scan(ctx context.Context) (string, error) {
	traceID := uuid.NewString()
	settings := s.store.Settings()

	if !s.research.Configured() {
		return "", fmt.Errorf("market scanning is disabled: research API is not configured")
	}

	outcome := s.research.Prompt(ctx, scanPrompt(settings))
	if !outcome.Success {
		err := fmt.Errorf("market scan failed: %s", outcome.Error)
		s.record(traceID, "", err.Error(), nil)
		return "", err
	}

	candidates := s.parseCandidates(ctx, outcome.Response, settings)
	if len(candidates) == 0 {
		report := "Scan complete: no candidates under the current market-cap filter."
		s.record(traceID, report, "", nil)
		return report, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })

	var selected []Candidate
	for _, c := range candidates {
		if c.Score >= ScoreThreshold {
			selected = append(selected, c)
		}
	}

	report := s.act(ctx, traceID, settings, candidates, selected)
	return report, nil
}

func scanPrompt(settings ledger.Settings) string {
	return fmt.Sprintf(
		"List the top trending tokens with market cap under $%.0f. "+
			"Respond with a JSON array of objects with fields: symbol, price, "+
			"marketCap, volume24h, momentum (0-100), liquidity.",
		settings.MaxMarketCap)
}

// parseCandidates tolerates prose around the JSON payload and missing
// fields; entries without a usable symbol or price are dropped, and missing
// momentum readings are backfilled from exchange candles.
func (s *Scanner) parseCandidates(ctx context.Context, response string, settings ledger.Settings) []Candidate {
	payload, ok := jsonutil.ExtractJSON(response)
	if !ok {
		logger.Warnf("Scanner: research response carries no JSON payload")
		return nil
	}
	parsed := gjson.Parse(payload)
	if !parsed.IsArray() {
		if inner := parsed.Get("candidates"); inner.IsArray() {
			parsed = inner
		} else {
			return nil
		}
	}

	var out []Candidate
	parsed.ForEach(func(_, item gjson.Result) bool {
		sym := symbolpkg.Normalize(firstString(item, "symbol", "ticker", "token"))
		if sym == "" {
			return true
		}
		price, err := decimal.NewFromString(strings.TrimSpace(firstString(item, "price", "priceUsd", "price_usd")))
		if err != nil || price.LessThanOrEqual(decimal.Zero) {
			return true
		}
		c := Candidate{
			Symbol:    sym,
			Price:     price,
			MarketCap: firstFloat(item, "marketCap", "market_cap", "mcap"),
			Volume:    firstFloat(item, "volume24h", "volume_24h", "volume"),
			Momentum:  firstFloat(item, "momentum", "momentumScore"),
			Liquidity: firstFloat(item, "liquidity", "liquidityScore"),
		}
		if settings.MaxMarketCap > 0 && c.MarketCap > settings.MaxMarketCap {
			return true
		}
		if c.Momentum <= 0 && s.momentum != nil {
			if m, ok := s.momentum.MomentumScore(ctx, sym); ok {
				c.Momentum = m
			}
		}
		c.Score = score(c.Volume, c.Momentum, c.Liquidity)
		out = append(out, c)
		return true
	})
	return out
}

// act either opens positions (auto-trade on) or just renders the ranking.
func (s *Scanner) act(ctx context.Context, traceID string, settings ledger.Settings, all, selected []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Market scan: %d candidates, %d above threshold %.0f\n", len(all), len(selected), ScoreThreshold)
	for i, c := range all {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "%2d. %-8s score %5.1f  price %s  mcap $%.0f\n", i+1, c.Symbol, c.Score, c.Price, c.MarketCap)
	}

	symbols := make([]string, 0, len(selected))
	for _, c := range selected {
		symbols = append(symbols, c.Symbol)
	}

	if !settings.AutoTradeEnabled {
		if len(selected) > 0 {
			fmt.Fprintf(&b, "Auto-trade is off; no positions opened. Candidates: %s\n", strings.Join(symbols, ", "))
		}
		report := strings.TrimRight(b.String(), "\n")
		s.record(traceID, report, "", symbols)
		return report
	}

	opened, skipped := 0, 0
	for _, c := range selected {
		cand := position.Candidate{
			Symbol: c.Symbol,
			Amount: settings.MaxBuyAmount,
			Price:  c.Price,
			Reason: fmt.Sprintf("autoscan score %.1f (volume %.0f, momentum %.0f, liquidity %.0f)", c.Score, c.Volume, c.Momentum, c.Liquidity),
		}
		if _, err := s.opener.Open(ctx, cand); err != nil {
			skipped++
			logger.Infof("Scanner: skipped %s: %v", c.Symbol, err)
			fmt.Fprintf(&b, "skipped %s: %v\n", c.Symbol, err)
			continue
		}
		opened++
		fmt.Fprintf(&b, "opened %s at %s (score %.1f)\n", c.Symbol, c.Price, c.Score)
	}
	fmt.Fprintf(&b, "Auto-trade: opened %d, skipped %d\n", opened, skipped)

	report := strings.TrimRight(b.String(), "\n")
	s.record(traceID, report, "", symbols)
	return report
}

func (s *Scanner) record(traceID, report, errText string, candidates []string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordScan(traceID, report, errText, candidates); err != nil {
		logger.Warnf("Scanner: scan log write failed: %v", err)
	}
}

func firstString(item gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := item.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func firstFloat(item gjson.Result, keys ...string) float64 {
	for _, key := range keys {
		if v := item.Get(key); v.Exists() {
			return convert.ToFloat64(v.Value())
		}
	}
	return 0
}
