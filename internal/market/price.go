// Package market provides the two external data surfaces the core consumes:
// a live price source backed by the Binance spot API and the asynchronous
// research collaborator used by the scanner.
package market

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	symbolpkg "pilot/internal/pkg/symbol"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

const maxKlineLimit = 1000

// PriceSource fetches current prices and candle history from Binance spot.
type PriceSource struct {
	client *binance.Client
}

// PriceConfig configures the REST endpoint and timeout.
type PriceConfig struct {
	RESTBaseURL string
	HTTPTimeout time.Duration
}

// NewPriceSource needs no API keys; only public market-data endpoints are
// used.
func NewPriceSource(cfg PriceConfig) *PriceSource {
	client := binance.NewClient("", "")
	if base := strings.TrimSpace(cfg.RESTBaseURL); base != "" {
		client.BaseURL = base
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}
	return &PriceSource{client: client}
}

// LatestPrice returns the last traded price for a canonical symbol.
func (s *PriceSource) LatestPrice(ctx context.Context, sym string) (decimal.Decimal, error) {
	pair := symbolpkg.Binance(sym)
	if pair == "" {
		return decimal.Zero, fmt.Errorf("market: invalid symbol %q", sym)
	}
	prices, err := s.client.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("market: price %s: %w", pair, err)
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("market: no price for %s", pair)
	}
	p, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("market: parse price %q: %w", prices[0].Price, err)
	}
	return p, nil
}

// Closes fetches up to limit closing prices for the given interval, oldest
// first. Binance may return the in-progress candle last; callers that care
// should request one extra and drop it.
func (s *PriceSource) Closes(ctx context.Context, sym, interval string, limit int) ([]float64, error) {
	pair := symbolpkg.Binance(sym)
	if pair == "" {
		return nil, fmt.Errorf("market: invalid symbol %q", sym)
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	kls, err := s.client.NewKlinesService().Symbol(pair).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("market: klines %s: %w", pair, err)
	}
	out := make([]float64, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		d, err := decimal.NewFromString(kl.Close)
		if err != nil {
			continue
		}
		f, _ := d.Float64()
		out = append(out, f)
	}
	return out, nil
}
