package market

import (
	"context"

	talib "github.com/markcheno/go-talib"
)

const (
	momentumInterval = "1h"
	momentumLookback = 48
	rocPeriod        = 24
)

// MomentumScore derives a 0..100 momentum reading for a symbol from its
// recent hourly closes: the 24h rate of change mapped onto a bounded scale
// where 50 is flat, 100 is >= +25% and 0 is <= -25%.
//
// The research feed usually reports momentum itself; this is the fallback
// when a candidate arrives without one.
func (s *PriceSource) MomentumScore(ctx context.Context, sym string) (float64, bool) {
	closes, err := s.Closes(ctx, sym, momentumInterval, momentumLookback)
	if err != nil || len(closes) <= rocPeriod {
		return 0, false
	}
	roc := talib.Roc(closes, rocPeriod)
	last := roc[len(roc)-1]
	return clampMomentum(last), true
}

func clampMomentum(rocPct float64) float64 {
	score := 50 + rocPct*2
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}
