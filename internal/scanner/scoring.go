package scanner

import "math"

// Scoring weights are fixed configuration, not user-tunable.
const (
	weightVolume    = 0.40
	weightMomentum  = 0.35
	weightLiquidity = 0.25

	// ScoreThreshold is the documented default cut line for buy candidates.
	ScoreThreshold = 60.0
)

// score combines the three factor readings into a 0..100 composite.
func score(volume, momentum, liquidity float64) float64 {
	s := weightVolume*factorScore(volume) +
		weightMomentum*factorScore(momentum) +
		weightLiquidity*factorScore(liquidity)
	return math.Round(s*10) / 10
}

// factorScore accepts either a pre-scaled 0..100 reading or a raw USD value.
// Raw values are mapped onto a log scale where $1k scores 0 and $1B scores
// 100, so feeds that report notional volume/liquidity still rank sensibly.
func factorScore(v float64) float64 {
	if v <= 0 {
		return 0
	}
	if v <= 100 {
		return v
	}
	s := (math.Log10(v) - 3) * (100.0 / 6.0)
	return clamp(s)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
