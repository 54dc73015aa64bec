package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"pepe", "PEPE"},
		{"  WIF  ", "WIF"},
		{"pepe/usdt", "PEPE"},
		{"PEPE/USDT:USDT", "PEPE"},
		{"sol:perp", "SOL"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "input %q", tc.in)
	}
}

func TestBinance(t *testing.T) {
	assert.Equal(t, "PEPEUSDT", Binance("pepe"))
	assert.Equal(t, "PEPEUSDT", Binance("pepe/usdt"))
	// Already a quoted pair, leave it alone.
	assert.Equal(t, "SOLUSDT", Binance("SOLUSDT"))
	assert.Equal(t, "ETHBTC", Binance("ETHBTC"))
	// A bare quote currency is an asset, not a pair suffix.
	assert.Equal(t, "BTCUSDT", Binance("btc"))
	assert.Equal(t, "", Binance("  "))
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{"pepe", "PEPE/USDT", " wif ", "", "wif"})
	assert.Equal(t, []string{"PEPE", "WIF"}, got)
	assert.Nil(t, NormalizeList(nil))
}
