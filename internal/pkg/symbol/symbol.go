// Package symbol normalizes asset identifiers to their uppercase canonical
// form and maps them to exchange-specific spellings.
package symbol

import "strings"

var quoteCurrencies = []string{"USDT", "USDC", "BUSD", "TUSD", "BTC", "ETH", "BNB"}

// Normalize returns the canonical uppercase form of an asset identifier,
// stripping pair separators and quote suffixes ("pepe/usdt" -> "PEPE").
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.Index(s, "/"); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	}
	return s
}

// Binance renders a canonical symbol as a Binance spot pair against USDT.
func Binance(canonical string) string {
	s := Normalize(canonical)
	if s == "" {
		return ""
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s
		}
	}
	return s + "USDT"
}

// NormalizeList normalizes and de-duplicates, preserving order.
func NormalizeList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := Normalize(s)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}
