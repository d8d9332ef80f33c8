package ranking

import "strings"

// SymbolIndex maps a normalized base-asset symbol to the tickers listing it.
// An exchange may list the same base asset against several quote assets.
type SymbolIndex map[string][]MarketTicker

// BuildIndex groups one exchange's tickers by normalized base asset.
func BuildIndex(tickers []MarketTicker) SymbolIndex {
	index := make(SymbolIndex, len(tickers))
	for _, ticker := range tickers {
		key := NormalizeSymbol(ticker.BaseAsset)
		if key == "" {
			continue
		}
		index[key] = append(index[key], ticker)
	}
	return index
}

// NormalizeSymbol uppercases and trims a base-asset symbol for lookups.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
