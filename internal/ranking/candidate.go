package ranking

import (
	"arb-ranker/internal/universe"
)

// quotePriority orders quote assets by desirability for cross-venue
// comparison. Lower is better; unknown quotes rank last.
func quotePriority(quoteAsset string) int {
	switch NormalizeSymbol(quoteAsset) {
	case "USDT":
		return 0
	case "USD":
		return 1
	case "USDC":
		return 2
	case "EUR":
		return 3
	case "BTC":
		return 4
	default:
		return 5
	}
}

// betterTicker reports whether a should be preferred over b when choosing
// the candidate market: ascending quote priority, then tightest absolute
// spread, then highest bid. The order is total for distinct tickers, so the
// selection is deterministic given the snapshot order.
func betterTicker(a, b MarketTicker) bool {
	pa, pb := quotePriority(a.QuoteAsset), quotePriority(b.QuoteAsset)
	if pa != pb {
		return pa < pb
	}
	sa, sb := a.SpreadPercent.Abs(), b.SpreadPercent.Abs()
	if !sa.Equal(sb) {
		return sa.LessThan(sb)
	}
	return a.Bid.GreaterThan(b.Bid)
}

// SelectCandidate picks the single best market for an asset on one exchange.
// The asset's canonical symbol and every alias are looked up in the index;
// the second return is false when the exchange lists no matching market.
func SelectCandidate(asset universe.Asset, exchange string, index SymbolIndex) (Candidate, bool) {
	var best MarketTicker
	found := false

	for _, key := range asset.Keys() {
		for _, ticker := range index[key] {
			if !found || betterTicker(ticker, best) {
				best = ticker
				found = true
			}
		}
	}

	if !found {
		return Candidate{}, false
	}

	return Candidate{
		Exchange:      exchange,
		MarketSymbol:  best.MarketSymbol,
		QuoteAsset:    NormalizeSymbol(best.QuoteAsset),
		Ask:           best.Ask,
		Bid:           best.Bid,
		Last:          best.Last,
		SpreadPercent: best.SpreadPercent,
	}, true
}

// betterCandidate applies the same total order as betterTicker to already
// selected candidates; used to pick the fallback venue when no
// cross-exchange pair exists.
func betterCandidate(a, b Candidate) bool {
	pa, pb := quotePriority(a.QuoteAsset), quotePriority(b.QuoteAsset)
	if pa != pb {
		return pa < pb
	}
	sa, sb := a.SpreadPercent.Abs(), b.SpreadPercent.Abs()
	if !sa.Equal(sb) {
		return sa.LessThan(sb)
	}
	return a.Bid.GreaterThan(b.Bid)
}
