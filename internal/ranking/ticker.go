package ranking

import "github.com/shopspring/decimal"

// MarketTicker is one market row from an exchange snapshot. Tickers live for
// a single ranking cycle; prices are already validated positive by the
// fetcher's decode step.
type MarketTicker struct {
	MarketSymbol  string
	BaseAsset     string
	QuoteAsset    string
	Last          decimal.Decimal
	Ask           decimal.Decimal
	Bid           decimal.Decimal
	SpreadPercent decimal.Decimal
}

// Candidate is the single market chosen for an (asset, exchange) pair.
type Candidate struct {
	Exchange      string
	MarketSymbol  string
	QuoteAsset    string
	Ask           decimal.Decimal
	Bid           decimal.Decimal
	Last          decimal.Decimal
	SpreadPercent decimal.Decimal
}
