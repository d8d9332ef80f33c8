package ranking

import "github.com/shopspring/decimal"

// PairEstimate is the outcome of evaluating one (buy, sell) exchange pair
// under the cost model.
type PairEstimate struct {
	Buy           Candidate
	Sell          Candidate
	GrossPct      decimal.Decimal
	NetProfitPct  decimal.Decimal
	CostsPct      decimal.Decimal
	CrossExchange bool
}

// EvaluatePairs examines every ordered (buy, sell) pairing of an asset's
// candidates with distinct exchanges and equal quote assets, and returns the
// pair with the highest cost-adjusted net profit. Candidates must be in a
// deterministic order (configured exchange order): ties keep the first
// maximal pair.
//
// When no quote-compatible cross-exchange pair exists the estimate degrades
// to a single-venue placeholder that is negative by construction, so it can
// never surface as a guaranteed profit.
func (m CostModel) EvaluatePairs(candidates []Candidate) (PairEstimate, bool) {
	if len(candidates) == 0 {
		return PairEstimate{}, false
	}

	var best PairEstimate
	found := false

	for _, buy := range candidates {
		for _, sell := range candidates {
			if buy.Exchange == sell.Exchange || buy.QuoteAsset != sell.QuoteAsset {
				continue
			}
			estimate := m.evaluatePair(buy, sell)
			if !found || estimate.NetProfitPct.GreaterThan(best.NetProfitPct) {
				best = estimate
				found = true
			}
		}
	}

	if found {
		return best, true
	}
	return m.singleVenueEstimate(candidates), true
}

func (m CostModel) evaluatePair(buy, sell Candidate) PairEstimate {
	buyCostPct := m.LegCostPct(buy)
	sellCostPct := m.LegCostPct(sell)

	effectiveBuy := buy.Ask.Mul(one.Add(buyCostPct.Div(hundred)))
	sellFactor := decimal.Max(decimal.Zero, one.Sub(sellCostPct.Div(hundred)))
	effectiveSell := sell.Bid.Mul(sellFactor)

	gross := sell.Bid.Sub(buy.Ask).Div(buy.Ask).Mul(hundred)
	net := effectiveSell.Sub(effectiveBuy).Div(effectiveBuy).Mul(hundred)

	return PairEstimate{
		Buy:           buy,
		Sell:          sell,
		GrossPct:      gross,
		NetProfitPct:  net,
		CostsPct:      buyCostPct.Add(sellCostPct),
		CrossExchange: true,
	}
}

// singleVenueEstimate is the "not tradable here" placeholder used when
// coverage is below two or no quote asset is shared: full round-trip costs
// plus the spread, negated. Always negative.
func (m CostModel) singleVenueEstimate(candidates []Candidate) PairEstimate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if betterCandidate(c, best) {
			best = c
		}
	}

	fee := m.FeePct(best.Exchange)
	slippage := m.SlippagePct(best.SpreadPercent)
	costs := fee.Mul(two).Add(slippage.Mul(two)).Add(m.transferPct)

	return PairEstimate{
		Buy:           best,
		Sell:          best,
		GrossPct:      best.Bid.Sub(best.Ask).Div(best.Ask).Mul(hundred),
		NetProfitPct:  costs.Add(best.SpreadPercent).Abs().Neg(),
		CostsPct:      costs,
		CrossExchange: false,
	}
}
