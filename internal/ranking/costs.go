package ranking

import (
	"strings"

	"github.com/shopspring/decimal"
)

// slippageSpreadFactor scales a market's spread into a slippage estimate.
// A cheap proxy for order-book depth cost in the absence of live depth data.
var slippageSpreadFactor = decimal.RequireFromString("0.35")

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// CostModel captures the per-leg transaction cost assumptions: taker fees
// per exchange, a fixed inter-venue transfer cost split across both legs,
// and a spread-derived slippage estimate with a floor.
type CostModel struct {
	fees             map[string]decimal.Decimal
	defaultFeePct    decimal.Decimal
	transferPct      decimal.Decimal
	slippageFloorPct decimal.Decimal
}

// NewCostModel builds a cost model from percentage knobs.
func NewCostModel(fees map[string]float64, defaultFeePct, transferPct, slippageFloorPct float64) CostModel {
	table := make(map[string]decimal.Decimal, len(fees))
	for exchange, pct := range fees {
		table[strings.ToLower(exchange)] = decimal.NewFromFloat(pct)
	}
	return CostModel{
		fees:             table,
		defaultFeePct:    decimal.NewFromFloat(defaultFeePct),
		transferPct:      decimal.NewFromFloat(transferPct),
		slippageFloorPct: decimal.NewFromFloat(slippageFloorPct),
	}
}

// FeePct returns the taker fee percent for an exchange.
func (m CostModel) FeePct(exchange string) decimal.Decimal {
	if pct, ok := m.fees[strings.ToLower(exchange)]; ok {
		return pct
	}
	return m.defaultFeePct
}

// SlippagePct estimates slippage from a market's spread:
// max(slippageFloor, |spreadPercent| * 0.35).
func (m CostModel) SlippagePct(spreadPercent decimal.Decimal) decimal.Decimal {
	estimated := spreadPercent.Abs().Mul(slippageSpreadFactor)
	return decimal.Max(m.slippageFloorPct, estimated)
}

// LegCostPct is the total cost percent for one leg of a transfer trade:
// taker fee + slippage + half of the inter-venue transfer cost.
func (m CostModel) LegCostPct(c Candidate) decimal.Decimal {
	return m.FeePct(c.Exchange).
		Add(m.SlippagePct(c.SpreadPercent)).
		Add(m.transferPct.Div(two))
}
