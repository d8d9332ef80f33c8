package ranking

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"arb-ranker/internal/universe"
)

// Score weights: coverage rewards breadth, average spread penalises thin
// markets.
var (
	scoreCoverageWeight = decimal.RequireFromString("0.35")
	scoreSpreadWeight   = decimal.RequireFromString("0.35")
)

// unavailableSentinel marks assets without a single valid candidate.
var unavailableSentinel = decimal.NewFromInt(-999)

// displayPlaces bounds the precision of reported percentages so identical
// snapshots serialise to identical payloads.
const displayPlaces = 8

// RankedAsset is the per-asset ranking outcome. Instances are built fresh
// every cycle and never mutated afterwards.
type RankedAsset struct {
	ID                      string          `json:"id"`
	Rank                    int             `json:"rank"`
	Name                    string          `json:"name"`
	Symbol                  string          `json:"symbol"`
	QuoteAsset              string          `json:"quoteAsset,omitempty"`
	MarketSymbol            string          `json:"marketSymbol,omitempty"`
	BuyExchange             string          `json:"buyExchange,omitempty"`
	SellExchange            string          `json:"sellExchange,omitempty"`
	LatestPrice             decimal.Decimal `json:"latestPrice"`
	GrossArbitragePercent   decimal.Decimal `json:"grossArbitragePercent"`
	NetProfitPercent        decimal.Decimal `json:"netProfitPercent"`
	GuaranteedProfitPercent decimal.Decimal `json:"guaranteedProfitPercent"`
	GuaranteedProfit        bool            `json:"guaranteedProfit"`
	EstimatedCostsPercent   decimal.Decimal `json:"estimatedCostsPercent"`
	AverageSpreadPercent    decimal.Decimal `json:"averageSpreadPercent"`
	Score                   decimal.Decimal `json:"score"`
	Coverage                int             `json:"coverage"`
	Reason                  string          `json:"reason,omitempty"`
	Available               bool            `json:"available"`
}

// Result is the ranked universe for one cycle; the payload held by the
// result cache and served by the API.
type Result struct {
	GeneratedAt time.Time     `json:"generatedAt"`
	Total       int           `json:"total"`
	Assets      []RankedAsset `json:"assets"`
}

// Engine turns per-exchange snapshots into a ranked asset universe. All of
// its work is pure and synchronous; given identical snapshots it produces an
// identical assets slice.
type Engine struct {
	assets          []universe.Asset
	exchanges       []string
	costs           CostModel
	safetyBufferPct decimal.Decimal
	minCoverage     int
	logger          zerolog.Logger
}

// NewEngine constructs a ranking engine over a fixed universe and exchange
// list. The exchange order fixes candidate ordering and therefore tie-break
// determinism.
func NewEngine(assets []universe.Asset, exchanges []string, costs CostModel, safetyBufferPct float64, minCoverage int, logger zerolog.Logger) *Engine {
	return &Engine{
		assets:          assets,
		exchanges:       exchanges,
		costs:           costs,
		safetyBufferPct: decimal.NewFromFloat(safetyBufferPct),
		minCoverage:     minCoverage,
		logger:          logger.With().Str("component", "ranking_engine").Logger(),
	}
}

// Rank evaluates the whole universe against the given snapshots. Exchanges
// missing from the map contribute no candidates.
func (e *Engine) Rank(snapshots map[string][]MarketTicker, generatedAt time.Time) *Result {
	indexes := make(map[string]SymbolIndex, len(snapshots))
	for _, exchange := range e.exchanges {
		if tickers, ok := snapshots[exchange]; ok {
			indexes[exchange] = BuildIndex(tickers)
		}
	}

	ranked := make([]RankedAsset, 0, len(e.assets))
	for _, asset := range e.assets {
		ranked = append(ranked, e.rankAsset(asset, indexes))
	}

	// Unavailable assets sink to the bottom; available ones sort by
	// descending score. The stable sort keeps universe order for ties.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Available != ranked[j].Available {
			return ranked[i].Available
		}
		return ranked[i].Score.GreaterThan(ranked[j].Score)
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return &Result{
		GeneratedAt: generatedAt,
		Total:       len(ranked),
		Assets:      ranked,
	}
}

func (e *Engine) rankAsset(asset universe.Asset, indexes map[string]SymbolIndex) RankedAsset {
	candidates := make([]Candidate, 0, len(e.exchanges))
	for _, exchange := range e.exchanges {
		index, ok := indexes[exchange]
		if !ok {
			continue
		}
		if candidate, ok := SelectCandidate(asset, exchange, index); ok {
			candidates = append(candidates, candidate)
		}
	}

	base := RankedAsset{
		ID:       strings.ToLower(asset.Symbol),
		Name:     asset.Name,
		Symbol:   asset.Symbol,
		Coverage: len(candidates),
	}

	if len(candidates) == 0 {
		base.Available = false
		base.NetProfitPercent = unavailableSentinel
		base.GuaranteedProfitPercent = unavailableSentinel
		base.Score = unavailableSentinel
		base.Reason = "no market data on any configured exchange"
		return base
	}

	estimate, _ := e.costs.EvaluatePairs(candidates)

	guaranteedPct := estimate.NetProfitPct.Sub(e.safetyBufferPct)
	averageSpread := averageSpreadPct(candidates)
	coverage := decimal.NewFromInt(int64(len(candidates)))
	score := guaranteedPct.
		Add(coverage.Mul(scoreCoverageWeight)).
		Sub(averageSpread.Mul(scoreSpreadWeight))

	base.Available = true
	base.QuoteAsset = estimate.Buy.QuoteAsset
	base.MarketSymbol = estimate.Buy.MarketSymbol
	base.BuyExchange = estimate.Buy.Exchange
	base.SellExchange = estimate.Sell.Exchange
	base.LatestPrice = estimate.Buy.Last
	base.GrossArbitragePercent = estimate.GrossPct.Round(displayPlaces)
	base.NetProfitPercent = estimate.NetProfitPct.Round(displayPlaces)
	base.GuaranteedProfitPercent = guaranteedPct.Round(displayPlaces)
	base.GuaranteedProfit = guaranteedPct.IsPositive() &&
		len(candidates) >= e.minCoverage &&
		estimate.CrossExchange
	base.EstimatedCostsPercent = estimate.CostsPct.Round(displayPlaces)
	base.AverageSpreadPercent = averageSpread.Round(displayPlaces)
	base.Score = score.Round(displayPlaces)
	if !estimate.CrossExchange {
		base.Reason = "no cross-exchange pair with a shared quote asset"
	}
	return base
}

// averageSpreadPct is the mean of the candidates' spreads, clamped at zero
// per candidate so crossed books do not reward the score.
func averageSpreadPct(candidates []Candidate) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range candidates {
		sum = sum.Add(decimal.Max(decimal.Zero, c.SpreadPercent))
	}
	return sum.Div(decimal.NewFromInt(int64(len(candidates))))
}
