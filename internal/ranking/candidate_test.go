package ranking

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arb-ranker/internal/universe"
)

func tick(base, quote, market, last, ask, bid, spread string) MarketTicker {
	return MarketTicker{
		MarketSymbol:  market,
		BaseAsset:     base,
		QuoteAsset:    quote,
		Last:          decimal.RequireFromString(last),
		Ask:           decimal.RequireFromString(ask),
		Bid:           decimal.RequireFromString(bid),
		SpreadPercent: decimal.RequireFromString(spread),
	}
}

func TestSelectCandidatePrefersQuotePriority(t *testing.T) {
	index := BuildIndex([]MarketTicker{
		tick("BTC", "EUR", "BTCEUR", "90000", "90010", "89990", "0.02"),
		tick("BTC", "USDT", "BTCUSDT", "100000", "100010", "99990", "0.10"),
		tick("BTC", "USD", "BTCUSD", "100001", "100011", "99991", "0.01"),
	})

	candidate, ok := SelectCandidate(universe.Asset{Name: "Bitcoin", Symbol: "BTC"}, "binance", index)
	require.True(t, ok)

	// USDT wins over USD and EUR regardless of spread.
	assert.Equal(t, "BTCUSDT", candidate.MarketSymbol)
	assert.Equal(t, "USDT", candidate.QuoteAsset)
	assert.Equal(t, "binance", candidate.Exchange)
}

func TestSelectCandidateTieBreaksOnSpreadThenBid(t *testing.T) {
	index := BuildIndex([]MarketTicker{
		tick("ETH", "USDT", "ETHUSDT-A", "3000", "3001", "2999", "0.20"),
		tick("ETH", "USDT", "ETHUSDT-B", "3000", "3001", "2999", "0.05"),
	})

	candidate, ok := SelectCandidate(universe.Asset{Name: "Ethereum", Symbol: "ETH"}, "okx", index)
	require.True(t, ok)
	assert.Equal(t, "ETHUSDT-B", candidate.MarketSymbol)

	index = BuildIndex([]MarketTicker{
		tick("ETH", "USDT", "ETHUSDT-A", "3000", "3001", "2999", "0.05"),
		tick("ETH", "USDT", "ETHUSDT-B", "3000", "3001", "3000", "0.05"),
	})

	candidate, ok = SelectCandidate(universe.Asset{Name: "Ethereum", Symbol: "ETH"}, "okx", index)
	require.True(t, ok)
	assert.Equal(t, "ETHUSDT-B", candidate.MarketSymbol)
}

func TestSelectCandidateMatchesAliases(t *testing.T) {
	index := BuildIndex([]MarketTicker{
		tick("XBT", "USD", "XBTUSD", "100000", "100010", "99990", "0.02"),
	})

	asset := universe.Asset{Name: "Bitcoin", Symbol: "BTC", Aliases: []string{"XBT"}}
	candidate, ok := SelectCandidate(asset, "kraken", index)
	require.True(t, ok)
	assert.Equal(t, "XBTUSD", candidate.MarketSymbol)

	_, ok = SelectCandidate(universe.Asset{Name: "Solana", Symbol: "SOL"}, "kraken", index)
	assert.False(t, ok)
}

func TestBuildIndexNormalizesBaseAsset(t *testing.T) {
	index := BuildIndex([]MarketTicker{
		tick(" btc ", "USDT", "BTCUSDT", "100000", "100010", "99990", "0.02"),
	})

	require.Len(t, index["BTC"], 1)
	assert.Equal(t, "BTCUSDT", index["BTC"][0].MarketSymbol)
}
