package ranking

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testCostModel() CostModel {
	return NewCostModel(map[string]float64{
		"binance": 0.10,
		"bybit":   0.10,
		"kraken":  0.26,
	}, 0.20, 0.12, 0.05)
}

func TestFeePctFallsBackToDefault(t *testing.T) {
	m := testCostModel()

	assert.True(t, m.FeePct("binance").Equal(decimal.RequireFromString("0.1")))
	assert.True(t, m.FeePct("KRAKEN").Equal(decimal.RequireFromString("0.26")))
	assert.True(t, m.FeePct("unknown").Equal(decimal.RequireFromString("0.2")))
}

func TestSlippagePctFloor(t *testing.T) {
	m := testCostModel()

	// A tight spread stays on the floor.
	tight := m.SlippagePct(decimal.RequireFromString("0.02"))
	assert.True(t, tight.Equal(decimal.RequireFromString("0.05")), "got %s", tight)

	// A wide spread scales by 0.35.
	wide := m.SlippagePct(decimal.RequireFromString("1"))
	assert.True(t, wide.Equal(decimal.RequireFromString("0.35")), "got %s", wide)

	// Crossed books use the absolute spread.
	crossed := m.SlippagePct(decimal.RequireFromString("-1"))
	assert.True(t, crossed.Equal(decimal.RequireFromString("0.35")), "got %s", crossed)
}

func TestLegCostPct(t *testing.T) {
	m := testCostModel()

	c := Candidate{Exchange: "binance", SpreadPercent: decimal.RequireFromString("0.02")}

	// fee 0.10 + slippage floor 0.05 + transfer 0.12 / 2.
	assert.True(t, m.LegCostPct(c).Equal(decimal.RequireFromString("0.21")), "got %s", m.LegCostPct(c))
}
