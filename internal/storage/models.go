package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetRecord is one persisted ranked-asset row from a ranking run.
type AssetRecord struct {
	GeneratedAt   time.Time
	Rank          int
	Symbol        string
	Name          string
	QuoteAsset    string
	MarketSymbol  string
	BuyExchange   string
	SellExchange  string
	LatestPrice   decimal.Decimal
	GrossPct      decimal.Decimal
	NetProfitPct  decimal.Decimal
	GuaranteedPct decimal.Decimal
	Guaranteed    bool
	CostsPct      decimal.Decimal
	AvgSpreadPct  decimal.Decimal
	Score         decimal.Decimal
	Coverage      int
	Reason        string
	Available     bool
	CreatedAt     time.Time
}

// AlertRecord captures an emitted opportunity alert for auditing and
// de-duplication.
type AlertRecord struct {
	ID            int64
	GeneratedAt   time.Time
	Symbol        string
	BuyExchange   string
	SellExchange  string
	GuaranteedPct decimal.Decimal
	ThresholdPct  decimal.Decimal
	Channels      []string
	CreatedAt     time.Time
}
