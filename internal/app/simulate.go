package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"arb-ranker/internal/fetcher"
	"arb-ranker/internal/ranking"
)

// SimulateAlert feeds synthetic two-venue prices for one symbol through the
// full ranking and alert pipeline, so the notifier wiring can be verified
// without live market data.
func (a *App) SimulateAlert(ctx context.Context, symbol string, buyAsk, sellBid decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}
	if len(a.Config.Exchanges) < 2 {
		return errors.New("at least two exchanges must be configured")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	symbol = strings.ToUpper(symbol)
	static := &staticSnapshotFetcher{
		snapshots: map[string][]ranking.MarketTicker{
			a.Config.Exchanges[0]: {syntheticTicker(symbol, buyAsk)},
			a.Config.Exchanges[1]: {syntheticTicker(symbol, sellBid)},
		},
	}

	svc := a.newService(static, nil, notifier)

	bucket := time.Now().UTC().Truncate(a.Config.Scheduler.Interval)
	return svc.ProcessBucket(ctx, bucket)
}

func syntheticTicker(symbol string, price decimal.Decimal) ranking.MarketTicker {
	return ranking.MarketTicker{
		MarketSymbol:  symbol + "USDT",
		BaseAsset:     symbol,
		QuoteAsset:    "USDT",
		Last:          price,
		Ask:           price,
		Bid:           price,
		SpreadPercent: decimal.Zero,
	}
}

type staticSnapshotFetcher struct {
	snapshots map[string][]ranking.MarketTicker
}

func (s *staticSnapshotFetcher) FetchSnapshot(ctx context.Context, exchange string) ([]ranking.MarketTicker, error) {
	tickers, ok := s.snapshots[exchange]
	if !ok {
		return nil, fmt.Errorf("no synthetic snapshot for %s", exchange)
	}
	return tickers, nil
}

var _ fetcher.SnapshotFetcher = (*staticSnapshotFetcher)(nil)
