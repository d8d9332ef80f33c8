package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"arb-ranker/internal/alerting"
	"arb-ranker/internal/cache"
	"arb-ranker/internal/config"
	"arb-ranker/internal/ranking"
	"arb-ranker/internal/universe"
)

type scriptedFetcher struct {
	mu        sync.Mutex
	snapshots map[string][]ranking.MarketTicker
	failAll   bool
	calls     int
}

func (f *scriptedFetcher) FetchSnapshot(ctx context.Context, exchange string) ([]ranking.MarketTicker, error) {
	f.mu.Lock()
	f.calls++
	failAll := f.failAll
	tickers := f.snapshots[exchange]
	f.mu.Unlock()

	if failAll || tickers == nil {
		return nil, errors.New("upstream down")
	}
	return tickers, nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type capturingNotifier struct {
	mu    sync.Mutex
	notes []alerting.Notification
}

func (n *capturingNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
	return nil
}

func (n *capturingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notes)
}

func mt(base, quote, market, last, ask, bid, spread string) ranking.MarketTicker {
	return ranking.MarketTicker{
		MarketSymbol:  market,
		BaseAsset:     base,
		QuoteAsset:    quote,
		Last:          decimal.RequireFromString(last),
		Ask:           decimal.RequireFromString(ask),
		Bid:           decimal.RequireFromString(bid),
		SpreadPercent: decimal.RequireFromString(spread),
	}
}

func profitableSnapshots() map[string][]ranking.MarketTicker {
	return map[string][]ranking.MarketTicker{
		"binance": {mt("BTC", "USDT", "BTCUSDT", "100.00", "100.00", "99.98", "0.02")},
		"bybit":   {mt("BTC", "USDT", "BTCUSDT", "102.00", "102.02", "102.00", "0.02")},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Exchanges: []string{"binance", "bybit"},
		Ranking: config.RankingConfig{
			SafetyBufferPct: 0.30,
			MinCoverage:     2,
			CacheTTL:        15 * time.Second,
		},
		Alerting: config.AlertingConfig{
			Enabled:      true,
			ThresholdPct: 0.5,
			Cooldown:     30 * time.Minute,
			Channels:     []string{"telegram"},
		},
	}
}

func newTestService(cfg *config.Config, fetch *scriptedFetcher, notifier alerting.Notifier) *Service {
	costs := ranking.NewCostModel(map[string]float64{"binance": 0.10, "bybit": 0.10}, 0.20, 0.12, 0.05)
	engine := ranking.NewEngine(
		[]universe.Asset{{Name: "Bitcoin", Symbol: "BTC", Aliases: []string{"XBT"}}},
		cfg.Exchanges,
		costs,
		cfg.Ranking.SafetyBufferPct,
		cfg.Ranking.MinCoverage,
		zerolog.Nop(),
	)
	slot := cache.New(cfg.Ranking.CacheTTL)
	return New(cfg, fetch, engine, slot, nil, nil, notifier, zerolog.Nop())
}

func TestTopAssetsServesFromCache(t *testing.T) {
	fetch := &scriptedFetcher{snapshots: profitableSnapshots()}
	svc := newTestService(testConfig(), fetch, nil)

	first, stale, err := svc.TopAssets(context.Background())
	if err != nil {
		t.Fatalf("first call should succeed: %v", err)
	}
	if stale {
		t.Fatal("freshly computed payload must not be stale")
	}

	second, stale, err := svc.TopAssets(context.Background())
	if err != nil {
		t.Fatalf("second call should succeed: %v", err)
	}
	if stale {
		t.Fatal("cached payload must not be stale")
	}
	if first != second {
		t.Fatal("second call inside the TTL must return the cached payload")
	}
	if fetch.callCount() != 2 {
		t.Fatalf("expected one fetch per exchange only, got %d calls", fetch.callCount())
	}
}

func TestTopAssetsErrorsWhenAllFailWithoutCache(t *testing.T) {
	fetch := &scriptedFetcher{failAll: true}
	svc := newTestService(testConfig(), fetch, nil)

	_, _, err := svc.TopAssets(context.Background())
	if !errors.Is(err, ErrAllExchangesFailed) {
		t.Fatalf("expected ErrAllExchangesFailed, got %v", err)
	}
}

func TestTopAssetsServesStaleOnTotalOutage(t *testing.T) {
	fetch := &scriptedFetcher{snapshots: profitableSnapshots()}
	svc := newTestService(testConfig(), fetch, nil)

	first, _, err := svc.TopAssets(context.Background())
	if err != nil {
		t.Fatalf("warm-up call should succeed: %v", err)
	}

	// Swap in an already expired slot and take every exchange down.
	expired := cache.New(time.Nanosecond)
	expired.Put(first)
	svc.slot = expired

	fetch.mu.Lock()
	fetch.failAll = true
	fetch.mu.Unlock()

	time.Sleep(time.Millisecond)

	got, stale, err := svc.TopAssets(context.Background())
	if err != nil {
		t.Fatalf("stale fallback should not error: %v", err)
	}
	if !stale {
		t.Fatal("payload served after a total outage must be flagged stale")
	}
	if got != first {
		t.Fatal("stale fallback must return the last computed payload")
	}
}

func TestTopAssetsRankingIsDeterministic(t *testing.T) {
	fetch := &scriptedFetcher{snapshots: profitableSnapshots()}
	svc := newTestService(testConfig(), fetch, nil)

	first, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh should succeed: %v", err)
	}
	second, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh should succeed: %v", err)
	}

	if len(first.Assets) != len(second.Assets) {
		t.Fatal("asset counts differ between identical runs")
	}
	for i := range first.Assets {
		a, b := first.Assets[i], second.Assets[i]
		if a.Symbol != b.Symbol || a.Rank != b.Rank || !a.Score.Equal(b.Score) {
			t.Fatalf("run mismatch at %d: %+v vs %+v", i, a, b)
		}
	}
}

func TestProcessBucketDispatchesAlertOnceWithinCooldown(t *testing.T) {
	fetch := &scriptedFetcher{snapshots: profitableSnapshots()}
	notifier := &capturingNotifier{}
	svc := newTestService(testConfig(), fetch, notifier)

	bucket := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	if err := svc.ProcessBucket(context.Background(), bucket); err != nil {
		t.Fatalf("first bucket should succeed: %v", err)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected exactly one alert, got %d", notifier.count())
	}

	note := notifier.notes[0]
	if note.Symbol != "BTC" || note.BuyExchange != "binance" || note.SellExchange != "bybit" {
		t.Fatalf("unexpected notification: %+v", note)
	}

	// The same opportunity inside the cooldown window stays silent.
	if err := svc.ProcessBucket(context.Background(), bucket.Add(time.Minute)); err != nil {
		t.Fatalf("second bucket should succeed: %v", err)
	}
	if notifier.count() != 1 {
		t.Fatalf("cooldown should suppress the repeat alert, got %d", notifier.count())
	}

	// After the cooldown elapses the alert fires again.
	clock := time.Now().Add(31 * time.Minute)
	svc.now = func() time.Time { return clock }
	if err := svc.ProcessBucket(context.Background(), bucket.Add(time.Hour)); err != nil {
		t.Fatalf("third bucket should succeed: %v", err)
	}
	if notifier.count() != 2 {
		t.Fatalf("expired cooldown should re-alert, got %d", notifier.count())
	}
}

func TestProcessBucketSkipsAlertBelowThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.Alerting.ThresholdPct = 5.0

	fetch := &scriptedFetcher{snapshots: profitableSnapshots()}
	notifier := &capturingNotifier{}
	svc := newTestService(cfg, fetch, notifier)

	bucket := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	if err := svc.ProcessBucket(context.Background(), bucket); err != nil {
		t.Fatalf("bucket should succeed: %v", err)
	}
	if notifier.count() != 0 {
		t.Fatalf("guaranteed profit below threshold must not alert, got %d", notifier.count())
	}
}
