package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"arb-ranker/internal/alerting"
	"arb-ranker/internal/cache"
	"arb-ranker/internal/config"
	"arb-ranker/internal/fetcher"
	"arb-ranker/internal/ranking"
	"arb-ranker/internal/storage"
)

// ErrAllExchangesFailed indicates that no upstream exchange produced a
// snapshot and no cached payload was available to fall back to.
var ErrAllExchangesFailed = errors.New("service: every exchange snapshot failed")

// Service drives the ranking pipeline: cache check, concurrent snapshot
// fetch, ranking, cache store, best-effort persistence and alerting.
type Service struct {
	fetcher  fetcher.SnapshotFetcher
	engine   *ranking.Engine
	slot     *cache.Slot
	store    storage.RunStore
	alerts   storage.AlertStore
	notifier alerting.Notifier
	logger   zerolog.Logger

	exchanges []string
	alertsOn  bool
	threshold decimal.Decimal
	cooldown  time.Duration
	channels  []string
	locker    storage.AdvisoryLocker
	lockKey   int64

	mu        sync.Mutex
	lastAlert map[string]time.Time

	now func() time.Time // overridable in tests
}

// New constructs the ranking service.
func New(cfg *config.Config, snapshotFetcher fetcher.SnapshotFetcher, engine *ranking.Engine, slot *cache.Slot, store storage.RunStore, alertStore storage.AlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	threshold := decimal.Zero
	if cfg.Alerting.Enabled && cfg.Alerting.ThresholdPct > 0 {
		threshold = decimal.NewFromFloat(cfg.Alerting.ThresholdPct)
	}

	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		fetcher:   snapshotFetcher,
		engine:    engine,
		slot:      slot,
		store:     store,
		alerts:    alertStore,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		exchanges: cfg.Exchanges,
		alertsOn:  cfg.Alerting.Enabled,
		threshold: threshold,
		cooldown:  cfg.Alerting.Cooldown,
		channels:  cfg.Alerting.Channels,
		locker:    locker,
		lockKey:   cfg.Scheduler.AdvisoryLockKey,
		lastAlert: make(map[string]time.Time),
		now:       time.Now,
	}
}

// TopAssets serves the ranked universe, recomputing only on cache expiry.
// The second return reports whether the payload is stale, which happens
// only when every upstream exchange failed and an expired payload existed.
func (s *Service) TopAssets(ctx context.Context) (*ranking.Result, bool, error) {
	if payload, ok := s.slot.Fresh(); ok {
		return payload, false, nil
	}

	result, err := s.compute(ctx)
	if err != nil {
		if stale, ok := s.slot.Stale(); ok {
			s.logger.Warn().Err(err).Msg("serving stale ranking after total upstream outage")
			return stale, true, nil
		}
		return nil, false, err
	}

	s.slot.Put(result)
	s.persist(ctx, result)
	return result, false, nil
}

// Refresh recomputes the ranking unconditionally and replaces the cache
// slot. Used by the watch loop, which must not be satisfied by a fresh
// cache entry.
func (s *Service) Refresh(ctx context.Context) (*ranking.Result, error) {
	result, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	s.slot.Put(result)
	s.persist(ctx, result)
	return result, nil
}

// compute runs the full pipeline once: fan-out fetch, then the pure ranking
// stages over whatever snapshots settled successfully.
func (s *Service) compute(ctx context.Context) (*ranking.Result, error) {
	outcomes := fetcher.FetchAll(ctx, s.fetcher, s.exchanges, s.logger)

	snapshots := make(map[string][]ranking.MarketTicker, len(outcomes))
	failed := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
			continue
		}
		snapshots[outcome.Exchange] = outcome.Tickers
	}

	if failed == len(s.exchanges) {
		return nil, ErrAllExchangesFailed
	}

	result := s.engine.Rank(snapshots, s.now().UTC())
	s.logger.Info().
		Int("exchanges_ok", len(snapshots)).
		Int("exchanges_failed", failed).
		Int("assets", result.Total).
		Msg("ranking computed")
	return result, nil
}

// persist writes the run best-effort. Storage trouble never fails a request.
func (s *Service) persist(ctx context.Context, result *ranking.Result) {
	if s.store == nil {
		return
	}
	if err := s.store.InsertRun(ctx, result, false); err != nil {
		s.logger.Error().Err(err).Time("generated_at", result.GeneratedAt).Msg("failed to persist ranking run")
	}
}

// ProcessBucket executes one watch-mode cycle: refresh under the advisory
// lock, then dispatch alerts for guaranteed opportunities.
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip bucket because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	result, err := s.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh ranking: %w", err)
	}

	s.dispatchAlerts(ctx, result)
	return nil
}

func (s *Service) dispatchAlerts(ctx context.Context, result *ranking.Result) {
	if !s.alertsOn || s.notifier == nil {
		return
	}

	for _, asset := range result.Assets {
		if !asset.GuaranteedProfit {
			continue
		}
		if asset.GuaranteedProfitPercent.LessThan(s.threshold) {
			continue
		}
		if !s.markAlerted(asset.Symbol) {
			continue
		}

		note := alerting.Notification{
			GeneratedAt:   result.GeneratedAt,
			Symbol:        asset.Symbol,
			Name:          asset.Name,
			BuyExchange:   asset.BuyExchange,
			SellExchange:  asset.SellExchange,
			QuoteAsset:    asset.QuoteAsset,
			NetProfitPct:  asset.NetProfitPercent,
			GuaranteedPct: asset.GuaranteedProfitPercent,
			ThresholdPct:  s.threshold,
			Coverage:      asset.Coverage,
			Channels:      s.channels,
		}

		if s.alerts != nil {
			record := storage.AlertRecord{
				GeneratedAt:   result.GeneratedAt,
				Symbol:        asset.Symbol,
				BuyExchange:   asset.BuyExchange,
				SellExchange:  asset.SellExchange,
				GuaranteedPct: asset.GuaranteedProfitPercent,
				ThresholdPct:  s.threshold,
				Channels:      s.channels,
			}
			if _, err := s.alerts.InsertAlert(ctx, record); err != nil {
				s.logger.Error().Err(err).Str("symbol", asset.Symbol).Msg("failed to persist alert record")
			}
		}

		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("symbol", asset.Symbol).Msg("failed to dispatch alert")
		}
	}
}

// markAlerted records an alert emission for a symbol unless it is still
// inside the cooldown window.
func (s *Service) markAlerted(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if last, ok := s.lastAlert[symbol]; ok && now.Sub(last) < s.cooldown {
		return false
	}
	s.lastAlert[symbol] = now
	return true
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
