package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"arb-ranker/internal/alerting"
	"arb-ranker/internal/cache"
	"arb-ranker/internal/config"
	"arb-ranker/internal/fetcher"
	"arb-ranker/internal/ranking"
	"arb-ranker/internal/scheduler"
	"arb-ranker/internal/server"
	"arb-ranker/internal/service"
	"arb-ranker/internal/storage"
	"arb-ranker/internal/universe"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.SnapshotFetcher {
	return fetcher.NewClient(fetcher.Options{
		BaseURL:       a.Config.MarketData.BaseURL,
		Timeout:       a.Config.MarketData.RequestTimeout,
		MaxPairs:      a.Config.MarketData.MaxPairs,
		TopAssetsOnly: a.Config.MarketData.TopAssetsOnly,
		UserAgent:     a.Config.MarketData.UserAgent,
	}, a.Logger)
}

func (a *App) newEngine() *ranking.Engine {
	fees := make(map[string]float64, len(a.Config.Exchanges))
	for _, exchange := range a.Config.Exchanges {
		fees[exchange] = a.Config.Fees.Percent(exchange)
	}
	costs := ranking.NewCostModel(fees, a.Config.Fees.Default, a.Config.Costs.TransferPct, a.Config.Costs.SlippageFloorPct)
	return ranking.NewEngine(
		universe.TopAssets(),
		a.Config.Exchanges,
		costs,
		a.Config.Ranking.SafetyBufferPct,
		a.Config.Ranking.MinCoverage,
		a.Logger,
	)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newService assembles the full pipeline around an optional store.
func (a *App) newService(snapshotFetcher fetcher.SnapshotFetcher, store *storage.Store, notifier alerting.Notifier) *service.Service {
	slot := cache.New(a.Config.Ranking.CacheTTL)

	var runStore storage.RunStore
	var alertStore storage.AlertStore
	if store != nil {
		runStore = store
		alertStore = store
	}

	return service.New(a.Config, snapshotFetcher, a.newEngine(), slot, runStore, alertStore, notifier, a.Logger)
}

// Serve runs the HTTP API until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(a.newFetcher(), store, a.newNotifier())
	srv := server.New(a.Config.Server, svc, a.Config.Exchanges, a.Logger)

	a.Logger.Info().Msg("starting ranking api")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("server terminated with error")
		return err
	}

	a.Logger.Info().Msg("ranking api stopped")
	return nil
}

// Watch runs the periodic refresh loop with alerting until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(a.newFetcher(), store, a.newNotifier())

	sched := scheduler.New(scheduler.Options{
		Interval:      a.Config.Scheduler.Interval,
		AlignToBucket: a.Config.Scheduler.AlignToBucket,
		StartupDelay:  a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting watch loop")
	err = sched.Run(ctx, svc.ProcessBucket)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}

// RankOptions configure the one-shot rank command.
type RankOptions struct {
	Limit   int
	AsJSON  bool
	Persist bool
}

// ExportOptions hold parameters for exporting one asset's history.
type ExportOptions struct {
	Symbol    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Symbol string
	Limit  int
}
