package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"arb-ranker/internal/ranking"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertRunSQL = `INSERT INTO ranking_runs (generated_at, total, stale)
    VALUES ($1,$2,$3)
    ON CONFLICT (generated_at) DO UPDATE
    SET total = EXCLUDED.total,
        stale = EXCLUDED.stale;`

	deleteRunAssetsSQL = `DELETE FROM ranked_assets WHERE generated_at = $1;`

	insertAssetSQL = `INSERT INTO ranked_assets (
        generated_at,
        rank,
        symbol,
        name,
        quote_asset,
        market_symbol,
        buy_exchange,
        sell_exchange,
        latest_price,
        gross_pct,
        net_profit_pct,
        guaranteed_pct,
        guaranteed,
        costs_pct,
        avg_spread_pct,
        score,
        coverage,
        reason,
        available
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
    );`

	assetColumnsSQL = `generated_at,
        rank,
        symbol,
        name,
        quote_asset,
        market_symbol,
        buy_exchange,
        sell_exchange,
        latest_price,
        gross_pct,
        net_profit_pct,
        guaranteed_pct,
        guaranteed,
        costs_pct,
        avg_spread_pct,
        score,
        coverage,
        reason,
        available,
        created_at`

	listAssetHistorySQL = `SELECT ` + assetColumnsSQL + `
    FROM ranked_assets
    WHERE symbol = $1
      AND generated_at >= $2
      AND generated_at < $3
    ORDER BY generated_at;`

	listRecentAssetsSQL = `SELECT ` + assetColumnsSQL + `
    FROM ranked_assets
    WHERE symbol = $1
    ORDER BY generated_at DESC
    LIMIT $2;`

	latestRunAssetsSQL = `SELECT ` + assetColumnsSQL + `
    FROM ranked_assets
    WHERE generated_at = (SELECT MAX(generated_at) FROM ranking_runs)
    ORDER BY rank;`

	countRunsSQL = `SELECT COUNT(*) FROM ranking_runs;`

	insertAlertSQL = `INSERT INTO alerts (
        generated_at,
        symbol,
        buy_exchange,
        sell_exchange,
        guaranteed_pct,
        threshold_pct,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    ON CONFLICT (generated_at, symbol) DO UPDATE
    SET buy_exchange   = EXCLUDED.buy_exchange,
        sell_exchange  = EXCLUDED.sell_exchange,
        guaranteed_pct = EXCLUDED.guaranteed_pct,
        threshold_pct  = EXCLUDED.threshold_pct,
        channels       = EXCLUDED.channels
    RETURNING id, generated_at, symbol, buy_exchange, sell_exchange, guaranteed_pct, threshold_pct, channels, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        generated_at,
        symbol,
        buy_exchange,
        sell_exchange,
        guaranteed_pct,
        threshold_pct,
        channels,
        created_at
    FROM alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// RunStore defines persistence for ranking runs.
type RunStore interface {
	InsertRun(ctx context.Context, result *ranking.Result, stale bool) error
	ListAssetHistory(ctx context.Context, symbol string, from, to time.Time) ([]AssetRecord, error)
	ListRecentAssets(ctx context.Context, symbol string, limit int) ([]AssetRecord, error)
	LatestRunAssets(ctx context.Context) ([]AssetRecord, error)
	CountRuns(ctx context.Context) (int64, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to ranking runs and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// InsertRun persists one ranking run and its per-asset rows atomically.
func (s *Store) InsertRun(ctx context.Context, result *ranking.Result, stale bool) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin run insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, upsertRunSQL, result.GeneratedAt, result.Total, stale); err != nil {
		return fmt.Errorf("upsert ranking run: %w", err)
	}
	if _, err := tx.Exec(ctx, deleteRunAssetsSQL, result.GeneratedAt); err != nil {
		return fmt.Errorf("clear run assets: %w", err)
	}

	for _, asset := range result.Assets {
		if _, err := tx.Exec(ctx, insertAssetSQL,
			result.GeneratedAt,
			asset.Rank,
			asset.Symbol,
			asset.Name,
			asset.QuoteAsset,
			asset.MarketSymbol,
			asset.BuyExchange,
			asset.SellExchange,
			asset.LatestPrice.String(),
			asset.GrossArbitragePercent.String(),
			asset.NetProfitPercent.String(),
			asset.GuaranteedProfitPercent.String(),
			asset.GuaranteedProfit,
			asset.EstimatedCostsPercent.String(),
			asset.AverageSpreadPercent.String(),
			asset.Score.String(),
			asset.Coverage,
			asset.Reason,
			asset.Available,
		); err != nil {
			return fmt.Errorf("insert ranked asset %s: %w", asset.Symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run insert: %w", err)
	}
	return nil
}

// ListAssetHistory returns one asset's ranked rows within a time window.
func (s *Store) ListAssetHistory(ctx context.Context, symbol string, from, to time.Time) ([]AssetRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAssetHistorySQL, symbol, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list asset history: %w", queryErr)
	}
	defer rows.Close()

	return collectAssetRecords(rows)
}

// ListRecentAssets returns one asset's most recent ranked rows.
func (s *Store) ListRecentAssets(ctx context.Context, symbol string, limit int) ([]AssetRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAssetsSQL, symbol, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent assets: %w", queryErr)
	}
	defer rows.Close()

	return collectAssetRecords(rows)
}

// LatestRunAssets returns the most recent run's full ranking in rank order.
func (s *Store) LatestRunAssets(ctx context.Context) ([]AssetRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, latestRunAssetsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("latest run assets: %w", queryErr)
	}
	defer rows.Close()

	return collectAssetRecords(rows)
}

// CountRuns counts persisted ranking runs.
func (s *Store) CountRuns(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRunsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count runs: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.GeneratedAt,
		alert.Symbol,
		alert.BuyExchange,
		alert.SellExchange,
		alert.GuaranteedPct.String(),
		alert.ThresholdPct.String(),
		alert.Channels,
	)

	rec, scanErr := scanAlert(row)
	if scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func collectAssetRecords(rows pgx.Rows) ([]AssetRecord, error) {
	records := make([]AssetRecord, 0)
	for rows.Next() {
		record, scanErr := scanAssetRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanAssetRecord(rows pgx.Rows) (AssetRecord, error) {
	var (
		rec           AssetRecord
		latestStr     string
		grossStr      string
		netStr        string
		guaranteedStr string
		costsStr      string
		spreadStr     string
		scoreStr      string
	)

	if err := rows.Scan(
		&rec.GeneratedAt,
		&rec.Rank,
		&rec.Symbol,
		&rec.Name,
		&rec.QuoteAsset,
		&rec.MarketSymbol,
		&rec.BuyExchange,
		&rec.SellExchange,
		&latestStr,
		&grossStr,
		&netStr,
		&guaranteedStr,
		&rec.Guaranteed,
		&costsStr,
		&spreadStr,
		&scoreStr,
		&rec.Coverage,
		&rec.Reason,
		&rec.Available,
		&rec.CreatedAt,
	); err != nil {
		return AssetRecord{}, err
	}

	fields := []struct {
		raw  string
		dest *decimal.Decimal
		name string
	}{
		{latestStr, &rec.LatestPrice, "latest price"},
		{grossStr, &rec.GrossPct, "gross pct"},
		{netStr, &rec.NetProfitPct, "net profit pct"},
		{guaranteedStr, &rec.GuaranteedPct, "guaranteed pct"},
		{costsStr, &rec.CostsPct, "costs pct"},
		{spreadStr, &rec.AvgSpreadPct, "avg spread pct"},
		{scoreStr, &rec.Score, "score"},
	}
	for _, field := range fields {
		value, err := decimal.NewFromString(field.raw)
		if err != nil {
			return AssetRecord{}, fmt.Errorf("parse %s: %w", field.name, err)
		}
		*field.dest = value
	}

	return rec, nil
}

func scanAlert(row pgx.Row) (AlertRecord, error) {
	var (
		rec           AlertRecord
		guaranteedStr string
		thresholdStr  string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.GeneratedAt,
		&rec.Symbol,
		&rec.BuyExchange,
		&rec.SellExchange,
		&guaranteedStr,
		&thresholdStr,
		&rec.Channels,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	var convErr error
	rec.GuaranteedPct, convErr = decimal.NewFromString(guaranteedStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse guaranteed pct: %w", convErr)
	}
	rec.ThresholdPct, convErr = decimal.NewFromString(thresholdStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse threshold pct: %w", convErr)
	}
	return rec, nil
}
