package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"arb-ranker/internal/storage"
)

// Export renders one asset's ranking history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Symbol == "" {
		return errors.New("--symbol is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	symbol := strings.ToUpper(opts.Symbol)
	records, err := store.ListAssetHistory(ctx, symbol, from, to)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Str("symbol", symbol).Msg("no ranking rows found for export window")
		return nil
	}

	downsampled := downsampleRecords(records, opts.MaxPoints)
	a.Logger.Info().Str("symbol", symbol).Int("total", len(records)).Int("exported", len(downsampled)).Msg("exporting ranking history")

	if opts.CSVPath != "" {
		if err := writeHistoryCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeHistoryPNG(opts.PNGPath, symbol, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleRecords(records []storage.AssetRecord, max int) []storage.AssetRecord {
	if max <= 0 || len(records) <= max {
		return records
	}

	result := make([]storage.AssetRecord, 0, max)
	step := float64(len(records)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(records) {
			idx = len(records) - 1
		}
		result = append(result, records[idx])
	}
	return result
}

func writeHistoryCSV(path string, records []storage.AssetRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"generated_at", "rank", "symbol", "buy_exchange", "sell_exchange", "net_profit_pct", "guaranteed_pct", "score", "coverage", "available"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, record := range records {
		row := []string{
			record.GeneratedAt.Format(time.RFC3339),
			strconv.Itoa(record.Rank),
			record.Symbol,
			record.BuyExchange,
			record.SellExchange,
			record.NetProfitPct.String(),
			record.GuaranteedPct.String(),
			record.Score.String(),
			strconv.Itoa(record.Coverage),
			strconv.FormatBool(record.Available),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeHistoryPNG(path, symbol string, records []storage.AssetRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(records))
	net := make([]float64, len(records))
	guaranteed := make([]float64, len(records))
	score := make([]float64, len(records))

	for i, record := range records {
		x[i] = record.GeneratedAt
		net[i] = record.NetProfitPct.InexactFloat64()
		guaranteed[i] = record.GuaranteedPct.InexactFloat64()
		score[i] = record.Score.InexactFloat64()
	}

	pctFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.3f")
	}
	graph := chart.Chart{
		Title:  symbol,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Profit (%)",
			ValueFormatter: pctFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Score",
			ValueFormatter: pctFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Net %",
				XValues: x,
				YValues: net,
			},
			chart.TimeSeries{
				Name:    "Guaranteed %",
				XValues: x,
				YValues: guaranteed,
			},
			chart.TimeSeries{
				Name:    "Score",
				XValues: x,
				YValues: score,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
