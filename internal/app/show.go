package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"arb-ranker/internal/storage"
)

// Show prints persisted ranking rows: the latest full run, or one symbol's
// recent history when --symbol is given.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show rankings")
	}
	if closeStore != nil {
		defer closeStore()
	}

	var records []storage.AssetRecord
	if opts.Symbol != "" {
		records, err = store.ListRecentAssets(ctx, strings.ToUpper(opts.Symbol), opts.Limit)
	} else {
		records, err = store.LatestRunAssets(ctx)
		if err == nil && opts.Limit > 0 && opts.Limit < len(records) {
			records = records[:opts.Limit]
		}
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no ranking rows found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tRank\tSymbol\tBuy\tSell\tNet%\tGuaranteed%\tScore\tCov\tReason")

	for _, record := range records {
		fmt.Fprintf(
			writer,
			"%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			record.GeneratedAt.UTC().Format(time.RFC3339),
			record.Rank,
			record.Symbol,
			record.BuyExchange,
			record.SellExchange,
			record.NetProfitPct.StringFixed(4),
			record.GuaranteedPct.StringFixed(4),
			record.Score.StringFixed(4),
			record.Coverage,
			sanitizeInline(record.Reason),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
