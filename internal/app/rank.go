package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"arb-ranker/internal/ranking"
	"arb-ranker/internal/storage"
)

// Rank runs one full ranking cycle and prints the outcome.
func (a *App) Rank(ctx context.Context, opts RankOptions) error {
	var store *storage.Store
	if opts.Persist {
		s, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("database not configured; cannot persist (--persist)")
		}
		store = s
		defer closeStore()
	}

	svc := a.newService(a.newFetcher(), store, nil)
	result, err := svc.Refresh(ctx)
	if err != nil {
		return err
	}

	assets := result.Assets
	if opts.Limit > 0 && opts.Limit < len(assets) {
		assets = assets[:opts.Limit]
	}

	if opts.AsJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(ranking.Result{
			GeneratedAt: result.GeneratedAt,
			Total:       len(assets),
			Assets:      assets,
		})
	}

	renderRankingTable(os.Stdout, assets)
	return nil
}

func renderRankingTable(out io.Writer, assets []ranking.RankedAsset) {
	table := tablewriter.NewWriter(out)
	table.Header("#", "Symbol", "Buy", "Sell", "Quote", "Net%", "Guaranteed%", "Score", "Cov", "Status")

	for _, asset := range assets {
		status := "ok"
		if !asset.Available {
			status = asset.Reason
		} else if asset.GuaranteedProfit {
			status = "guaranteed"
		} else if asset.Reason != "" {
			status = asset.Reason
		}

		net := "-"
		guaranteed := "-"
		score := "-"
		if asset.Available {
			net = asset.NetProfitPercent.StringFixed(4)
			guaranteed = asset.GuaranteedProfitPercent.StringFixed(4)
			score = asset.Score.StringFixed(4)
		}

		table.Append(
			fmt.Sprintf("%d", asset.Rank),
			asset.Symbol,
			asset.BuyExchange,
			asset.SellExchange,
			asset.QuoteAsset,
			net,
			guaranteed,
			score,
			fmt.Sprintf("%d", asset.Coverage),
			status,
		)
	}

	table.Render()
}
