package fetcher

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"arb-ranker/internal/ranking"
)

// Outcome is the settled result of one exchange fetch: tickers or an error,
// never both.
type Outcome struct {
	Exchange string
	Tickers  []ranking.MarketTicker
	Err      error
}

// FetchAll issues one fetch per exchange concurrently and waits for every
// branch to settle. A failing exchange contributes an Outcome with Err set;
// it never cancels or fails the other branches.
func FetchAll(ctx context.Context, f SnapshotFetcher, exchanges []string, logger zerolog.Logger) []Outcome {
	log := logger.With().Str("component", "snapshot_fanout").Logger()

	resultCh := make(chan Outcome, len(exchanges))

	var wg sync.WaitGroup
	for _, exchange := range exchanges {
		wg.Add(1)
		go func(exchange string) {
			defer wg.Done()
			tickers, err := f.FetchSnapshot(ctx, exchange)
			if err != nil {
				log.Warn().Str("exchange", exchange).Err(err).Msg("snapshot fetch failed")
				resultCh <- Outcome{Exchange: exchange, Err: err}
				return
			}
			resultCh <- Outcome{Exchange: exchange, Tickers: tickers}
		}(exchange)
	}

	wg.Wait()
	close(resultCh)

	byExchange := make(map[string]Outcome, len(exchanges))
	for outcome := range resultCh {
		byExchange[outcome.Exchange] = outcome
	}

	// Preserve the configured exchange order in the returned slice.
	outcomes := make([]Outcome, 0, len(exchanges))
	for _, exchange := range exchanges {
		if outcome, ok := byExchange[exchange]; ok {
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}
