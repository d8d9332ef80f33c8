package fetcher

import (
	"context"

	"arb-ranker/internal/ranking"
)

// SnapshotFetcher retrieves one exchange's market snapshot from the
// market-data collaborator.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, exchange string) ([]ranking.MarketTicker, error)
}
