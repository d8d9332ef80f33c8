package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"arb-ranker/internal/ranking"
)

// Options parameterise the snapshot client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	MaxPairs      int
	TopAssetsOnly bool
	UserAgent     string
}

// Client fetches market snapshots over HTTP. One GET per exchange; the
// configured timeout bounds each request independently.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a snapshot client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "snapshot_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchSnapshot retrieves and decodes one exchange's ticker list. Rows with
// non-numeric or non-positive prices are filtered out during decode rather
// than surfacing as errors downstream.
func (c *Client) FetchSnapshot(ctx context.Context, exchange string) ([]ranking.MarketTicker, error) {
	endpoint := fmt.Sprintf("%s/markets/%s", c.baseURL, url.PathEscape(strings.ToLower(exchange)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	query := req.URL.Query()
	query.Set("max_pairs", strconv.Itoa(c.opts.MaxPairs))
	query.Set("top_assets_only", strconv.FormatBool(c.opts.TopAssetsOnly))
	req.URL.RawQuery = query.Encode()

	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "arbranker/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(exchange, resp.StatusCode, payloadBytes)
	}

	var snapshot snapshotResponse
	if err := json.Unmarshal(payloadBytes, &snapshot); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", exchange, err)
	}

	tickers := make([]ranking.MarketTicker, 0, len(snapshot.Markets))
	dropped := 0
	for _, row := range snapshot.Markets {
		ticker, ok := decodeTicker(row)
		if !ok {
			dropped++
			continue
		}
		tickers = append(tickers, ticker)
	}

	if dropped > 0 {
		c.logger.Debug().
			Str("exchange", exchange).
			Int("dropped", dropped).
			Msg("filtered rows with invalid price fields")
	}

	return tickers, nil
}

// snapshotResponse mirrors the collaborator's wire format: field names are
// the service's own (Portuguese) contract, numeric fields decimal strings.
type snapshotResponse struct {
	Exchange string      `json:"exchange"`
	Markets  []marketRow `json:"mercados"`
}

type marketRow struct {
	Symbol           string `json:"symbol"`
	BaseAsset        string `json:"base_asset"`
	QuoteAsset       string `json:"quote_asset"`
	ValorAtual       string `json:"valor_atual"`
	TaxaCompra       string `json:"taxa_compra"`
	TaxaVenda        string `json:"taxa_venda"`
	SpreadPercentual string `json:"spread_percentual"`
}

// decodeTicker converts one wire row into a MarketTicker. taxa_compra is the
// buy-side (ask) price, taxa_venda the sell-side (bid). Returns false when
// any price is non-numeric or any of last/ask/bid is not strictly positive.
func decodeTicker(row marketRow) (ranking.MarketTicker, bool) {
	last, err := decimal.NewFromString(strings.TrimSpace(row.ValorAtual))
	if err != nil || !last.IsPositive() {
		return ranking.MarketTicker{}, false
	}
	ask, err := decimal.NewFromString(strings.TrimSpace(row.TaxaCompra))
	if err != nil || !ask.IsPositive() {
		return ranking.MarketTicker{}, false
	}
	bid, err := decimal.NewFromString(strings.TrimSpace(row.TaxaVenda))
	if err != nil || !bid.IsPositive() {
		return ranking.MarketTicker{}, false
	}
	spread, err := decimal.NewFromString(strings.TrimSpace(row.SpreadPercentual))
	if err != nil {
		return ranking.MarketTicker{}, false
	}

	return ranking.MarketTicker{
		MarketSymbol:  strings.TrimSpace(row.Symbol),
		BaseAsset:     row.BaseAsset,
		QuoteAsset:    ranking.NormalizeSymbol(row.QuoteAsset),
		Last:          last,
		Ask:           ask,
		Bid:           bid,
		SpreadPercent: spread,
	}, true
}

type errorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func parseHTTPError(exchange string, status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Detail != "" {
			return fmt.Errorf("market data error for %s (%d): %s", exchange, status, apiErr.Detail)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("market data error for %s (%d): %s", exchange, status, apiErr.Message)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("market data error for %s (%d): %s", exchange, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("market data error for %s (%d)", exchange, status)
}

var _ SnapshotFetcher = (*Client)(nil)
