package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"arb-ranker/internal/ranking"
)

type stubProvider struct {
	result *ranking.Result
	stale  bool
	err    error
}

func (p *stubProvider) TopAssets(ctx context.Context) (*ranking.Result, bool, error) {
	return p.result, p.stale, p.err
}

func testRouter(provider RankingProvider, exchanges []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(corsMiddleware())
	router.GET("/top-assets", topAssetsHandler(provider, zerolog.Nop()))
	router.GET("/health", healthHandler())
	router.GET("/exchanges", exchangesHandler(exchanges))
	return router
}

func TestTopAssetsEndpoint(t *testing.T) {
	provider := &stubProvider{
		result: &ranking.Result{
			GeneratedAt: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
			Total:       1,
			Assets:      []ranking.RankedAsset{{ID: "btc", Rank: 1, Symbol: "BTC", Name: "Bitcoin", Available: true}},
		},
	}

	router := testRouter(provider, []string{"binance"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/top-assets", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		GeneratedAt time.Time         `json:"generatedAt"`
		Total       int               `json:"total"`
		Assets      []json.RawMessage `json:"assets"`
		Stale       *bool             `json:"stale"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Total != 1 || len(payload.Assets) != 1 {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
	if payload.Stale != nil {
		t.Fatalf("fresh payload must omit the stale flag: %s", rec.Body.String())
	}
}

func TestTopAssetsEndpointFlagsStale(t *testing.T) {
	provider := &stubProvider{
		result: &ranking.Result{GeneratedAt: time.Now().UTC(), Total: 0, Assets: []ranking.RankedAsset{}},
		stale:  true,
	}

	router := testRouter(provider, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/top-assets", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stale, _ := payload["stale"].(bool); !stale {
		t.Fatalf("stale payload must carry stale=true: %s", rec.Body.String())
	}
}

func TestTopAssetsEndpointTotalOutage(t *testing.T) {
	provider := &stubProvider{err: errors.New("every exchange failed")}

	router := testRouter(provider, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/top-assets", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var payload errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error == "" {
		t.Fatal("error body must explain the outage")
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(&stubProvider{}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestExchangesEndpoint(t *testing.T) {
	router := testRouter(&stubProvider{}, []string{"binance", "kraken"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exchanges", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Exchanges []string `json:"exchanges"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Exchanges) != 2 {
		t.Fatalf("unexpected exchanges: %v", payload.Exchanges)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := testRouter(&stubProvider{}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/top-assets", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("preflight must set CORS headers")
	}
}
