package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"arb-ranker/internal/config"
	"arb-ranker/internal/ranking"
	"arb-ranker/internal/version"
)

// RankingProvider serves ranked payloads to the HTTP layer. The boolean
// reports whether the payload is stale (served after a total upstream
// outage).
type RankingProvider interface {
	TopAssets(ctx context.Context) (*ranking.Result, bool, error)
}

// Server exposes the ranking API over HTTP.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

type topAssetsResponse struct {
	*ranking.Result
	Stale bool `json:"stale,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New wires the gin router and returns a Server ready to run.
func New(cfg config.ServerConfig, provider RankingProvider, exchanges []string, logger zerolog.Logger) *Server {
	serverLogger := logger.With().Str("component", "http_server").Logger()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware())

	router.GET("/top-assets", topAssetsHandler(provider, serverLogger))
	router.GET("/health", healthHandler())
	router.GET("/exchanges", exchangesHandler(exchanges))

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          serverLogger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("shutting down http server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func topAssetsHandler(provider RankingProvider, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, stale, err := provider.TopAssets(c.Request.Context())
		if err != nil {
			logger.Error().Err(err).Msg("top assets request failed")
			c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "market data unavailable on every configured exchange"})
			return
		}
		c.JSON(http.StatusOK, topAssetsResponse{Result: result, Stale: stale})
	}
}

func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"version":   version.Version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func exchangesHandler(exchanges []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"exchanges": exchanges})
	}
}
