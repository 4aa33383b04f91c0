// Package server is the HTTP + WebSocket API surface of the bullion gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rkathuria/bulliond/internal/server/handler"
	"github.com/rkathuria/bulliond/internal/server/middleware"
	"github.com/rkathuria/bulliond/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// News and Tracker are optional and their routes are skipped when nil.
type Handlers struct {
	Health  *handler.HealthHandler
	Price   *handler.PriceHandler
	Trades  *handler.TradeHandler
	News    *handler.NewsHandler
	Tracker *handler.TrackerHandler
}

// Server is the headless HTTP + WebSocket API server for the dashboard.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux
// and the middleware chain (logging, CORS) applied.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Live rate.
	mux.HandleFunc("GET /silver-price", handlers.Price.CurrentPrice)

	// Trade book.
	mux.HandleFunc("POST /buy", handlers.Trades.Buy)
	mux.HandleFunc("POST /sell", handlers.Trades.Sell)
	mux.HandleFunc("GET /history", handlers.Trades.History)
	mux.HandleFunc("GET /portfolio", handlers.Trades.Portfolio)

	// Headlines.
	if handlers.News != nil {
		mux.HandleFunc("GET /news", handlers.News.Headlines)
	}

	// In-process tracker control.
	if handlers.Tracker != nil {
		mux.HandleFunc("POST /tracker/open", handlers.Tracker.Open)
		mux.HandleFunc("POST /tracker/close", handlers.Tracker.Close)
		mux.HandleFunc("GET /tracker/state", handlers.Tracker.State)
		mux.HandleFunc("POST /tracker/refresh", handlers.Tracker.Refresh)
		mux.HandleFunc("POST /tracker/auto-refresh", handlers.Tracker.AutoRefresh)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
