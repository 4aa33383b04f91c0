package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rkathuria/bulliond/internal/domain"
	"github.com/rkathuria/bulliond/internal/service"
)

// TradeHandler serves the trade-book endpoints: open, close, history, and
// portfolio.
type TradeHandler struct {
	trades *service.TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades *service.TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logHandler(logger, "trade"),
	}
}

type buyRequest struct {
	BuyPrice     float64 `json:"buy_price"`
	BookedProfit float64 `json:"booked_profit"`
	MinLoss      float64 `json:"min_loss"`
}

type sellRequest struct {
	TradeID   string  `json:"trade_id"`
	SellPrice float64 `json:"sell_price"`
	Reason    string  `json:"reason"`
}

// tradeJSON is the wire form of a completed trade.
type tradeJSON struct {
	TradeID       string    `json:"trade_id"`
	BuyPrice      float64   `json:"buy_price"`
	SellPrice     float64   `json:"sell_price"`
	PnL           float64   `json:"pnl"`
	PnLPercentage float64   `json:"pnl_percentage"`
	Reason        string    `json:"reason"`
	BuyTime       time.Time `json:"buy_time"`
	SellTime      time.Time `json:"sell_time"`
	TargetProfit  float64   `json:"target_profit"`
	StopLoss      float64   `json:"stop_loss"`
}

func toTradeJSON(t domain.ClosedTrade) tradeJSON {
	return tradeJSON{
		TradeID:       t.ExternalID,
		BuyPrice:      t.EntryPrice,
		SellPrice:     t.ExitPrice,
		PnL:           t.PnL,
		PnLPercentage: t.PctChange,
		Reason:        string(t.Reason),
		BuyTime:       t.OpenedAt,
		SellTime:      t.ClosedAt,
		TargetProfit:  t.ProfitTarget,
		StopLoss:      t.LossLimit,
	}
}

// activePositionJSON is the wire form of an open position in /portfolio.
type activePositionJSON struct {
	TradeID      string    `json:"trade_id"`
	BuyPrice     float64   `json:"buy_price"`
	BookedProfit float64   `json:"booked_profit"`
	MinLoss      float64   `json:"min_loss"`
	Timestamp    time.Time `json:"timestamp"`
}

// Buy opens a new position.
// POST /buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pos, err := h.trades.Open(r.Context(), req.BuyPrice, req.BookedProfit, req.MinLoss)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoPrice):
			writeError(w, http.StatusBadRequest, "invalid buy price")
		case errors.Is(err, domain.ErrInvalidThreshold):
			writeError(w, http.StatusBadRequest, "booked profit and minimum loss must be positive")
		default:
			h.logger.ErrorContext(r.Context(), "open failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to open position")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Buy order placed successfully",
		"trade_id":      pos.ExternalID,
		"buy_price":     pos.EntryPrice,
		"target_profit": pos.ProfitTarget,
		"stop_loss":     pos.LossLimit,
	})
}

// Sell closes an open position.
// POST /sell
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TradeID == "" {
		writeError(w, http.StatusBadRequest, "trade_id is required")
		return
	}

	trade, totalPnL, err := h.trades.Close(r.Context(), req.TradeID, req.SellPrice, domain.CloseReason(req.Reason))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "trade not found or already closed")
		case errors.Is(err, domain.ErrNoPrice):
			writeError(w, http.StatusBadRequest, "invalid sell price")
		default:
			h.logger.ErrorContext(r.Context(), "close failed",
				slog.String("trade_id", req.TradeID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to close position")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Position closed successfully",
		"trade":     toTradeJSON(trade),
		"total_pnl": totalPnL,
	})
}

// History returns the closed-trade ledger with summary statistics.
// GET /history
func (h *TradeHandler) History(w http.ResponseWriter, r *http.Request) {
	_ = parseListOpts(r) // reserved for pagination; history is served whole

	trades, stats, err := h.trades.History(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "history failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	out := make([]tradeJSON, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeJSON(t))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"completed_trades": out,
		"total_pnl":        stats.TotalPnL,
		"total_trades":     stats.TotalTrades,
		"winning_trades":   stats.WinningTrades,
		"losing_trades":    stats.LosingTrades,
	})
}

// Portfolio returns the open positions and cumulative realized result.
// GET /portfolio
func (h *TradeHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	active, totalPnL, err := h.trades.Portfolio(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "portfolio failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load portfolio")
		return
	}

	activeTrades := make(map[string]activePositionJSON, len(active))
	for _, pos := range active {
		activeTrades[pos.ExternalID] = activePositionJSON{
			TradeID:      pos.ExternalID,
			BuyPrice:     pos.EntryPrice,
			BookedProfit: pos.ProfitTarget,
			MinLoss:      pos.LossLimit,
			Timestamp:    pos.OpenedAt,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"active_trades":    activeTrades,
		"total_pnl":        totalPnL,
		"active_positions": len(activeTrades),
	})
}
