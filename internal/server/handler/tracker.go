package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rkathuria/bulliond/internal/domain"
	"github.com/rkathuria/bulliond/internal/feed"
	"github.com/rkathuria/bulliond/internal/notify"
	"github.com/rkathuria/bulliond/internal/tracker"
)

// TrackerHandler exposes the live position tracker over HTTP. It is only
// registered when the tracker runs in the same process as the server.
type TrackerHandler struct {
	trk     *tracker.Tracker
	monitor *feed.Monitor
	board   *notify.Board
	logger  *slog.Logger
}

// NewTrackerHandler creates a TrackerHandler.
func NewTrackerHandler(trk *tracker.Tracker, monitor *feed.Monitor, board *notify.Board, logger *slog.Logger) *TrackerHandler {
	return &TrackerHandler{
		trk:     trk,
		monitor: monitor,
		board:   board,
		logger:  logHandler(logger, "tracker"),
	}
}

type trackerOpenRequest struct {
	BookedProfit float64 `json:"booked_profit"`
	MinLoss      float64 `json:"min_loss"`
}

type trackerCloseRequest struct {
	Reason string `json:"reason"`
}

type autoRefreshRequest struct {
	Enabled bool `json:"enabled"`
}

// Open opens a position at the most recently observed price.
// POST /tracker/open
func (h *TrackerHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req trackerOpenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sample, ok := h.monitor.Current()
	if !ok {
		writeError(w, http.StatusConflict, "no price observed yet")
		return
	}

	pos, err := h.trk.Open(r.Context(), sample.Value, req.BookedProfit, req.MinLoss)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPositionOpen):
			writeError(w, http.StatusConflict, "a position is already open")
		case errors.Is(err, domain.ErrInvalidThreshold):
			writeError(w, http.StatusBadRequest, "booked profit and minimum loss must be positive")
		case errors.Is(err, domain.ErrNoPrice):
			writeError(w, http.StatusConflict, "no valid price available")
		default:
			h.logger.ErrorContext(r.Context(), "tracker open failed", slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, "order was rejected")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"trade_id":      pos.ExternalID,
		"buy_price":     pos.EntryPrice,
		"target_profit": pos.ProfitTarget,
		"stop_loss":     pos.LossLimit,
	})
}

// Close closes the open position at the most recently observed price.
// POST /tracker/close
func (h *TrackerHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req trackerCloseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reason := domain.CloseReason(req.Reason)
	if !reason.Valid() {
		reason = domain.CloseReasonManual
	}

	sample, ok := h.monitor.Current()
	if !ok {
		writeError(w, http.StatusConflict, "no price observed yet")
		return
	}

	trade, err := h.trk.Close(r.Context(), sample.Value, reason)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoOpenPosition):
			writeError(w, http.StatusConflict, "no open position")
		default:
			h.logger.ErrorContext(r.Context(), "tracker close failed", slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, "close was rejected")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"trade":   toTradeJSON(trade),
	})
}

// State returns the tracker snapshot, feed connectivity, and the live
// notification board.
// GET /tracker/state
func (h *TrackerHandler) State(w http.ResponseWriter, r *http.Request) {
	snap := h.trk.Snapshot()

	var current, previous any
	if s, ok := h.monitor.Current(); ok {
		current = s
	}
	if s, ok := h.monitor.Previous(); ok {
		previous = s
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"position":       snap,
		"connected":      h.monitor.Connected(),
		"current_price":  current,
		"previous_price": previous,
		"notifications":  h.board.List(),
	})
}

// Refresh forces an immediate price poll.
// POST /tracker/refresh
func (h *TrackerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.monitor.Refresh()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// AutoRefresh toggles the periodic poll loop.
// POST /tracker/auto-refresh
func (h *TrackerHandler) AutoRefresh(w http.ResponseWriter, r *http.Request) {
	var req autoRefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.monitor.SetAutoRefresh(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"enabled": req.Enabled,
	})
}
