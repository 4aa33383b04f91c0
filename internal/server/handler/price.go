package handler

import (
	"log/slog"
	"net/http"

	"github.com/rkathuria/bulliond/internal/service"
)

// PriceHandler serves the live bullion rate.
type PriceHandler struct {
	prices *service.PriceService
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler.
func NewPriceHandler(prices *service.PriceService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{
		prices: prices,
		logger: logHandler(logger, "price"),
	}
}

// CurrentPrice returns the latest dealer rate. When no rate is available the
// response carries "--" so the dashboard can show a placeholder, matching the
// shape its poll loop expects.
// GET /silver-price
func (h *PriceHandler) CurrentPrice(w http.ResponseWriter, r *http.Request) {
	sample, err := h.prices.CurrentPrice(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "rate lookup failed",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusOK, map[string]any{"currVal": "--"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"currVal":   sample.Value,
		"timestamp": sample.ObservedAt.UTC(),
	})
}
