package handler

import (
	"log/slog"
	"net/http"

	"github.com/rkathuria/bulliond/internal/news"
)

// NewsHandler serves bullion-market headlines.
type NewsHandler struct {
	svc    *news.Service
	logger *slog.Logger
}

// NewNewsHandler creates a NewsHandler.
func NewNewsHandler(svc *news.Service, logger *slog.Logger) *NewsHandler {
	return &NewsHandler{
		svc:    svc,
		logger: logHandler(logger, "news"),
	}
}

// Headlines returns the latest market headlines.
// GET /news
func (h *NewsHandler) Headlines(w http.ResponseWriter, r *http.Request) {
	articles, err := h.svc.Headlines(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "headlines fetch failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch news")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}
