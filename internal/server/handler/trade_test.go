package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkathuria/bulliond/internal/domain"
	"github.com/rkathuria/bulliond/internal/service"
)

// memStore is an in-memory TradeStore for handler tests.
type memStore struct {
	open   map[string]domain.Position
	closed []domain.ClosedTrade
}

func newMemStore() *memStore {
	return &memStore{open: make(map[string]domain.Position)}
}

func (m *memStore) Create(_ context.Context, pos domain.Position) error {
	m.open[pos.ExternalID] = pos
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (domain.Position, error) {
	pos, ok := m.open[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

func (m *memStore) ListActive(_ context.Context) ([]domain.Position, error) {
	out := make([]domain.Position, 0, len(m.open))
	for _, pos := range m.open {
		out = append(out, pos)
	}
	return out, nil
}

func (m *memStore) Close(_ context.Context, id string, exitPrice float64, reason domain.CloseReason, closedAt time.Time) (domain.ClosedTrade, error) {
	pos, ok := m.open[id]
	if !ok {
		return domain.ClosedTrade{}, domain.ErrNotFound
	}
	delete(m.open, id)
	trade := domain.ClosedTrade{
		ExternalID:   pos.ExternalID,
		EntryPrice:   pos.EntryPrice,
		ExitPrice:    exitPrice,
		PnL:          exitPrice - pos.EntryPrice,
		PctChange:    (exitPrice - pos.EntryPrice) / pos.EntryPrice * 100,
		Reason:       reason,
		ProfitTarget: pos.ProfitTarget,
		LossLimit:    pos.LossLimit,
		OpenedAt:     pos.OpenedAt,
		ClosedAt:     closedAt,
	}
	m.closed = append(m.closed, trade)
	return trade, nil
}

func (m *memStore) ListClosed(_ context.Context, _ domain.ListOpts) ([]domain.ClosedTrade, error) {
	return append([]domain.ClosedTrade(nil), m.closed...), nil
}

func (m *memStore) ListClosedBefore(_ context.Context, before time.Time) ([]domain.ClosedTrade, error) {
	var out []domain.ClosedTrade
	for _, t := range m.closed {
		if t.ClosedAt.Before(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) TotalPnL(_ context.Context) (float64, error) {
	var total float64
	for _, t := range m.closed {
		total += t.PnL
	}
	return total, nil
}

func (m *memStore) Stats(_ context.Context) (domain.TradeStats, error) {
	stats := domain.TradeStats{TotalTrades: int64(len(m.closed))}
	for _, t := range m.closed {
		stats.TotalPnL += t.PnL
		if t.PnL > 0 {
			stats.WinningTrades++
		} else if t.PnL < 0 {
			stats.LosingTrades++
		}
	}
	return stats, nil
}

var _ domain.TradeStore = (*memStore)(nil)

func newTradeHandler(t *testing.T) (*TradeHandler, *memStore) {
	t.Helper()
	store := newMemStore()
	logger := slog.Default()
	svc := service.NewTradeService(store, nil, logger)
	return NewTradeHandler(svc, logger), store
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestBuyOpensPosition(t *testing.T) {
	h, store := newTradeHandler(t)

	rec := postJSON(t, h.Buy, map[string]any{
		"buy_price":     1000.0,
		"booked_profit": 50.0,
		"min_loss":      30.0,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["trade_id"])
	assert.Equal(t, 1000.0, body["buy_price"])
	assert.Equal(t, 50.0, body["target_profit"])
	assert.Equal(t, 30.0, body["stop_loss"])
	assert.Len(t, store.open, 1)
}

func TestBuyRejectsBadInput(t *testing.T) {
	h, store := newTradeHandler(t)

	rec := postJSON(t, h.Buy, map[string]any{"buy_price": 0.0, "booked_profit": 50.0, "min_loss": 30.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.Buy, map[string]any{"buy_price": 1000.0, "booked_profit": -1.0, "min_loss": 30.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec = httptest.NewRecorder()
	h.Buy(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, store.open)
}

func TestSellClosesPosition(t *testing.T) {
	h, store := newTradeHandler(t)

	rec := postJSON(t, h.Buy, map[string]any{"buy_price": 1000.0, "booked_profit": 50.0, "min_loss": 30.0})
	require.Equal(t, http.StatusOK, rec.Code)
	tradeID := decodeBody(t, rec)["trade_id"].(string)

	rec = postJSON(t, h.Sell, map[string]any{"trade_id": tradeID, "sell_price": 1060.0, "reason": "target"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 60.0, body["total_pnl"])

	trade := body["trade"].(map[string]any)
	assert.Equal(t, tradeID, trade["trade_id"])
	assert.Equal(t, 60.0, trade["pnl"])
	assert.Equal(t, 6.0, trade["pnl_percentage"])
	assert.Equal(t, "target", trade["reason"])

	assert.Empty(t, store.open)
	assert.Len(t, store.closed, 1)
}

func TestSellUnknownTrade(t *testing.T) {
	h, _ := newTradeHandler(t)

	rec := postJSON(t, h.Sell, map[string]any{"trade_id": "missing", "sell_price": 1060.0, "reason": "manual"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "trade not found or already closed", body["message"])
}

func TestSellRequiresTradeID(t *testing.T) {
	h, _ := newTradeHandler(t)

	rec := postJSON(t, h.Sell, map[string]any{"sell_price": 1060.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSellInvalidReasonFallsBackToManual(t *testing.T) {
	h, store := newTradeHandler(t)

	rec := postJSON(t, h.Buy, map[string]any{"buy_price": 1000.0, "booked_profit": 50.0, "min_loss": 30.0})
	tradeID := decodeBody(t, rec)["trade_id"].(string)

	rec = postJSON(t, h.Sell, map[string]any{"trade_id": tradeID, "sell_price": 990.0, "reason": "whatever"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, store.closed, 1)
	assert.Equal(t, domain.CloseReasonManual, store.closed[0].Reason)
}

func TestHistory(t *testing.T) {
	h, _ := newTradeHandler(t)

	for _, tc := range []struct{ buy, sell float64 }{
		{1000, 1055},
		{1050, 1010},
	} {
		rec := postJSON(t, h.Buy, map[string]any{"buy_price": tc.buy, "booked_profit": 50.0, "min_loss": 30.0})
		tradeID := decodeBody(t, rec)["trade_id"].(string)
		rec = postJSON(t, h.Sell, map[string]any{"trade_id": tradeID, "sell_price": tc.sell, "reason": "manual"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rec := httptest.NewRecorder()
	h.History(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, 15.0, body["total_pnl"])
	assert.Equal(t, 2.0, body["total_trades"])
	assert.Equal(t, 1.0, body["winning_trades"])
	assert.Equal(t, 1.0, body["losing_trades"])
	assert.Len(t, body["completed_trades"], 2)
}

func TestPortfolio(t *testing.T) {
	h, _ := newTradeHandler(t)

	rec := postJSON(t, h.Buy, map[string]any{"buy_price": 1000.0, "booked_profit": 50.0, "min_loss": 30.0})
	tradeID := decodeBody(t, rec)["trade_id"].(string)

	req := httptest.NewRequest(http.MethodGet, "/portfolio", nil)
	rec = httptest.NewRecorder()
	h.Portfolio(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, 1.0, body["active_positions"])
	assert.Equal(t, 0.0, body["total_pnl"])

	active := body["active_trades"].(map[string]any)
	require.Contains(t, active, tradeID)
	pos := active[tradeID].(map[string]any)
	assert.Equal(t, 1000.0, pos["buy_price"])
	assert.Equal(t, 50.0, pos["booked_profit"])
	assert.Equal(t, 30.0, pos["min_loss"])
}
