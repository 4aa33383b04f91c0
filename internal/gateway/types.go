package gateway

import (
	"time"

	"github.com/rkathuria/bulliond/internal/domain"
)

// openRequest is the wire format of POST /buy.
type openRequest struct {
	BuyPrice     float64 `json:"buy_price"`
	BookedProfit float64 `json:"booked_profit"`
	MinLoss      float64 `json:"min_loss"`
}

// openResponse is the wire format of the /buy response.
type openResponse struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	TradeID      string  `json:"trade_id"`
	BuyPrice     float64 `json:"buy_price"`
	TargetProfit float64 `json:"target_profit"`
	StopLoss     float64 `json:"stop_loss"`
}

// closeRequest is the wire format of POST /sell.
type closeRequest struct {
	TradeID   string  `json:"trade_id"`
	SellPrice float64 `json:"sell_price"`
	Reason    string  `json:"reason"`
}

// APITrade is a completed trade as returned by the gateway API.
type APITrade struct {
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

// ToDomainTrade converts the API representation into a domain ClosedTrade.
func (t APITrade) ToDomainTrade() domain.ClosedTrade {
	return domain.ClosedTrade{
		ExternalID:   t.TradeID,
		EntryPrice:   t.BuyPrice,
		ExitPrice:    t.SellPrice,
		PnL:          t.PnL,
		PctChange:    t.PnLPercentage,
		Reason:       domain.CloseReason(t.Reason),
		ProfitTarget: t.TargetProfit,
		LossLimit:    t.StopLoss,
		OpenedAt:     t.BuyTime,
		ClosedAt:     t.SellTime,
	}
}

// closeResponse is the wire format of the /sell response.
type closeResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Trade    APITrade `json:"trade"`
	TotalPnL float64  `json:"total_pnl"`
}

// historyResponse is the wire format of GET /history.
type historyResponse struct {
	CompletedTrades []APITrade `json:"completed_trades"`
	TotalPnL        float64    `json:"total_pnl"`
	TotalTrades     int64      `json:"total_trades"`
	WinningTrades   int64      `json:"winning_trades"`
	LosingTrades    int64      `json:"losing_trades"`
}

// APIActivePosition is an open position as returned by GET /portfolio.
type APIActivePosition struct {
	TradeID      string    `json:"trade_id"`
	BuyPrice     float64   `json:"buy_price"`
	BookedProfit float64   `json:"booked_profit"`
	MinLoss      float64   `json:"min_loss"`
	Timestamp    time.Time `json:"timestamp"`
}

// ToDomainPosition converts the API representation into a domain Position.
func (p APIActivePosition) ToDomainPosition() domain.Position {
	return domain.Position{
		ExternalID:   p.TradeID,
		EntryPrice:   p.BuyPrice,
		ProfitTarget: p.BookedProfit,
		LossLimit:    p.MinLoss,
		Status:       domain.PositionStatusOpen,
		OpenedAt:     p.Timestamp,
	}
}

// Portfolio is the decoded GET /portfolio response.
type Portfolio struct {
	Active   []domain.Position
	TotalPnL float64
}

// portfolioResponse is the wire format of GET /portfolio.
type portfolioResponse struct {
	ActiveTrades    map[string]APIActivePosition `json:"active_trades"`
	TotalPnL        float64                      `json:"total_pnl"`
	ActivePositions int                          `json:"active_positions"`
}

// errorResponse is the wire format of any gateway error payload.
type errorResponse struct {
	Error string `json:"error"`
}
