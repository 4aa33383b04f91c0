package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// TradeStats summarizes the closed-trade history.
type TradeStats struct {
	TotalTrades   int64
	WinningTrades int64
	LosingTrades  int64
	TotalPnL      float64
}

// TradeStore persists positions and the closed-trade history. It is owned by
// the gateway server; the tracker only ever sees it through the HTTP API.
type TradeStore interface {
	Create(ctx context.Context, pos Position) error
	GetByID(ctx context.Context, id string) (Position, error)
	ListActive(ctx context.Context) ([]Position, error)
	// Close marks an open position closed and returns the resulting trade.
	// It returns ErrNotFound when the position does not exist or is already
	// closed.
	Close(ctx context.Context, id string, exitPrice float64, reason CloseReason, closedAt time.Time) (ClosedTrade, error)
	ListClosed(ctx context.Context, opts ListOpts) ([]ClosedTrade, error)
	// ListClosedBefore returns closed trades whose close time is strictly
	// before the cutoff. Used by the archiver.
	ListClosedBefore(ctx context.Context, before time.Time) ([]ClosedTrade, error)
	TotalPnL(ctx context.Context) (float64, error)
	Stats(ctx context.Context) (TradeStats, error)
}
