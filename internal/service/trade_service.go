package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rkathuria/bulliond/internal/domain"
)

// TradeService owns the trade book: it opens positions, settles closes, and
// answers history and portfolio queries.
type TradeService struct {
	store  domain.TradeStore
	bcast  Broadcaster
	logger *slog.Logger
	now    func() time.Time
}

// NewTradeService creates a TradeService. bcast may be nil.
func NewTradeService(store domain.TradeStore, bcast Broadcaster, logger *slog.Logger) *TradeService {
	return &TradeService{
		store:  store,
		bcast:  bcast,
		logger: logger,
		now:    time.Now,
	}
}

// Open records a new position at the given entry price. Both thresholds must
// be positive.
func (s *TradeService) Open(ctx context.Context, entryPrice, profitTarget, lossLimit float64) (domain.Position, error) {
	if entryPrice <= 0 {
		return domain.Position{}, fmt.Errorf("trade_service: entry price %.2f: %w", entryPrice, domain.ErrNoPrice)
	}
	if profitTarget <= 0 || lossLimit <= 0 {
		return domain.Position{}, domain.ErrInvalidThreshold
	}

	pos := domain.Position{
		ExternalID:   uuid.NewString(),
		EntryPrice:   entryPrice,
		ProfitTarget: profitTarget,
		LossLimit:    lossLimit,
		Status:       domain.PositionStatusOpen,
		OpenedAt:     s.now().UTC(),
	}

	if err := s.store.Create(ctx, pos); err != nil {
		return domain.Position{}, fmt.Errorf("trade_service: open position: %w", err)
	}

	s.logger.InfoContext(ctx, "position opened",
		slog.String("trade_id", pos.ExternalID),
		slog.Float64("entry_price", pos.EntryPrice),
		slog.Float64("profit_target", pos.ProfitTarget),
		slog.Float64("loss_limit", pos.LossLimit),
	)

	if s.bcast != nil {
		s.bcast.Broadcast("trade_opened", pos)
	}
	return pos, nil
}

// Close settles an open position at the given exit price and returns the
// resulting trade along with the cumulative realized result. It returns
// domain.ErrNotFound when the position does not exist or is already closed.
func (s *TradeService) Close(ctx context.Context, id string, exitPrice float64, reason domain.CloseReason) (domain.ClosedTrade, float64, error) {
	if !reason.Valid() {
		reason = domain.CloseReasonManual
	}
	if exitPrice <= 0 {
		return domain.ClosedTrade{}, 0, fmt.Errorf("trade_service: exit price %.2f: %w", exitPrice, domain.ErrNoPrice)
	}

	trade, err := s.store.Close(ctx, id, exitPrice, reason, s.now().UTC())
	if err != nil {
		return domain.ClosedTrade{}, 0, fmt.Errorf("trade_service: close position %s: %w", id, err)
	}

	totalPnL, err := s.store.TotalPnL(ctx)
	if err != nil {
		return domain.ClosedTrade{}, 0, fmt.Errorf("trade_service: total pnl: %w", err)
	}

	s.logger.InfoContext(ctx, "position closed",
		slog.String("trade_id", trade.ExternalID),
		slog.Float64("exit_price", trade.ExitPrice),
		slog.Float64("pnl", trade.PnL),
		slog.String("reason", string(trade.Reason)),
	)

	if s.bcast != nil {
		s.bcast.Broadcast("trade_closed", trade)
	}
	return trade, totalPnL, nil
}

// History returns the closed-trade ledger in chronological order along with
// summary statistics.
func (s *TradeService) History(ctx context.Context) ([]domain.ClosedTrade, domain.TradeStats, error) {
	trades, err := s.store.ListClosed(ctx, domain.ListOpts{})
	if err != nil {
		return nil, domain.TradeStats{}, fmt.Errorf("trade_service: list history: %w", err)
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, domain.TradeStats{}, fmt.Errorf("trade_service: stats: %w", err)
	}
	return trades, stats, nil
}

// Portfolio returns the currently open positions and the cumulative realized
// result.
func (s *TradeService) Portfolio(ctx context.Context) ([]domain.Position, float64, error) {
	active, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("trade_service: list active: %w", err)
	}
	totalPnL, err := s.store.TotalPnL(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("trade_service: total pnl: %w", err)
	}
	return active, totalPnL, nil
}
