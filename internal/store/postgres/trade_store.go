package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rkathuria/bulliond/internal/domain"
)

// TradeStore implements domain.TradeStore backed by the trades table.
type TradeStore struct {
	client *Client
}

var _ domain.TradeStore = (*TradeStore)(nil)

// NewTradeStore creates a trade store using the given client.
func NewTradeStore(client *Client) *TradeStore {
	return &TradeStore{client: client}
}

// Create inserts a new open position.
func (s *TradeStore) Create(ctx context.Context, pos domain.Position) error {
	const q = `
		INSERT INTO trades (id, entry_price, profit_target, loss_limit, status, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.client.Pool().Exec(ctx, q,
		pos.ExternalID, pos.EntryPrice, pos.ProfitTarget, pos.LossLimit,
		string(domain.PositionStatusOpen), pos.OpenedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create trade: %w", err)
	}
	return nil
}

// GetByID returns the open position with the given id. It returns
// domain.ErrNotFound when no open position matches.
func (s *TradeStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	const q = `
		SELECT id, entry_price, profit_target, loss_limit, status, opened_at
		FROM trades
		WHERE id = $1 AND status = 'open'`

	var pos domain.Position
	var status string
	err := s.client.Pool().QueryRow(ctx, q, id).Scan(
		&pos.ExternalID, &pos.EntryPrice, &pos.ProfitTarget, &pos.LossLimit,
		&status, &pos.OpenedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get trade %s: %w", id, err)
	}
	pos.Status = domain.PositionStatus(status)
	return pos, nil
}

// ListActive returns all open positions ordered by open time.
func (s *TradeStore) ListActive(ctx context.Context) ([]domain.Position, error) {
	const q = `
		SELECT id, entry_price, profit_target, loss_limit, status, opened_at
		FROM trades
		WHERE status = 'open'
		ORDER BY opened_at`

	rows, err := s.client.Pool().Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active trades: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var pos domain.Position
		var status string
		if err := rows.Scan(
			&pos.ExternalID, &pos.EntryPrice, &pos.ProfitTarget, &pos.LossLimit,
			&status, &pos.OpenedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan active trade: %w", err)
		}
		pos.Status = domain.PositionStatus(status)
		out = append(out, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list active trades: %w", err)
	}
	return out, nil
}

// Close marks an open position closed, computes its realized result, and
// returns the resulting trade. It returns domain.ErrNotFound when the
// position does not exist or is already closed.
func (s *TradeStore) Close(ctx context.Context, id string, exitPrice float64, reason domain.CloseReason, closedAt time.Time) (domain.ClosedTrade, error) {
	const q = `
		UPDATE trades
		SET status = 'closed',
		    exit_price = $2,
		    pnl = $2 - entry_price,
		    pct_change = ($2 - entry_price) / entry_price * 100,
		    reason = $3,
		    closed_at = $4
		WHERE id = $1 AND status = 'open'
		RETURNING id, entry_price, exit_price, pnl, pct_change, reason,
		          profit_target, loss_limit, opened_at, closed_at`

	var trade domain.ClosedTrade
	var r string
	err := s.client.Pool().QueryRow(ctx, q, id, exitPrice, string(reason), closedAt).Scan(
		&trade.ExternalID, &trade.EntryPrice, &trade.ExitPrice, &trade.PnL,
		&trade.PctChange, &r, &trade.ProfitTarget, &trade.LossLimit,
		&trade.OpenedAt, &trade.ClosedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ClosedTrade{}, domain.ErrNotFound
		}
		return domain.ClosedTrade{}, fmt.Errorf("postgres: close trade %s: %w", id, err)
	}
	trade.Reason = domain.CloseReason(r)
	return trade, nil
}

const closedTradeColumns = `
	id, entry_price, exit_price, pnl, pct_change, reason,
	profit_target, loss_limit, opened_at, closed_at`

func scanClosedTrades(rows pgx.Rows) ([]domain.ClosedTrade, error) {
	defer rows.Close()

	var out []domain.ClosedTrade
	for rows.Next() {
		var trade domain.ClosedTrade
		var reason string
		if err := rows.Scan(
			&trade.ExternalID, &trade.EntryPrice, &trade.ExitPrice, &trade.PnL,
			&trade.PctChange, &reason, &trade.ProfitTarget, &trade.LossLimit,
			&trade.OpenedAt, &trade.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan closed trade: %w", err)
		}
		trade.Reason = domain.CloseReason(reason)
		out = append(out, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate closed trades: %w", err)
	}
	return out, nil
}

// ListClosed returns closed trades in chronological order.
func (s *TradeStore) ListClosed(ctx context.Context, opts domain.ListOpts) ([]domain.ClosedTrade, error) {
	q := `
		SELECT ` + closedTradeColumns + `
		FROM trades
		WHERE status = 'closed'
		ORDER BY closed_at`

	args := []any{}
	if opts.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		q += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}

	rows, err := s.client.Pool().Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list closed trades: %w", err)
	}
	return scanClosedTrades(rows)
}

// ListClosedBefore returns closed trades whose close time is strictly before
// the cutoff.
func (s *TradeStore) ListClosedBefore(ctx context.Context, before time.Time) ([]domain.ClosedTrade, error) {
	q := `
		SELECT ` + closedTradeColumns + `
		FROM trades
		WHERE status = 'closed' AND closed_at < $1
		ORDER BY closed_at`

	rows, err := s.client.Pool().Query(ctx, q, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list closed trades before %s: %w", before, err)
	}
	return scanClosedTrades(rows)
}

// TotalPnL returns the sum of realized results across all closed trades.
func (s *TradeStore) TotalPnL(ctx context.Context) (float64, error) {
	const q = `SELECT COALESCE(SUM(pnl), 0) FROM trades WHERE status = 'closed'`

	var total float64
	if err := s.client.Pool().QueryRow(ctx, q).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres: total pnl: %w", err)
	}
	return total, nil
}

// Stats summarizes the closed-trade history.
func (s *TradeStore) Stats(ctx context.Context) (domain.TradeStats, error) {
	const q = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE pnl > 0),
		       COUNT(*) FILTER (WHERE pnl < 0),
		       COALESCE(SUM(pnl), 0)
		FROM trades
		WHERE status = 'closed'`

	var stats domain.TradeStats
	err := s.client.Pool().QueryRow(ctx, q).Scan(
		&stats.TotalTrades, &stats.WinningTrades, &stats.LosingTrades, &stats.TotalPnL,
	)
	if err != nil {
		return domain.TradeStats{}, fmt.Errorf("postgres: trade stats: %w", err)
	}
	return stats, nil
}
