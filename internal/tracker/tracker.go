// Package tracker implements the single-position trade lifecycle: open at an
// observed price, recompute unrealized P&L on every feed tick, and close
// automatically when the profit target or stop-loss threshold is crossed.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/rkathuria/bulliond/internal/domain"
)

// OrderGateway is the boundary the tracker calls to register trades. The
// gateway is the source of truth for trade identity and realized P&L; the
// tracker's local state is a cache of "there should be an open position".
type OrderGateway interface {
	OpenPosition(ctx context.Context, entryPrice, profitTarget, lossLimit float64) (string, error)
	ClosePosition(ctx context.Context, externalID string, exitPrice float64, reason domain.CloseReason) (domain.ClosedTrade, float64, error)
	FetchHistory(ctx context.Context) ([]domain.ClosedTrade, float64, error)
}

// NotificationSink receives user-facing events on tracker transitions.
type NotificationSink interface {
	Emit(message string, kind domain.NotificationKind)
}

// Snapshot is a read-only view of the tracker for the rendering layer.
type Snapshot struct {
	Open         bool             `json:"open"`
	Position     *domain.Position `json:"position,omitempty"`
	CurrentPrice float64          `json:"current_price"`
	PnL          float64          `json:"pnl"`
	PctChange    float64          `json:"pct_change"`
}

// Tracker owns the single-position state machine. All operations serialize on
// one mutex, so an in-flight close completes or fails before another close or
// open is accepted; a duplicate close observes the idle state and fails.
type Tracker struct {
	mu        sync.Mutex
	pos       *domain.Position
	lastPrice float64

	gateway OrderGateway
	ledger  *Ledger
	sink    NotificationSink
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Tracker in the idle state.
func New(gateway OrderGateway, ledger *Ledger, sink NotificationSink, logger *slog.Logger) *Tracker {
	return &Tracker{
		gateway: gateway,
		ledger:  ledger,
		sink:    sink,
		logger:  logger.With(slog.String("component", "tracker")),
		now:     time.Now,
	}
}

// Open opens a position at the given price. It fails with ErrNoPrice when the
// price is not a finite positive number, ErrInvalidThreshold when either
// threshold is not positive, and ErrPositionOpen when a position already
// exists. On gateway failure the tracker stays idle.
func (t *Tracker) Open(ctx context.Context, price, profitTarget, lossLimit float64) (domain.Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !validPrice(price) {
		t.sink.Emit("No valid price available", domain.NotificationError)
		return domain.Position{}, domain.ErrNoPrice
	}
	if profitTarget <= 0 || lossLimit <= 0 {
		return domain.Position{}, domain.ErrInvalidThreshold
	}
	if t.pos != nil {
		return domain.Position{}, domain.ErrPositionOpen
	}

	externalID, err := t.gateway.OpenPosition(ctx, price, profitTarget, lossLimit)
	if err != nil {
		t.logger.ErrorContext(ctx, "open rejected by gateway", slog.String("error", err.Error()))
		t.sink.Emit("Order failed: "+err.Error(), domain.NotificationError)
		return domain.Position{}, fmt.Errorf("tracker: open position: %w", err)
	}

	pos := domain.Position{
		ExternalID:   externalID,
		EntryPrice:   price,
		ProfitTarget: profitTarget,
		LossLimit:    lossLimit,
		Status:       domain.PositionStatusOpen,
		OpenedAt:     t.now().UTC(),
	}
	t.pos = &pos
	t.lastPrice = price

	t.logger.InfoContext(ctx, "position opened",
		slog.String("external_id", externalID),
		slog.Float64("entry_price", price),
		slog.Float64("profit_target", profitTarget),
		slog.Float64("loss_limit", lossLimit),
	)
	t.sink.Emit("Buy order placed at "+formatINR(price), domain.NotificationSuccess)

	return pos, nil
}

// OnPriceUpdate recomputes unrealized P&L for the open position and closes it
// when a threshold is crossed. The profit check runs before the loss check and
// at most one trigger fires per update. Idle state and invalid prices are
// no-ops, so a bad feed tick can never corrupt tracker state.
func (t *Tracker) OnPriceUpdate(ctx context.Context, price float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pos == nil || !validPrice(price) {
		return
	}
	t.lastPrice = price

	pnl := price - t.pos.EntryPrice
	switch {
	case pnl >= t.pos.ProfitTarget:
		_, _ = t.closeLocked(ctx, price, domain.CloseReasonTarget)
	case pnl <= -t.pos.LossLimit:
		_, _ = t.closeLocked(ctx, price, domain.CloseReasonStopLoss)
	}
}

// Close closes the open position at the given price. It fails with
// ErrNoOpenPosition when the tracker is idle.
func (t *Tracker) Close(ctx context.Context, price float64, reason domain.CloseReason) (domain.ClosedTrade, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked(ctx, price, reason)
}

// closeLocked performs the close. Callers must hold t.mu. On gateway failure
// the position stays open so the next tick re-evaluates; exactly one
// notification is emitted per successful close, chosen by reason.
func (t *Tracker) closeLocked(ctx context.Context, price float64, reason domain.CloseReason) (domain.ClosedTrade, error) {
	if t.pos == nil {
		return domain.ClosedTrade{}, domain.ErrNoOpenPosition
	}
	if !validPrice(price) {
		return domain.ClosedTrade{}, domain.ErrNoPrice
	}

	trade, totalPnL, err := t.gateway.ClosePosition(ctx, t.pos.ExternalID, price, reason)
	if err != nil {
		t.logger.ErrorContext(ctx, "close rejected by gateway",
			slog.String("external_id", t.pos.ExternalID),
			slog.String("reason", string(reason)),
			slog.String("error", err.Error()),
		)
		t.sink.Emit("Failed to close position", domain.NotificationError)
		return domain.ClosedTrade{}, fmt.Errorf("tracker: close position: %w", err)
	}

	t.pos = nil
	t.ledger.Record(trade)

	t.logger.InfoContext(ctx, "position closed",
		slog.String("external_id", trade.ExternalID),
		slog.String("reason", string(reason)),
		slog.Float64("exit_price", trade.ExitPrice),
		slog.Float64("pnl", trade.PnL),
		slog.Float64("total_pnl", totalPnL),
	)

	switch reason {
	case domain.CloseReasonTarget:
		t.sink.Emit("Target profit reached: "+formatSignedINR(trade.PnL), domain.NotificationSuccess)
	case domain.CloseReasonStopLoss:
		t.sink.Emit("Stop loss triggered: "+formatSignedINR(trade.PnL), domain.NotificationError)
	default:
		kind := domain.NotificationSuccess
		if trade.PnL < 0 {
			kind = domain.NotificationError
		}
		t.sink.Emit("Position closed: "+formatSignedINR(trade.PnL), kind)
	}

	return trade, nil
}

// IsOpen reports whether a position is currently live.
func (t *Tracker) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos != nil
}

// Snapshot returns the current state with P&L and percentage change derived
// from the last seen price.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{CurrentPrice: t.lastPrice}
	if t.pos == nil {
		return snap
	}
	pos := *t.pos
	snap.Open = true
	snap.Position = &pos
	snap.PnL = t.lastPrice - pos.EntryPrice
	if pos.EntryPrice != 0 {
		snap.PctChange = snap.PnL / pos.EntryPrice * 100
	}
	return snap
}

// validPrice reports whether p is a finite positive number.
func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

func formatINR(v float64) string {
	return "₹" + strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSignedINR(v float64) string {
	if v < 0 {
		return "-₹" + strconv.FormatFloat(-v, 'f', -1, 64)
	}
	return "+₹" + strconv.FormatFloat(v, 'f', -1, 64)
}
