package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkathuria/bulliond/internal/domain"
)

// fakeGateway records calls and settles closes locally so tests can assert
// the full lifecycle without a server.
type fakeGateway struct {
	openErr  error
	closeErr error

	opens  int
	closes int

	lastCloseReason domain.CloseReason
	totalPnL        float64
}

func (g *fakeGateway) OpenPosition(ctx context.Context, entryPrice, profitTarget, lossLimit float64) (string, error) {
	g.opens++
	if g.openErr != nil {
		return "", g.openErr
	}
	return fmt.Sprintf("trade-%d", g.opens), nil
}

func (g *fakeGateway) ClosePosition(ctx context.Context, externalID string, exitPrice float64, reason domain.CloseReason) (domain.ClosedTrade, float64, error) {
	g.closes++
	if g.closeErr != nil {
		return domain.ClosedTrade{}, 0, g.closeErr
	}
	g.lastCloseReason = reason
	return domain.ClosedTrade{
		ExternalID: externalID,
		ExitPrice:  exitPrice,
		Reason:     reason,
	}, g.totalPnL, nil
}

func (g *fakeGateway) FetchHistory(ctx context.Context) ([]domain.ClosedTrade, float64, error) {
	return nil, 0, nil
}

type recordedNotification struct {
	message string
	kind    domain.NotificationKind
}

type fakeSink struct {
	emitted []recordedNotification
}

func (s *fakeSink) Emit(message string, kind domain.NotificationKind) {
	s.emitted = append(s.emitted, recordedNotification{message: message, kind: kind})
}

// last returns the most recently emitted notification.
func (s *fakeSink) last() recordedNotification {
	return s.emitted[len(s.emitted)-1]
}

func newTestTracker(gw OrderGateway) (*Tracker, *Ledger, *fakeSink) {
	ledger := NewLedger()
	sink := &fakeSink{}
	trk := New(gw, ledger, sink, slog.Default())
	return trk, ledger, sink
}

// pnlGateway computes realistic pnl server-side like the real gateway does.
type pnlGateway struct {
	fakeGateway
	entry float64
}

func (g *pnlGateway) OpenPosition(ctx context.Context, entryPrice, profitTarget, lossLimit float64) (string, error) {
	g.entry = entryPrice
	return g.fakeGateway.OpenPosition(ctx, entryPrice, profitTarget, lossLimit)
}

func (g *pnlGateway) ClosePosition(ctx context.Context, externalID string, exitPrice float64, reason domain.CloseReason) (domain.ClosedTrade, float64, error) {
	trade, total, err := g.fakeGateway.ClosePosition(ctx, externalID, exitPrice, reason)
	if err != nil {
		return trade, total, err
	}
	trade.EntryPrice = g.entry
	trade.PnL = exitPrice - g.entry
	if g.entry != 0 {
		trade.PctChange = trade.PnL / g.entry * 100
	}
	return trade, total, nil
}

func TestOpenAndTargetClose(t *testing.T) {
	gw := &pnlGateway{}
	trk, ledger, sink := newTestTracker(gw)

	ctx := context.Background()

	pos, err := trk.Open(ctx, 1000, 50, 30)
	require.NoError(t, err)
	assert.Equal(t, "trade-1", pos.ExternalID)
	assert.True(t, trk.IsOpen())
	assert.Equal(t, domain.NotificationSuccess, sink.last().kind)

	// Below the target: stays open.
	trk.OnPriceUpdate(ctx, 1049)
	assert.True(t, trk.IsOpen())
	assert.Equal(t, 0, gw.closes)

	// At the target: closes as target.
	trk.OnPriceUpdate(ctx, 1055)
	assert.False(t, trk.IsOpen())
	assert.Equal(t, 1, gw.closes)
	assert.Equal(t, domain.CloseReasonTarget, gw.lastCloseReason)

	entries, total := ledger.Snapshot()
	require.Len(t, entries, 1)
	assert.InDelta(t, 55, entries[0].PnL, 1e-9)
	assert.InDelta(t, 55, total, 1e-9)

	assert.Equal(t, domain.NotificationSuccess, sink.last().kind)
	assert.Contains(t, sink.last().message, "Target profit reached")
}

func TestStopLossClose(t *testing.T) {
	gw := &pnlGateway{}
	trk, ledger, sink := newTestTracker(gw)

	ctx := context.Background()

	_, err := trk.Open(ctx, 2000, 100, 50)
	require.NoError(t, err)

	trk.OnPriceUpdate(ctx, 1945)
	assert.False(t, trk.IsOpen())
	assert.Equal(t, domain.CloseReasonStopLoss, gw.lastCloseReason)

	entries, _ := ledger.Snapshot()
	require.Len(t, entries, 1)
	assert.InDelta(t, -55, entries[0].PnL, 1e-9)

	assert.Equal(t, domain.NotificationError, sink.last().kind)
	assert.Contains(t, sink.last().message, "Stop loss triggered")
}

func TestProfitCheckPrecedence(t *testing.T) {
	// Thresholds chosen so a single tick satisfies both checks; the profit
	// branch must win.
	gw := &pnlGateway{}
	trk, _, _ := newTestTracker(gw)

	ctx := context.Background()
	_, err := trk.Open(ctx, 1000, 1, 1)
	require.NoError(t, err)

	trk.OnPriceUpdate(ctx, 1100)
	assert.Equal(t, domain.CloseReasonTarget, gw.lastCloseReason)
	assert.Equal(t, 1, gw.closes)
}

func TestManualClose(t *testing.T) {
	gw := &pnlGateway{}
	trk, _, sink := newTestTracker(gw)

	ctx := context.Background()
	_, err := trk.Open(ctx, 1000, 500, 300)
	require.NoError(t, err)

	trade, err := trk.Close(ctx, 1010, domain.CloseReasonManual)
	require.NoError(t, err)
	assert.InDelta(t, 10, trade.PnL, 1e-9)
	assert.False(t, trk.IsOpen())

	// Positive manual close is a success notification.
	assert.Equal(t, domain.NotificationSuccess, sink.last().kind)
	assert.Contains(t, sink.last().message, "Position closed")
}

func TestManualCloseAtLossUsesErrorKind(t *testing.T) {
	gw := &pnlGateway{}
	trk, _, sink := newTestTracker(gw)

	ctx := context.Background()
	_, err := trk.Open(ctx, 1000, 500, 300)
	require.NoError(t, err)

	_, err = trk.Close(ctx, 990, domain.CloseReasonManual)
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationError, sink.last().kind)
}

func TestOpenWhileOpenFails(t *testing.T) {
	gw := &fakeGateway{}
	trk, _, _ := newTestTracker(gw)

	ctx := context.Background()
	_, err := trk.Open(ctx, 1000, 50, 30)
	require.NoError(t, err)

	_, err = trk.Open(ctx, 1001, 50, 30)
	assert.ErrorIs(t, err, domain.ErrPositionOpen)
	assert.Equal(t, 1, gw.opens)
}

func TestDuplicateCloseFails(t *testing.T) {
	gw := &fakeGateway{}
	trk, ledger, _ := newTestTracker(gw)

	ctx := context.Background()
	_, err := trk.Open(ctx, 1000, 50, 30)
	require.NoError(t, err)

	_, err = trk.Close(ctx, 1010, domain.CloseReasonManual)
	require.NoError(t, err)

	_, err = trk.Close(ctx, 1010, domain.CloseReasonManual)
	assert.ErrorIs(t, err, domain.ErrNoOpenPosition)

	// The history did not record twice.
	assert.Equal(t, 1, ledger.Len())
	assert.Equal(t, 1, gw.closes)
}

func TestOpenValidation(t *testing.T) {
	gw := &fakeGateway{}
	trk, _, sink := newTestTracker(gw)
	ctx := context.Background()

	_, err := trk.Open(ctx, 0, 50, 30)
	assert.ErrorIs(t, err, domain.ErrNoPrice)
	assert.Equal(t, domain.NotificationError, sink.last().kind)

	_, err = trk.Open(ctx, math.NaN(), 50, 30)
	assert.ErrorIs(t, err, domain.ErrNoPrice)

	_, err = trk.Open(ctx, 1000, 0, 30)
	assert.ErrorIs(t, err, domain.ErrInvalidThreshold)

	_, err = trk.Open(ctx, 1000, 50, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidThreshold)

	assert.Equal(t, 0, gw.opens)
	assert.False(t, trk.IsOpen())
}

func TestOpenGatewayFailureStaysIdle(t *testing.T) {
	gw := &fakeGateway{openErr: errors.New("boom")}
	trk, _, sink := newTestTracker(gw)

	_, err := trk.Open(context.Background(), 1000, 50, 30)
	require.Error(t, err)
	assert.False(t, trk.IsOpen())
	assert.Equal(t, domain.NotificationError, sink.last().kind)
	assert.Contains(t, sink.last().message, "Order failed")
}

func TestCloseGatewayFailureStaysOpen(t *testing.T) {
	gw := &fakeGateway{}
	trk, ledger, sink := newTestTracker(gw)
	ctx := context.Background()

	_, err := trk.Open(ctx, 1000, 50, 30)
	require.NoError(t, err)

	gw.closeErr = errors.New("gateway down")
	_, err = trk.Close(ctx, 1010, domain.CloseReasonManual)
	require.Error(t, err)

	// Position survives the failed close and the ledger is untouched.
	assert.True(t, trk.IsOpen())
	assert.Equal(t, 0, ledger.Len())
	assert.Equal(t, "Failed to close position", sink.last().message)

	// A later tick still evaluates thresholds once the gateway recovers.
	gw.closeErr = nil
	trk.OnPriceUpdate(ctx, 1055)
	assert.False(t, trk.IsOpen())
}

func TestInvalidTickIsIgnored(t *testing.T) {
	gw := &fakeGateway{}
	trk, _, _ := newTestTracker(gw)
	ctx := context.Background()

	_, err := trk.Open(ctx, 1000, 50, 30)
	require.NoError(t, err)

	trk.OnPriceUpdate(ctx, math.NaN())
	trk.OnPriceUpdate(ctx, -5)
	trk.OnPriceUpdate(ctx, 0)
	assert.True(t, trk.IsOpen())
	assert.Equal(t, 0, gw.closes)

	snap := trk.Snapshot()
	assert.Equal(t, 1000.0, snap.CurrentPrice)
}

func TestTickWhileIdleIsNoOp(t *testing.T) {
	gw := &fakeGateway{}
	trk, _, sink := newTestTracker(gw)

	trk.OnPriceUpdate(context.Background(), 1234)
	assert.Empty(t, sink.emitted)
	assert.Equal(t, 0, gw.closes)
}

func TestExactlyOneNotificationPerClose(t *testing.T) {
	gw := &pnlGateway{}
	trk, _, sink := newTestTracker(gw)

	ctx := context.Background()
	_, err := trk.Open(ctx, 1000, 50, 30)
	require.NoError(t, err)
	openCount := len(sink.emitted)

	trk.OnPriceUpdate(ctx, 1055)
	assert.Equal(t, openCount+1, len(sink.emitted))
}

func TestSnapshot(t *testing.T) {
	gw := &fakeGateway{}
	trk, _, _ := newTestTracker(gw)
	ctx := context.Background()

	snap := trk.Snapshot()
	assert.False(t, snap.Open)
	assert.Nil(t, snap.Position)

	_, err := trk.Open(ctx, 1000, 500, 300)
	require.NoError(t, err)
	trk.OnPriceUpdate(ctx, 1020)

	snap = trk.Snapshot()
	require.True(t, snap.Open)
	assert.Equal(t, 1020.0, snap.CurrentPrice)
	assert.InDelta(t, 20, snap.PnL, 1e-9)
	assert.InDelta(t, 2, snap.PctChange, 1e-9)
}
