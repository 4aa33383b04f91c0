package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkathuria/bulliond/internal/domain"
	"github.com/rkathuria/bulliond/internal/tracker"
)

// scriptedSource serves a fixed sequence of samples/errors, then repeats the
// last step.
type scriptedSource struct {
	mu    sync.Mutex
	steps []func() (domain.PriceSample, error)
	calls int
}

func (s *scriptedSource) CurrentPrice(ctx context.Context) (domain.PriceSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	return s.steps[i]()
}

func (s *scriptedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func sampleStep(v float64) func() (domain.PriceSample, error) {
	return func() (domain.PriceSample, error) {
		return domain.PriceSample{Value: v, ObservedAt: time.Now()}, nil
	}
}

func errStep(err error) func() (domain.PriceSample, error) {
	return func() (domain.PriceSample, error) {
		return domain.PriceSample{}, err
	}
}

type noopGateway struct{}

func (noopGateway) OpenPosition(ctx context.Context, entryPrice, profitTarget, lossLimit float64) (string, error) {
	return "t-1", nil
}

func (noopGateway) ClosePosition(ctx context.Context, externalID string, exitPrice float64, reason domain.CloseReason) (domain.ClosedTrade, float64, error) {
	return domain.ClosedTrade{ExternalID: externalID, ExitPrice: exitPrice, Reason: reason}, 0, nil
}

func (noopGateway) FetchHistory(ctx context.Context) ([]domain.ClosedTrade, float64, error) {
	return []domain.ClosedTrade{{ExternalID: "old", PnL: 42}}, 42, nil
}

type captureSink struct {
	mu       sync.Mutex
	messages []string
}

func (s *captureSink) Emit(message string, kind domain.NotificationKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func newTestMonitor(src PriceSource, onSample func(domain.PriceSample)) (*Monitor, *tracker.Ledger, *captureSink) {
	ledger := tracker.NewLedger()
	sink := &captureSink{}
	trk := tracker.New(noopGateway{}, ledger, sink, slog.Default())
	m := NewMonitor(src, noopGateway{}, trk, ledger, sink, 20*time.Millisecond, onSample, slog.Default())
	return m, ledger, sink
}

func TestMonitorPollsImmediatelyAndOnTicks(t *testing.T) {
	src := &scriptedSource{steps: []func() (domain.PriceSample, error){sampleStep(100)}}

	var mu sync.Mutex
	var seen []float64
	m, _, _ := newTestMonitor(src, func(s domain.PriceSample) {
		mu.Lock()
		seen = append(seen, s.Value)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 3
	}, time.Second, 5*time.Millisecond)

	assert.True(t, m.Connected())
	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, 100.0, cur.Value)

	cancel()
	<-done
}

func TestMonitorSurvivesFeedErrors(t *testing.T) {
	src := &scriptedSource{steps: []func() (domain.PriceSample, error){
		sampleStep(100),
		errStep(errors.New("feed down")),
		sampleStep(105),
	}}

	m, _, sink := newTestMonitor(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()

	// First poll succeeds, second fails, third recovers. The loop keeps
	// going through the failure.
	require.Eventually(t, func() bool {
		return src.callCount() >= 3
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		cur, ok := m.Current()
		return ok && cur.Value == 105 && m.Connected()
	}, time.Second, 5*time.Millisecond)

	// The failed poll raised a connection notification.
	assert.GreaterOrEqual(t, sink.count(), 1)

	prev, ok := m.Previous()
	require.True(t, ok)
	assert.Equal(t, 100.0, prev.Value)

	cancel()
	<-done
}

func TestMonitorConnectedFlagDropsOnFailure(t *testing.T) {
	src := &scriptedSource{steps: []func() (domain.PriceSample, error){
		sampleStep(100),
		errStep(domain.ErrFeedUnavailable),
	}}

	m, _, _ := newTestMonitor(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return src.callCount() >= 2 && !m.Connected()
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestMonitorRehydratesLedger(t *testing.T) {
	src := &scriptedSource{steps: []func() (domain.PriceSample, error){sampleStep(100)}}
	m, ledger, _ := newTestMonitor(src, nil)

	m.Rehydrate(context.Background())

	entries, total := ledger.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "old", entries[0].ExternalID)
	assert.InDelta(t, 42, total, 1e-9)
}

func TestMonitorManualRefresh(t *testing.T) {
	src := &scriptedSource{steps: []func() (domain.PriceSample, error){sampleStep(100)}}
	// Long interval so only the initial poll and manual refreshes count.
	ledger := tracker.NewLedger()
	sink := &captureSink{}
	trk := tracker.New(noopGateway{}, ledger, sink, slog.Default())
	m := NewMonitor(src, nil, trk, ledger, sink, time.Hour, nil, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return src.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	m.Refresh()
	require.Eventually(t, func() bool {
		return src.callCount() == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestMonitorAutoRefreshToggle(t *testing.T) {
	src := &scriptedSource{steps: []func() (domain.PriceSample, error){sampleStep(100)}}
	m, _, _ := newTestMonitor(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return src.callCount() >= 2
	}, time.Second, 5*time.Millisecond)

	m.SetAutoRefresh(false)
	// Allow in-flight polls to finish, then the count should freeze.
	time.Sleep(60 * time.Millisecond)
	frozen := src.callCount()
	time.Sleep(100 * time.Millisecond)
	assert.InDelta(t, frozen, src.callCount(), 1)

	m.SetAutoRefresh(true)
	require.Eventually(t, func() bool {
		return src.callCount() > frozen+1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
