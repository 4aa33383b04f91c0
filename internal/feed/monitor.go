package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rkathuria/bulliond/internal/domain"
	"github.com/rkathuria/bulliond/internal/tracker"
)

// PriceSource supplies the latest price on demand.
type PriceSource interface {
	CurrentPrice(ctx context.Context) (domain.PriceSample, error)
}

// HistorySource supplies the authoritative closed-trade history used to
// rehydrate the ledger at startup.
type HistorySource interface {
	FetchHistory(ctx context.Context) ([]domain.ClosedTrade, float64, error)
}

// Monitor polls the price source at a fixed interval and feeds every sample
// into the tracker. It polls once immediately on startup and on manual
// refresh; feed errors mark connectivity as lost and are retried on the next
// scheduled tick. Disabling auto-refresh stops only the timer, never an
// in-flight poll.
type Monitor struct {
	source   PriceSource
	history  HistorySource
	trk      *tracker.Tracker
	ledger   *tracker.Ledger
	sink     tracker.NotificationSink
	interval time.Duration
	onSample func(domain.PriceSample)
	logger   *slog.Logger

	refreshCh chan struct{}
	toggleCh  chan bool

	mu        sync.RWMutex
	current   *domain.PriceSample
	previous  *domain.PriceSample
	connected bool
}

// NewMonitor creates a Monitor. onSample, if non-nil, is invoked after every
// successful poll (used to push ticks to the dashboard hub); history may be
// nil when no ledger rehydration is wanted.
func NewMonitor(
	source PriceSource,
	history HistorySource,
	trk *tracker.Tracker,
	ledger *tracker.Ledger,
	sink tracker.NotificationSink,
	interval time.Duration,
	onSample func(domain.PriceSample),
	logger *slog.Logger,
) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		source:    source,
		history:   history,
		trk:       trk,
		ledger:    ledger,
		sink:      sink,
		interval:  interval,
		onSample:  onSample,
		logger:    logger.With(slog.String("component", "monitor")),
		refreshCh: make(chan struct{}, 1),
		toggleCh:  make(chan bool, 1),
	}
}

// Run executes the polling loop until the context is cancelled. Call in a
// goroutine.
func (m *Monitor) Run(ctx context.Context) error {
	m.Rehydrate(ctx)
	m.poll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// A nil channel blocks forever, which is how the loop ignores the timer
	// while auto-refresh is off.
	tickCh := ticker.C

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case enabled := <-m.toggleCh:
			if enabled && tickCh == nil {
				ticker.Reset(m.interval)
				tickCh = ticker.C
				m.logger.InfoContext(ctx, "auto refresh enabled")
			} else if !enabled && tickCh != nil {
				ticker.Stop()
				tickCh = nil
				m.logger.InfoContext(ctx, "auto refresh disabled")
			}
		case <-m.refreshCh:
			m.poll(ctx)
		case <-tickCh:
			m.poll(ctx)
		}
	}
}

// Refresh requests an immediate poll outside the regular schedule. It never
// blocks; coalesces when a manual refresh is already pending.
func (m *Monitor) Refresh() {
	select {
	case m.refreshCh <- struct{}{}:
	default:
	}
}

// SetAutoRefresh enables or disables the polling timer.
func (m *Monitor) SetAutoRefresh(enabled bool) {
	select {
	case m.toggleCh <- enabled:
	default:
	}
}

// Connected reports whether the last poll succeeded.
func (m *Monitor) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Current returns the latest sample, if any.
func (m *Monitor) Current() (domain.PriceSample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return domain.PriceSample{}, false
	}
	return *m.current, true
}

// Previous returns the sample before the latest one, if any. Kept only for
// delta display.
func (m *Monitor) Previous() (domain.PriceSample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.previous == nil {
		return domain.PriceSample{}, false
	}
	return *m.previous, true
}

// Rehydrate replaces the ledger contents with the gateway's authoritative
// history. Failures are logged and left for the next explicit call; the local
// ledger keeps serving the last known state.
func (m *Monitor) Rehydrate(ctx context.Context) {
	if m.history == nil || m.ledger == nil {
		return
	}
	entries, totalPnL, err := m.history.FetchHistory(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "history rehydrate failed", slog.String("error", err.Error()))
		return
	}
	m.ledger.Replace(entries, totalPnL)
	m.logger.InfoContext(ctx, "history rehydrated",
		slog.Int("entries", len(entries)),
		slog.Float64("total_pnl", totalPnL),
	)
}

// poll fetches one sample and feeds it to the tracker. A failed poll only
// flips the connectivity flag; the loop itself never stops.
func (m *Monitor) poll(ctx context.Context) {
	sample, err := m.source.CurrentPrice(ctx)
	if err != nil {
		m.mu.Lock()
		m.connected = false
		m.mu.Unlock()

		m.logger.WarnContext(ctx, "price poll failed", slog.String("error", err.Error()))
		if m.sink != nil {
			m.sink.Emit("Connection failed", domain.NotificationError)
		}
		return
	}

	m.mu.Lock()
	m.connected = true
	m.previous = m.current
	m.current = &sample
	m.mu.Unlock()

	m.trk.OnPriceUpdate(ctx, sample.Value)

	if m.onSample != nil {
		m.onSample(sample)
	}
}
