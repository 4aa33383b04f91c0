package tracker

import (
	"sync"

	"github.com/rkathuria/bulliond/internal/domain"
)

// Ledger accumulates closed trades in chronological order together with a
// running total P&L. The total always equals the sum of the entries' P&L.
type Ledger struct {
	mu       sync.RWMutex
	entries  []domain.ClosedTrade
	totalPnL float64
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends a closed trade and updates the running total. Callers must
// record each close event exactly once.
func (l *Ledger) Record(trade domain.ClosedTrade) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, trade)
	l.totalPnL += trade.PnL
}

// Replace rehydrates the ledger wholesale from the gateway's authoritative
// history, discarding local entries so the two cannot drift apart.
func (l *Ledger) Replace(entries []domain.ClosedTrade, totalPnL float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]domain.ClosedTrade(nil), entries...)
	l.totalPnL = totalPnL
}

// Snapshot returns a copy of the entries and the running total.
func (l *Ledger) Snapshot() ([]domain.ClosedTrade, float64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := append([]domain.ClosedTrade(nil), l.entries...)
	return entries, l.totalPnL
}

// TotalPnL returns the running total P&L.
func (l *Ledger) TotalPnL() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalPnL
}

// Len returns the number of recorded trades.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
