// Package notify holds the transient notification board shown on the trading
// dashboard and the channel senders (Telegram, Discord) that mirror important
// events to operators.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rkathuria/bulliond/internal/domain"
)

const (
	// DefaultCap is how many notifications are displayed at once.
	DefaultCap = 3
	// DefaultTTL is how long each notification stays visible.
	DefaultTTL = 4 * time.Second
)

// Board is a capped, most-recent-first list of transient notifications. Each
// entry owns its own expiry timer and disappears after the display duration
// regardless of later events. Close releases every pending timer.
type Board struct {
	mu      sync.Mutex
	entries []domain.Notification
	timers  map[string]*time.Timer
	cap     int
	ttl     time.Duration
	closed  bool
}

// NewBoard creates a Board that keeps at most cap notifications, each
// expiring after ttl. Non-positive arguments fall back to the defaults.
func NewBoard(cap int, ttl time.Duration) *Board {
	if cap <= 0 {
		cap = DefaultCap
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{
		timers: make(map[string]*time.Timer),
		cap:    cap,
		ttl:    ttl,
	}
}

// Push inserts a notification at the front of the list and schedules its
// removal. When the list is over capacity the oldest entries are dropped and
// their timers cancelled.
func (b *Board) Push(message string, kind domain.NotificationKind) domain.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return domain.Notification{}
	}

	n := domain.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}

	b.entries = append([]domain.Notification{n}, b.entries...)
	for len(b.entries) > b.cap {
		evicted := b.entries[len(b.entries)-1]
		b.entries = b.entries[:len(b.entries)-1]
		if t, ok := b.timers[evicted.ID]; ok {
			t.Stop()
			delete(b.timers, evicted.ID)
		}
	}

	b.timers[n.ID] = time.AfterFunc(b.ttl, func() {
		b.Remove(n.ID)
	})

	return n
}

// Remove deletes a notification by ID and cancels its expiry timer. Removing
// an unknown ID is a no-op.
func (b *Board) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.timers[id]; ok {
		t.Stop()
		delete(b.timers, id)
	}
	for i, n := range b.entries {
		if n.ID == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

// List returns the visible notifications, most recent first.
func (b *Board) List() []domain.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Notification(nil), b.entries...)
}

// Close cancels all pending expiry timers and rejects further pushes. Safe to
// call more than once.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, t := range b.timers {
		t.Stop()
		delete(b.timers, id)
	}
	b.entries = nil
}
