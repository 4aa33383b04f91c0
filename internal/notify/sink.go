package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/rkathuria/bulliond/internal/domain"
)

// sendTimeout bounds each channel delivery so a slow webhook can never stall
// a tracker transition.
const sendTimeout = 10 * time.Second

// Sink fans tracker events out to the dashboard board and, asynchronously, to
// the configured operator channels. It implements tracker.NotificationSink.
type Sink struct {
	board    *Board
	notifier *Notifier
	logger   *slog.Logger
}

// NewSink creates a Sink. notifier may be nil when no channels are configured.
func NewSink(board *Board, notifier *Notifier, logger *slog.Logger) *Sink {
	return &Sink{
		board:    board,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "sink")),
	}
}

// Emit records the notification on the board and dispatches it to the
// operator channels in the background. Channel failures are logged, never
// propagated; the tracker transition has already happened.
func (s *Sink) Emit(message string, kind domain.NotificationKind) {
	s.board.Push(message, kind)

	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, string(kind), "bulliond", message); err != nil {
			s.logger.Warn("channel delivery failed", slog.String("error", err.Error()))
		}
	}()
}
