package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrNoPrice means no valid price is currently available from the feed.
	ErrNoPrice = errors.New("no valid price available")
	// ErrFeedUnavailable means the price fetch itself failed; the poll loop
	// retries on its next tick.
	ErrFeedUnavailable = errors.New("price feed unavailable")
	// ErrGatewayRejected means an open/close call failed at the order
	// gateway; tracker state is unchanged.
	ErrGatewayRejected = errors.New("order gateway rejected request")
	// ErrPositionOpen means open was called while a position already exists.
	ErrPositionOpen = errors.New("a position is already open")
	// ErrNoOpenPosition means close was called with no live position.
	ErrNoOpenPosition = errors.New("no open position")
	// ErrInvalidThreshold means a profit target or loss limit was not a
	// positive number.
	ErrInvalidThreshold = errors.New("thresholds must be positive")
)
