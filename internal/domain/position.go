package domain

import "time"

// PositionStatus tracks whether a position is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// CloseReason records why a position was closed.
type CloseReason string

const (
	// CloseReasonTarget means the unrealized profit reached the configured target.
	CloseReasonTarget CloseReason = "target"
	// CloseReasonStopLoss means the unrealized loss breached the configured limit.
	CloseReasonStopLoss CloseReason = "stop_loss"
	// CloseReasonManual means the operator closed the position by hand.
	CloseReasonManual CloseReason = "manual"
)

// Valid reports whether r is one of the known close reasons.
func (r CloseReason) Valid() bool {
	switch r {
	case CloseReasonTarget, CloseReasonStopLoss, CloseReasonManual:
		return true
	}
	return false
}

// Position is a single live trade. The tracker holds at most one of these at
// a time; the gateway record identified by ExternalID is the source of truth.
type Position struct {
	ExternalID   string         `json:"trade_id"`
	EntryPrice   float64        `json:"entry_price"`
	ProfitTarget float64        `json:"profit_target"` // unrealized gain that triggers an automatic close
	LossLimit    float64        `json:"loss_limit"`    // unrealized loss that triggers an automatic close
	Status       PositionStatus `json:"status"`
	OpenedAt     time.Time      `json:"opened_at"`
}

// ClosedTrade is the immutable record a Position turns into when it closes.
type ClosedTrade struct {
	ExternalID   string      `json:"trade_id"`
	EntryPrice   float64     `json:"entry_price"`
	ExitPrice    float64     `json:"exit_price"`
	PnL          float64     `json:"pnl"`        // exit - entry, sign preserving
	PctChange    float64     `json:"pct_change"` // PnL / entry * 100
	Reason       CloseReason `json:"reason"`
	ProfitTarget float64     `json:"profit_target"`
	LossLimit    float64     `json:"loss_limit"`
	OpenedAt     time.Time   `json:"opened_at"`
	ClosedAt     time.Time   `json:"closed_at"`
}
