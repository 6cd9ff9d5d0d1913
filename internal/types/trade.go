package types

import "time"

// ExitReason tags how a position was resolved into a trade.
type ExitReason string

const (
	// ExitReasonStop means the bar's range crossed the stop price.
	ExitReasonStop ExitReason = "STOP"
	// ExitReasonTarget means the bar's range crossed the take price.
	ExitReasonTarget ExitReason = "TARGET"
	// ExitReasonReverse means an opposite-side signal appeared while open.
	ExitReasonReverse ExitReason = "REVERSE"
	// ExitReasonTimeout means the bar sequence ended with the position open.
	ExitReasonTimeout ExitReason = "TIMEOUT"
)

// Position is the single open slot owned by the simulation engine during one
// walk-forward pass. It is created when a tradable signal is accepted and
// destroyed when resolved into a Trade.
type Position struct {
	Symbol     string
	Side       Side
	EntryPrice float64
	EntryTime  time.Time
	StopPrice  float64
	TakePrice  float64
}

// Trade is an immutable record of a resolved position.
type Trade struct {
	Symbol     string     `csv:"symbol"`
	Side       Side       `csv:"side"`
	EntryTime  time.Time  `csv:"entry_ts"`
	EntryPrice float64    `csv:"entry_price"`
	ExitTime   time.Time  `csv:"exit_ts"`
	ExitPrice  float64    `csv:"exit_price"`
	ExitReason ExitReason `csv:"exit_reason"`
	Return     float64    `csv:"return"`
}

// ReturnFraction computes the signed fractional return of a round trip:
// exit/entry - 1 for BUY, entry/exit - 1 for SELL. A zero denominator yields 0
// rather than an error; degenerate prices should never reach this point from
// well-formed input.
func ReturnFraction(side Side, entryPrice, exitPrice float64) float64 {
	if side == SideSell {
		if exitPrice == 0 {
			return 0
		}

		return entryPrice/exitPrice - 1
	}

	if entryPrice == 0 {
		return 0
	}

	return exitPrice/entryPrice - 1
}

// EquityPoint is one point of the equity curve, recorded at each trade exit.
type EquityPoint struct {
	Time   time.Time `csv:"timestamp"`
	Equity float64   `csv:"equity"`
}
