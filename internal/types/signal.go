package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// Side is the direction of a signal or position.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}

	return SideBuy
}

// Signal is an entry decision produced by the detector for the latest bar of a
// sequence. It is immutable once returned.
//
// A signal without a stop fraction carries only side and entry ("soft" signal);
// it is useful for exploratory listing but cannot be traded by the simulation
// engine.
type Signal struct {
	Symbol     string
	Side       Side
	EntryPrice float64
	EntryTime  time.Time
	// StopPrice and TakePrice are present only when a stop fraction is known.
	StopPrice    optional.Option[float64]
	TakePrice    optional.Option[float64]
	StopFraction optional.Option[float64]
	RewardRatio  optional.Option[float64]
	// Oscillator is the oscillator value that triggered the signal.
	Oscillator float64
}

// Tradable reports whether the signal carries usable stop and take levels.
func (s Signal) Tradable() bool {
	return s.StopPrice.IsSome() && s.TakePrice.IsSome()
}
