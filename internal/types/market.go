package types

import "time"

// Bar is a single OHLCV observation for one instrument.
// Well-formed input satisfies low <= open,close <= high; the simulation core
// does not re-validate this.
type Bar struct {
	Time   time.Time `csv:"timestamp"`
	Open   float64   `csv:"open"`
	High   float64   `csv:"high"`
	Low    float64   `csv:"low"`
	Close  float64   `csv:"close"`
	Volume float64   `csv:"volume"`
}
