package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SeriesTestSuite struct {
	suite.Suite
}

func TestSeriesSuite(t *testing.T) {
	suite.Run(t, new(SeriesTestSuite))
}

func (suite *SeriesTestSuite) TestEMASpanOne() {
	series := []float64{3, 1, 4, 1, 5}

	out := EMA(series, 1)

	suite.Equal(series, out, "span 1 should reproduce the input")
}

func (suite *SeriesTestSuite) TestEMAKnownValues() {
	// span 3 gives alpha = 0.5
	out := EMA([]float64{1, 2, 3}, 3)

	suite.Require().Len(out, 3)
	suite.InDelta(1.0, out[0], 1e-12)
	suite.InDelta(1.5, out[1], 1e-12)
	suite.InDelta(2.25, out[2], 1e-12)
}

func (suite *SeriesTestSuite) TestEMAEmpty() {
	suite.Empty(EMA(nil, 9))
}

func (suite *SeriesTestSuite) TestSMAKnownValues() {
	out := SMA([]float64{1, 2, 3, 4}, 2)

	suite.Require().Len(out, 4)
	suite.InDelta(1.0, out[0], 1e-12, "partial window averages what is available")
	suite.InDelta(1.5, out[1], 1e-12)
	suite.InDelta(2.5, out[2], 1e-12)
	suite.InDelta(3.5, out[3], 1e-12)
}

func (suite *SeriesTestSuite) TestRSIWarmupIsUndefined() {
	out := RSI([]float64{100, 101, 102, 103, 104}, 3)

	suite.Require().Len(out, 5)
	suite.True(out[0].IsNone())
	suite.True(out[1].IsNone())
	suite.True(out[2].IsNone())
	suite.True(out[3].IsSome(), "first defined value appears after period change observations")
	suite.True(out[4].IsSome())
}

func (suite *SeriesTestSuite) TestRSIMonotonicExtremes() {
	rising := RSI([]float64{1, 2, 3, 4, 5, 6}, 3)
	falling := RSI([]float64{6, 5, 4, 3, 2, 1}, 3)

	suite.InDelta(100, rising[5].Unwrap(), 1e-12)
	suite.InDelta(0, falling[5].Unwrap(), 1e-12)
}

func (suite *SeriesTestSuite) TestRSIKnownSequence() {
	// Three losses then four gains with period 3; values traced by hand
	// through the Wilder recursion.
	closes := []float64{100, 99, 98, 97, 98, 99, 100, 101}

	out := RSI(closes, 3)

	suite.Require().Len(out, 8)
	suite.InDelta(0, out[3].Unwrap(), 1e-9)
	suite.InDelta(100.0/3.0, out[4].Unwrap(), 1e-9)
	suite.InDelta(100.0*5.0/9.0, out[5].Unwrap(), 1e-9)
	suite.InDelta(100.0*19.0/27.0, out[6].Unwrap(), 1e-9)
	suite.InDelta(100.0*65.0/81.0, out[7].Unwrap(), 1e-9)
}

func (suite *SeriesTestSuite) TestRSIBounds() {
	closes := []float64{50, 53, 47, 52, 48, 55, 45, 51, 49, 54}

	for _, o := range RSI(closes, 4) {
		if o.IsNone() {
			continue
		}

		v := o.Unwrap()
		suite.GreaterOrEqual(v, 0.0)
		suite.LessOrEqual(v, 100.0)
	}
}

func (suite *SeriesTestSuite) TestRSITooShort() {
	out := RSI([]float64{42}, 14)

	suite.Require().Len(out, 1)
	suite.True(out[0].IsNone())
}
