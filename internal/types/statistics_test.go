package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type StatisticsTestSuite struct {
	suite.Suite
}

func TestStatisticsSuite(t *testing.T) {
	suite.Run(t, new(StatisticsTestSuite))
}

func tradesWithReturns(returns []float64) []Trade {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	trades := make([]Trade, len(returns))

	for i, r := range returns {
		trades[i] = Trade{
			Symbol:     "BTCUSDT",
			Side:       SideBuy,
			EntryTime:  start.Add(time.Duration(2*i) * time.Hour),
			EntryPrice: 100,
			ExitTime:   start.Add(time.Duration(2*i+1) * time.Hour),
			ExitPrice:  100 * (1 + r),
			ExitReason: ExitReasonTarget,
			Return:     r,
		}
	}

	return trades
}

func (suite *StatisticsTestSuite) TestComputeSummary() {
	trades := tradesWithReturns([]float64{0.1, -0.05, 0.2})

	summary := ComputeSummary("BTCUSDT", trades, 10000)

	suite.Equal("BTCUSDT", summary.Symbol)
	suite.Equal(3, summary.NTrades)
	suite.InDelta(2.0/3.0, summary.WinRate, 1e-12)
	suite.InDelta(0.15, summary.AvgWin, 1e-12)
	suite.InDelta(-0.05, summary.AvgLoss, 1e-12)

	suite.Require().NotNil(summary.ProfitFactor)
	suite.InDelta(6.0, *summary.ProfitFactor, 1e-9)

	// 1.1 * 0.95 * 1.2 = 1.254
	suite.InDelta(0.254, summary.TotalReturn, 1e-9)
	suite.InDelta(12540.0, summary.FinalEquity, 1e-6)
}

func (suite *StatisticsTestSuite) TestProfitFactorUndefinedWithoutLosses() {
	summary := ComputeSummary("BTCUSDT", tradesWithReturns([]float64{0.1, 0.2}), 10000)

	suite.Nil(summary.ProfitFactor)
	suite.InDelta(1.0, summary.WinRate, 1e-12)
}

func (suite *StatisticsTestSuite) TestZeroReturnCountsAsLoss() {
	summary := ComputeSummary("BTCUSDT", tradesWithReturns([]float64{0.1, 0}), 10000)

	suite.InDelta(0.5, summary.WinRate, 1e-12)
	suite.InDelta(0.0, summary.AvgLoss, 1e-12)
	// The loss bucket sums to zero, so the ratio stays undefined.
	suite.Nil(summary.ProfitFactor)
}

func (suite *StatisticsTestSuite) TestEmptyTrades() {
	summary := ComputeSummary("BTCUSDT", nil, 10000)

	suite.Equal(0, summary.NTrades)
	suite.InDelta(0.0, summary.WinRate, 1e-12)
	suite.Nil(summary.ProfitFactor)
	suite.InDelta(0.0, summary.TotalReturn, 1e-12)
	suite.InDelta(10000.0, summary.FinalEquity, 1e-12)
}

func (suite *StatisticsTestSuite) TestBuildEquityCurve() {
	trades := tradesWithReturns([]float64{0.1, -0.05})

	points := BuildEquityCurve(trades, 10000)

	suite.Require().Len(points, 2)
	suite.InDelta(11000.0, points[0].Equity, 1e-9)
	suite.InDelta(10450.0, points[1].Equity, 1e-9)
	suite.Equal(trades[0].ExitTime, points[0].Time)
	suite.Equal(trades[1].ExitTime, points[1].Time)
}

func (suite *StatisticsTestSuite) TestWriteSummaryRoundTrip() {
	path := filepath.Join(suite.T().TempDir(), "summary.yaml")
	summary := ComputeSummary("BTCUSDT", tradesWithReturns([]float64{0.1, -0.05}), 10000)

	suite.Require().NoError(WriteSummary(path, summary))

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)

	var loaded Summary
	suite.Require().NoError(yaml.Unmarshal(data, &loaded))

	suite.Equal(summary.Symbol, loaded.Symbol)
	suite.Equal(summary.NTrades, loaded.NTrades)
	suite.InDelta(summary.FinalEquity, loaded.FinalEquity, 1e-9)
	suite.Require().NotNil(loaded.ProfitFactor)
	suite.InDelta(*summary.ProfitFactor, *loaded.ProfitFactor, 1e-9)
}
