package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/quantbee/thresholdbt/internal/types"
)

type CSVWriterTestSuite struct {
	suite.Suite
	writer *CSVWriter
}

func TestCSVWriterSuite(t *testing.T) {
	suite.Run(t, new(CSVWriterTestSuite))
}

func (suite *CSVWriterTestSuite) SetupTest() {
	w, err := NewCSVWriter(filepath.Join(suite.T().TempDir(), "run"))
	suite.Require().NoError(err)

	suite.writer = w
}

func (suite *CSVWriterTestSuite) readCSV(path string) [][]string {
	file, err := os.Open(path)
	suite.Require().NoError(err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	suite.Require().NoError(err)

	return rows
}

func (suite *CSVWriterTestSuite) TestWriteTrades() {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	trades := []types.Trade{
		{
			Symbol: "BTCUSDT", Side: types.SideBuy,
			EntryTime: start, EntryPrice: 97,
			ExitTime: start.Add(time.Hour), ExitPrice: 98.94,
			ExitReason: types.ExitReasonTarget, Return: 0.02,
		},
	}

	path, err := suite.writer.WriteTrades("BTCUSDT", trades)
	suite.Require().NoError(err)

	rows := suite.readCSV(path)
	suite.Require().Len(rows, 2)
	suite.Equal([]string{
		"symbol", "side", "entry_ts", "entry_price",
		"exit_ts", "exit_price", "exit_reason", "return",
	}, rows[0])
	suite.Equal("BTCUSDT", rows[1][0])
	suite.Equal("BUY", rows[1][1])
	suite.Equal("2024-03-01T00:00:00Z", rows[1][2])
	suite.Equal("TARGET", rows[1][6])
	suite.Equal("0.02", rows[1][7])
}

func (suite *CSVWriterTestSuite) TestWriteSignalsWithAbsentLevels() {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	signals := []types.Signal{
		{
			Symbol: "BTCUSDT", Side: types.SideBuy,
			EntryPrice: 97, EntryTime: start,
			StopPrice:  optional.Some(96.03),
			TakePrice:  optional.Some(98.94),
			Oscillator: 12.5,
		},
		{
			Symbol: "BTCUSDT", Side: types.SideSell,
			EntryPrice: 103, EntryTime: start.Add(time.Hour),
			Oscillator: 85,
		},
	}

	path, err := suite.writer.WriteSignals("BTCUSDT", signals)
	suite.Require().NoError(err)

	rows := suite.readCSV(path)
	suite.Require().Len(rows, 3)
	suite.Equal("96.03", rows[1][4])
	suite.Equal("", rows[2][4], "soft signals leave level cells empty")
	suite.Equal("", rows[2][5])
}

func (suite *CSVWriterTestSuite) TestWriteEquityCurve() {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	points := []types.EquityPoint{
		{Time: start, Equity: 10200},
		{Time: start.Add(time.Hour), Equity: 10404},
	}

	path, err := suite.writer.WriteEquityCurve("BTCUSDT", points)
	suite.Require().NoError(err)

	rows := suite.readCSV(path)
	suite.Require().Len(rows, 3)
	suite.Equal([]string{"timestamp", "equity"}, rows[0])
	suite.Equal("10200", rows[1][1])
	suite.Equal("10404", rows[2][1])
}

func (suite *CSVWriterTestSuite) TestWriteSummary() {
	summary := types.ComputeSummary("BTCUSDT", nil, 10000)

	path, err := suite.writer.WriteSummary("BTCUSDT", summary)
	suite.Require().NoError(err)

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Contains(string(data), "symbol: BTCUSDT")
	suite.Contains(string(data), "n_trades: 0")
}

func (suite *CSVWriterTestSuite) TestFilesArePerSymbol() {
	_, err := suite.writer.WriteTrades("BTCUSDT", nil)
	suite.Require().NoError(err)

	_, err = suite.writer.WriteTrades("ETHUSDT", nil)
	suite.Require().NoError(err)

	entries, err := os.ReadDir(suite.writer.RunDir())
	suite.Require().NoError(err)
	suite.Len(entries, 2)
}
