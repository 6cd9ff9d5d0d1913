package datasource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/quantbee/thresholdbt/pkg/errors"
)

type CSVTestSuite struct {
	suite.Suite
}

func TestCSVSuite(t *testing.T) {
	suite.Run(t, new(CSVTestSuite))
}

func (suite *CSVTestSuite) writeFile(content string) string {
	path := filepath.Join(suite.T().TempDir(), "bars.csv")
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

func (suite *CSVTestSuite) TestLoadEpochSeconds() {
	path := suite.writeFile(
		"timestamp,open,high,low,close,volume\n" +
			"1700000000,100,101,99,100.5,12.5\n" +
			"1700000900,100.5,102,100,101.5,8\n")

	bars, err := LoadCSV(path)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)

	suite.Equal(time.Unix(1700000000, 0).UTC(), bars[0].Time)
	suite.InDelta(100.0, bars[0].Open, 1e-12)
	suite.InDelta(101.0, bars[0].High, 1e-12)
	suite.InDelta(99.0, bars[0].Low, 1e-12)
	suite.InDelta(100.5, bars[0].Close, 1e-12)
	suite.InDelta(12.5, bars[0].Volume, 1e-12)
}

func (suite *CSVTestSuite) TestLoadShuffledHeader() {
	path := suite.writeFile(
		"close,volume,TIMESTAMP,open,high,low\n" +
			"100.5,12.5,1700000000,100,101,99\n")

	bars, err := LoadCSV(path)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 1)
	suite.InDelta(100.5, bars[0].Close, 1e-12)
}

func (suite *CSVTestSuite) TestLoadSortsAndDedupes() {
	path := suite.writeFile(
		"timestamp,open,high,low,close,volume\n" +
			"1700001800,3,3,3,3,1\n" +
			"1700000000,1,1,1,1,1\n" +
			"1700000900,2,2,2,2,1\n" +
			"1700000900,99,99,99,99,1\n")

	bars, err := LoadCSV(path)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 3)

	suite.InDelta(1.0, bars[0].Close, 1e-12)
	suite.InDelta(2.0, bars[1].Close, 1e-12, "first occurrence of a duplicate timestamp wins")
	suite.InDelta(3.0, bars[2].Close, 1e-12)
	suite.True(bars[0].Time.Before(bars[1].Time))
	suite.True(bars[1].Time.Before(bars[2].Time))
}

func (suite *CSVTestSuite) TestMissingColumn() {
	path := suite.writeFile(
		"timestamp,open,high,low,close\n" +
			"1700000000,1,1,1,1\n")

	_, err := LoadCSV(path)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingColumn))
	suite.Contains(err.Error(), "volume")
}

func (suite *CSVTestSuite) TestMalformedNumber() {
	path := suite.writeFile(
		"timestamp,open,high,low,close,volume\n" +
			"1700000000,1,1,1,not-a-number,1\n")

	_, err := LoadCSV(path)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedInput))
}

func (suite *CSVTestSuite) TestMalformedTimestamp() {
	path := suite.writeFile(
		"timestamp,open,high,low,close,volume\n" +
			"yesterday,1,1,1,1,1\n")

	_, err := LoadCSV(path)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedInput))
}

func (suite *CSVTestSuite) TestMissingFile() {
	_, err := LoadCSV(filepath.Join(suite.T().TempDir(), "nope.csv"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}

func (suite *CSVTestSuite) TestParseTimestampFormats() {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"1700000000", time.Unix(1700000000, 0).UTC()},
		{"1700000000000", time.UnixMilli(1700000000000).UTC()},
		{"2024-03-01T12:30:00Z", time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"2024-03-01T12:30:00", time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"2024-03-01 12:30:00", time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, c := range cases {
		got, err := ParseTimestamp(c.raw)
		suite.Require().NoError(err, c.raw)
		suite.True(c.want.Equal(got), "parsing %q", c.raw)
	}
}

func (suite *CSVTestSuite) TestParseTimestampRejectsGarbage() {
	_, err := ParseTimestamp("03/01/2024")
	suite.Error(err)
}
