// Package datasource loads historical bar tables from CSV files.
//
// Malformed input (missing required columns, unparsable timestamps or
// numbers) fails fast with a coded error before any simulation starts; there
// is no partial recovery.
package datasource

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quantbee/thresholdbt/internal/types"
	"github.com/quantbee/thresholdbt/pkg/errors"
)

var requiredColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// epochMillisCutoff separates second-resolution epochs from millisecond ones.
const epochMillisCutoff = 1_000_000_000_000

// LoadCSV reads an ordered OHLCV bar table. Rows are sorted by timestamp and
// de-duplicated (first occurrence wins), matching how exchange downloads are
// normalized before use.
func LoadCSV(path string) ([]types.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to open bar file %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMalformedInput, err, "failed to read header of %s", path)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, errors.Newf(errors.ErrCodeMissingColumn, "bar file %s is missing required column %q", path, name)
		}
	}

	var bars []types.Bar

	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedInput, err, "failed to read row %d of %s", line+1, path)
		}

		line++

		ts, err := ParseTimestamp(record[columns["timestamp"]])
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedInput, err, "row %d of %s has an unparsable timestamp", line, path)
		}

		bar := types.Bar{Time: ts}

		for name, dst := range map[string]*float64{
			"open":   &bar.Open,
			"high":   &bar.High,
			"low":    &bar.Low,
			"close":  &bar.Close,
			"volume": &bar.Volume,
		} {
			value, err := strconv.ParseFloat(strings.TrimSpace(record[columns[name]]), 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMalformedInput, err, "row %d of %s has an unparsable %s value", line, path, name)
			}

			*dst = value
		}

		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})

	return dedupByTime(bars), nil
}

// dedupByTime drops rows whose timestamp repeats, keeping the first
// occurrence. Input must be sorted by time.
func dedupByTime(bars []types.Bar) []types.Bar {
	if len(bars) < 2 {
		return bars
	}

	out := bars[:1]

	for _, bar := range bars[1:] {
		if bar.Time.Equal(out[len(out)-1].Time) {
			continue
		}

		out = append(out, bar)
	}

	return out
}

// ParseTimestamp parses an absolute UTC instant from an epoch (seconds or
// milliseconds) or a datetime string. Naive datetimes are assumed UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n >= epochMillisCutoff {
			return time.UnixMilli(n).UTC(), nil
		}

		return time.Unix(n, 0).UTC(), nil
	}

	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, errors.Newf(errors.ErrCodeMalformedInput, "unsupported timestamp format: %q", raw)
}
