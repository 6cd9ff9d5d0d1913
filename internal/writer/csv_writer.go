// Package writer renders simulation results into files under a per-run
// directory: trade and signal logs, the equity curve, and the YAML summary.
package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/moznion/go-optional"

	"github.com/quantbee/thresholdbt/internal/types"
	"github.com/quantbee/thresholdbt/pkg/errors"
)

// CSVWriter writes run artifacts into a single directory. Filenames are
// prefixed with the instrument symbol so several instruments can share a run.
type CSVWriter struct {
	runDir string
}

// NewCSVWriter creates the run directory if needed.
func NewCSVWriter(runDir string) (*CSVWriter, error) {
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to create run directory %s", runDir)
	}

	return &CSVWriter{runDir: runDir}, nil
}

// RunDir returns the directory artifacts are written into.
func (w *CSVWriter) RunDir() string {
	return w.runDir
}

// WriteTrades writes the closed-trade log for one instrument.
func (w *CSVWriter) WriteTrades(symbol string, trades []types.Trade) (string, error) {
	path := filepath.Join(w.runDir, symbol+"_trades.csv")

	rows := make([][]string, 0, len(trades)+1)
	rows = append(rows, []string{
		"symbol", "side", "entry_ts", "entry_price",
		"exit_ts", "exit_price", "exit_reason", "return",
	})

	for _, trade := range trades {
		rows = append(rows, []string{
			trade.Symbol,
			string(trade.Side),
			trade.EntryTime.UTC().Format(time.RFC3339),
			formatFloat(trade.EntryPrice),
			trade.ExitTime.UTC().Format(time.RFC3339),
			formatFloat(trade.ExitPrice),
			string(trade.ExitReason),
			formatFloat(trade.Return),
		})
	}

	return path, w.writeAll(path, rows)
}

// WriteSignals writes the detected-signal log for one instrument. Absent
// stop/take fields are written as empty cells.
func (w *CSVWriter) WriteSignals(symbol string, signals []types.Signal) (string, error) {
	path := filepath.Join(w.runDir, symbol+"_signals.csv")

	rows := make([][]string, 0, len(signals)+1)
	rows = append(rows, []string{
		"symbol", "side", "entry_ts", "entry_price",
		"stop_price", "take_price", "oscillator",
	})

	for _, signal := range signals {
		rows = append(rows, []string{
			signal.Symbol,
			string(signal.Side),
			signal.EntryTime.UTC().Format(time.RFC3339),
			formatFloat(signal.EntryPrice),
			formatOption(signal.StopPrice),
			formatOption(signal.TakePrice),
			formatFloat(signal.Oscillator),
		})
	}

	return path, w.writeAll(path, rows)
}

// WriteEquityCurve writes the per-exit equity curve for one instrument.
func (w *CSVWriter) WriteEquityCurve(symbol string, points []types.EquityPoint) (string, error) {
	path := filepath.Join(w.runDir, symbol+"_equity.csv")

	rows := make([][]string, 0, len(points)+1)
	rows = append(rows, []string{"timestamp", "equity"})

	for _, point := range points {
		rows = append(rows, []string{
			point.Time.UTC().Format(time.RFC3339),
			formatFloat(point.Equity),
		})
	}

	return path, w.writeAll(path, rows)
}

// WriteSummary writes the YAML summary for one instrument.
func (w *CSVWriter) WriteSummary(symbol string, summary types.Summary) (string, error) {
	path := filepath.Join(w.runDir, symbol+"_summary.yaml")

	if err := types.WriteSummary(path, summary); err != nil {
		return "", errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to write summary for %s", symbol)
	}

	return path, nil
}

func (w *CSVWriter) writeAll(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to create %s", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to write %s", path)
	}

	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOption(o optional.Option[float64]) string {
	if o.IsNone() {
		return ""
	}

	return formatFloat(o.Unwrap())
}
