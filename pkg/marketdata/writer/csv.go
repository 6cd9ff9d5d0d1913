// Package writer persists downloaded bars. The CSV writer produces the exact
// input format the simulation loader reads back.
package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/quantbee/thresholdbt/internal/types"
	"github.com/quantbee/thresholdbt/pkg/errors"
)

// CSVWriter streams bars into a single CSV file with the columns
// timestamp,open,high,low,close,volume. Timestamps are written as epoch
// milliseconds so round trips are lossless.
type CSVWriter struct {
	outputPath string
	file       *os.File
	csv        *csv.Writer
}

// NewCSVWriter creates a writer targeting the given file path. Nothing is
// created until Initialize is called.
func NewCSVWriter(outputPath string) *CSVWriter {
	return &CSVWriter{outputPath: outputPath}
}

// Initialize creates the output file and writes the header row.
func (w *CSVWriter) Initialize() error {
	if err := os.MkdirAll(filepath.Dir(w.outputPath), 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to create output directory for %s", w.outputPath)
	}

	file, err := os.Create(w.outputPath)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to create output file %s", w.outputPath)
	}

	w.file = file
	w.csv = csv.NewWriter(file)

	if err := w.csv.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to write CSV header", err)
	}

	return nil
}

// Write appends one bar row.
func (w *CSVWriter) Write(bar types.Bar) error {
	if w.csv == nil {
		return errors.New(errors.ErrCodeWriterNotConfigured, "writer is not initialized")
	}

	row := []string{
		strconv.FormatInt(bar.Time.UnixMilli(), 10),
		strconv.FormatFloat(bar.Open, 'f', -1, 64),
		strconv.FormatFloat(bar.High, 'f', -1, 64),
		strconv.FormatFloat(bar.Low, 'f', -1, 64),
		strconv.FormatFloat(bar.Close, 'f', -1, 64),
		strconv.FormatFloat(bar.Volume, 'f', -1, 64),
	}

	if err := w.csv.Write(row); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to write bar row", err)
	}

	return nil
}

// Finalize flushes buffered rows and closes the file.
func (w *CSVWriter) Finalize() (string, error) {
	if w.csv == nil {
		return "", errors.New(errors.ErrCodeWriterNotConfigured, "writer is not initialized")
	}

	w.csv.Flush()

	if err := w.csv.Error(); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to flush CSV writer", err)
	}

	if err := w.file.Close(); err != nil {
		return "", errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to close %s", w.outputPath)
	}

	w.file = nil
	w.csv = nil

	return w.outputPath, nil
}

// Close releases the underlying file if Finalize was never reached.
func (w *CSVWriter) Close() error {
	if w.file == nil {
		return nil
	}

	w.csv.Flush()
	err := w.file.Close()
	w.file = nil
	w.csv = nil

	return err
}

// GetOutputPath returns the configured output file path.
func (w *CSVWriter) GetOutputPath() string {
	return w.outputPath
}
