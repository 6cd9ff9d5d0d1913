package writer

import (
	"github.com/quantbee/thresholdbt/internal/types"
)

// BarWriter defines the interface for writing downloaded bars to a destination.
type BarWriter interface {
	// Initialize sets up the writer, potentially creating files or tables.
	Initialize() error
	// Write persists a single bar.
	Write(bar types.Bar) error
	// Finalize completes the writing process and returns the output path.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}
