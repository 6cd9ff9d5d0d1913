// Package provider downloads historical bars from exchange APIs.
package provider

import (
	"context"
	"time"

	"github.com/quantbee/thresholdbt/pkg/errors"
	"github.com/quantbee/thresholdbt/pkg/marketdata/writer"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
	ProviderPolygon ProviderType = "polygon"
)

// OnDownloadProgress reports download progress as current/total with a
// human-readable message.
type OnDownloadProgress = func(current float64, total float64, message string)

// Provider downloads historical bars for one symbol and hands each bar to the
// configured writer.
type Provider interface {
	// ConfigWriter sets the destination for downloaded bars. It must be
	// called before Download.
	ConfigWriter(w writer.BarWriter)
	// Download fetches bars for the symbol between startDate and endDate at
	// the given interval (e.g. "15m", "1h", "1d") and returns the path the
	// writer finalized to. The context cancels the download.
	Download(ctx context.Context, symbol string, startDate, endDate time.Time, interval string, onProgress OnDownloadProgress) (path string, err error)
}

// NewProvider creates a provider of the given type. The Polygon provider
// requires an API key.
func NewProvider(providerType ProviderType, apiKey string) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceClient(), nil
	case ProviderPolygon:
		return NewPolygonClient(apiKey)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported market data provider: %s", providerType)
	}
}
