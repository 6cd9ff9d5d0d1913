package provider

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/quantbee/thresholdbt/internal/types"
	"github.com/quantbee/thresholdbt/pkg/errors"
	"github.com/quantbee/thresholdbt/pkg/marketdata/writer"
)

// binancePageSize is the maximum klines per request; a shorter page marks the
// last one.
const binancePageSize = 500

// BinanceClient downloads spot klines. No API key is needed for historical
// data.
type BinanceClient struct {
	client *binance.Client
	writer writer.BarWriter
}

func NewBinanceClient() *BinanceClient {
	return &BinanceClient{
		client: binance.NewClient("", ""),
		writer: nil,
	}
}

func (c *BinanceClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

// Download pages through the klines endpoint from startDate to endDate. The
// open time of each kline becomes the bar timestamp.
func (c *BinanceClient) Download(ctx context.Context, symbol string, startDate, endDate time.Time, interval string, onProgress OnDownloadProgress) (string, error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeWriterNotConfigured, "no writer configured, call ConfigWriter first")
	}

	if err := c.writer.Initialize(); err != nil {
		return "", errors.Wrap(errors.ErrCodeDownloadFailed, "failed to initialize writer", err)
	}
	defer c.writer.Close()

	startMillis := startDate.UnixMilli()
	endMillis := endDate.UnixMilli()
	currentStart := startMillis

	for {
		klines, err := c.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(currentStart).
			EndTime(endMillis).
			Do(ctx)
		if err != nil {
			return "", errors.Wrapf(errors.ErrCodeDownloadFailed, err, "failed to fetch klines for %s", symbol)
		}

		if onProgress != nil {
			onProgress(float64(currentStart-startMillis), float64(endMillis-startMillis), "downloading "+symbol)
		}

		if err := c.writeKlines(klines); err != nil {
			return "", err
		}

		// A short page is the last one.
		if len(klines) < binancePageSize {
			break
		}

		// Resume one millisecond past the last close time to avoid duplicates.
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	path, err := c.writer.Finalize()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDownloadFailed, "failed to finalize writer", err)
	}

	return path, nil
}

func (c *BinanceClient) writeKlines(klines []*binance.Kline) error {
	for _, k := range klines {
		open, err := strconv.ParseFloat(k.Open, 64)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDownloadFailed, "unparsable open price in kline", err)
		}

		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		bar := types.Bar{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		}

		if err := c.writer.Write(bar); err != nil {
			return errors.Wrap(errors.ErrCodeDownloadFailed, "failed to write bar", err)
		}
	}

	return nil
}
