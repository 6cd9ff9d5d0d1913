package provider

import (
	"context"
	"strconv"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/quantbee/thresholdbt/internal/types"
	"github.com/quantbee/thresholdbt/pkg/errors"
	"github.com/quantbee/thresholdbt/pkg/marketdata/writer"
)

// PolygonClient downloads aggregate bars from the Polygon REST API.
type PolygonClient struct {
	client *polygon.Client
	writer writer.BarWriter
}

func NewPolygonClient(apiKey string) (*PolygonClient, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "polygon provider requires an API key")
	}

	return &PolygonClient{
		client: polygon.New(apiKey),
		writer: nil,
	}, nil
}

func (c *PolygonClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

// Download iterates Polygon aggregates between startDate and endDate.
func (c *PolygonClient) Download(ctx context.Context, symbol string, startDate, endDate time.Time, interval string, onProgress OnDownloadProgress) (string, error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeWriterNotConfigured, "no writer configured, call ConfigWriter first")
	}

	multiplier, timespan, err := parseInterval(interval)
	if err != nil {
		return "", err
	}

	if err := c.writer.Initialize(); err != nil {
		return "", errors.Wrap(errors.ErrCodeDownloadFailed, "failed to initialize writer", err)
	}
	defer c.writer.Close()

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(50000)

	iter := c.client.ListAggs(ctx, params)

	totalMillis := float64(endDate.Sub(startDate).Milliseconds())
	processed := 0

	for iter.Next() {
		agg := iter.Item()
		barTime := time.Time(agg.Timestamp).UTC()

		bar := types.Bar{
			Time:   barTime,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if err := c.writer.Write(bar); err != nil {
			return "", errors.Wrap(errors.ErrCodeDownloadFailed, "failed to write bar", err)
		}

		processed++

		if onProgress != nil && processed%1000 == 0 {
			elapsed := float64(barTime.Sub(startDate).Milliseconds())
			onProgress(elapsed, totalMillis, "downloading "+symbol)
		}
	}

	if iter.Err() != nil {
		return "", errors.Wrapf(errors.ErrCodeDownloadFailed, iter.Err(), "failed to iterate aggregates for %s", symbol)
	}

	path, err := c.writer.Finalize()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDownloadFailed, "failed to finalize writer", err)
	}

	return path, nil
}

// parseInterval splits a compact interval such as "15m" or "1d" into the
// multiplier and timespan the Polygon API expects.
func parseInterval(interval string) (int, models.Timespan, error) {
	if len(interval) < 2 {
		return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "invalid interval %q", interval)
	}

	unit := interval[len(interval)-1:]

	multiplier, err := strconv.Atoi(strings.TrimSuffix(interval, unit))
	if err != nil || multiplier < 1 {
		return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "invalid interval %q", interval)
	}

	switch unit {
	case "m":
		return multiplier, models.Minute, nil
	case "h":
		return multiplier, models.Hour, nil
	case "d":
		return multiplier, models.Day, nil
	case "w":
		return multiplier, models.Week, nil
	case "M":
		return multiplier, models.Month, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval unit %q", unit)
	}
}
