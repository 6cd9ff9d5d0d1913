package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/quantbee/thresholdbt/pkg/marketdata/provider"
	"github.com/quantbee/thresholdbt/pkg/marketdata/writer"
)

// downloadAction parses flags, builds the provider and writer, and runs the
// download.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	symbol := cmd.String("symbol")
	startDate := cmd.Timestamp("start")
	endDate := cmd.Timestamp("end")
	interval := cmd.String("interval")
	providerFlag := cmd.String("provider")
	dataDir := cmd.String("output")

	p, err := provider.NewProvider(provider.ProviderType(providerFlag), os.Getenv("POLYGON_API_KEY"))
	if err != nil {
		return err
	}

	outputPath := filepath.Join(dataDir, fmt.Sprintf("historical_%s_%s.csv", symbol, interval))
	p.ConfigWriter(writer.NewCSVWriter(outputPath))

	log.Printf("Downloading %s bars for %s from %s to %s via %s...",
		interval, symbol, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"), providerFlag)

	path, err := p.Download(ctx, symbol, startDate, endDate, interval, func(current, total float64, message string) {
		if total > 0 {
			log.Printf("%s: %.1f%%", message, 100*current/total)
		}
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	log.Printf("Download completed: %s", path)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "download",
		Usage: "Download historical bars for the backtester",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"t"},
				Usage:    "Instrument symbol, e.g. BTCUSDT or AAPL",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
				Required: false,
			},
			&cli.StringFlag{
				Name:     "interval",
				Aliases:  []string{"i"},
				Usage:    "Bar interval, e.g. 1m, 15m, 1h, 1d",
				Value:    "15m",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "provider",
				Aliases:  []string{"p"},
				Usage:    fmt.Sprintf("Data provider (%s, %s)", provider.ProviderBinance, provider.ProviderPolygon),
				Value:    string(provider.ProviderBinance),
				Required: false,
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Directory the bar file is written into",
				Value:    "data",
				Required: false,
			},
		},
		Action: downloadAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
