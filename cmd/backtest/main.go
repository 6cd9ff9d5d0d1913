package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/quantbee/thresholdbt/internal/backtest"
	"github.com/quantbee/thresholdbt/internal/datasource"
	"github.com/quantbee/thresholdbt/internal/logger"
	"github.com/quantbee/thresholdbt/internal/storage"
	"github.com/quantbee/thresholdbt/internal/writer"
)

func runAction(ctx context.Context, cmd *cli.Command) error {
	dataGlob := cmd.String("data")
	configPath := cmd.String("config")
	outputDir := cmd.String("output")

	l, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer l.Sync()

	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	files, err := filepath.Glob(dataGlob)
	if err != nil {
		return fmt.Errorf("failed to expand data glob %q: %w", dataGlob, err)
	}

	if len(files) == 0 {
		return fmt.Errorf("no bar files match %q", dataGlob)
	}

	engine, err := backtest.NewEngine(config, l)
	if err != nil {
		return err
	}

	resultWriter, err := writer.NewCSVWriter(outputDir)
	if err != nil {
		return err
	}

	store, err := storage.NewStore(l)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Initialize(); err != nil {
		return err
	}

	for _, file := range files {
		symbol := symbolFromFilename(file)

		bars, err := datasource.LoadCSV(file)
		if err != nil {
			return err
		}

		l.Info("Running simulation",
			zap.String("symbol", symbol),
			zap.String("file", file),
			zap.Int("bars", len(bars)),
		)

		bar := progressbar.NewOptions(len(bars),
			progressbar.OptionSetDescription(fmt.Sprintf("Simulating %s", symbol)),
			progressbar.OptionShowCount(),
		)

		onBar := backtest.OnBarCallback(func(current, total int) {
			bar.Set(current)
		})

		result, err := engine.Run(symbol, bars, optional.Some(onBar))
		if err != nil {
			return err
		}

		bar.Finish()
		fmt.Println()

		for _, signal := range result.Signals {
			if err := store.SaveSignal(signal); err != nil {
				return err
			}
		}

		if err := store.SaveTrades(result.Trades); err != nil {
			return err
		}

		if _, err := resultWriter.WriteTrades(symbol, result.Trades); err != nil {
			return err
		}

		if _, err := resultWriter.WriteSignals(symbol, result.Signals); err != nil {
			return err
		}

		if _, err := resultWriter.WriteEquityCurve(symbol, result.EquityCurve); err != nil {
			return err
		}

		if _, err := resultWriter.WriteSummary(symbol, result.Summary); err != nil {
			return err
		}
	}

	if err := store.Export(outputDir); err != nil {
		return err
	}

	l.Info("All simulations finished", zap.String("output", outputDir))

	return nil
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	config := backtest.DefaultConfig()

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	fmt.Println(schema)

	return nil
}

// loadConfig reads a YAML config file; an empty path yields the defaults.
func loadConfig(path string) (backtest.Config, error) {
	config := backtest.DefaultConfig()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// symbolFromFilename extracts the instrument symbol from a bar filename.
// "historical_BTCUSDT_15m.csv" yields "BTCUSDT"; filenames without
// underscores fall back to the bare name.
func symbolFromFilename(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	parts := strings.Split(name, "_")
	if len(parts) >= 2 {
		return parts[1]
	}

	return name
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Walk-forward threshold strategy backtester",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run simulations over historical bar files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Glob of CSV bar files to simulate",
						Value:    "data/*.csv",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to a YAML config file; defaults apply when omitted",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Directory run artifacts are written into",
						Value:    "results",
						Required: false,
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the config file",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
