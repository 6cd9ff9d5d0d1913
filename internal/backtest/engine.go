package backtest

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantbee/thresholdbt/internal/detector"
	"github.com/quantbee/thresholdbt/internal/indicator"
	"github.com/quantbee/thresholdbt/internal/logger"
	"github.com/quantbee/thresholdbt/internal/types"
)

// OnBarCallback reports walk-forward progress: the cursor position and the
// total number of bars.
type OnBarCallback func(current int, total int)

// Result collects everything one simulation pass produces. The trade log and
// equity curve outlive the engine and are never mutated after Run returns.
type Result struct {
	Symbol      string
	Signals     []types.Signal
	Trades      []types.Trade
	EquityCurve []types.EquityPoint
	Summary     types.Summary
}

// Engine drives the signal detector across a historical bar sequence in
// walk-forward fashion and resolves each accepted signal into a closed trade.
//
// The engine holds no state across runs and at most one open position per run;
// separate instruments can be simulated concurrently with separate Run calls
// since results share nothing.
type Engine struct {
	config   Config
	log      *logger.Logger
	detector *detector.Detector
}

// NewEngine validates the config and builds an engine around it.
func NewEngine(config Config, log *logger.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	det := detector.New(
		indicator.Config{
			FastSpan:         config.FastSpan,
			SlowSpan:         config.SlowSpan,
			OscillatorPeriod: config.OscillatorPeriod,
		},
		detector.Config{
			LowThreshold:  config.LowThreshold,
			HighThreshold: config.HighThreshold,
			StopFraction:  config.StopFraction,
			RewardRatio:   config.RewardRatio,
		},
	)

	return &Engine{
		config:   config,
		log:      log,
		detector: det,
	}, nil
}

// Run walks the bar sequence forward, evaluating the detector on the prefix
// ending at each bar. A tradable signal opens a position which is scanned
// forward to its exit; the cursor then jumps to the exit bar (not past it) so
// a reverse exit can immediately become the next entry. Bars are assumed
// sorted by strictly increasing timestamp.
//
// Sequences shorter than MinWarmupBars are skipped with a warning and an
// empty result; that is not an error.
func (e *Engine) Run(symbol string, bars []types.Bar, onBar optional.Option[OnBarCallback]) (*Result, error) {
	result := &Result{Symbol: symbol}

	if len(bars) < e.config.MinWarmupBars {
		e.log.Warn("Not enough bars, skipping instrument",
			zap.String("symbol", symbol),
			zap.Int("bars", len(bars)),
			zap.Int("min_warmup_bars", e.config.MinWarmupBars),
		)

		result.Summary = types.ComputeSummary(symbol, nil, e.config.InitialEquity)

		return result, nil
	}

	equity := decimal.NewFromFloat(e.config.InitialEquity)
	one := decimal.NewFromInt(1)
	total := len(bars)

	i := 0
	for i < total {
		if onBar.IsSome() {
			onBar.Unwrap()(i+1, total)
		}

		detected := e.detector.Detect(symbol, bars[:i+1])
		if detected.IsNone() {
			i++

			continue
		}

		signal := detected.Unwrap()
		result.Signals = append(result.Signals, signal)

		// A soft signal has no stop/take levels and cannot be traded.
		if !signal.Tradable() {
			i++

			continue
		}

		position := types.Position{
			Symbol:     symbol,
			Side:       signal.Side,
			EntryPrice: signal.EntryPrice,
			EntryTime:  signal.EntryTime,
			StopPrice:  signal.StopPrice.Unwrap(),
			TakePrice:  signal.TakePrice.Unwrap(),
		}

		trade, exitIndex := e.resolveExit(position, bars, i+1)
		result.Trades = append(result.Trades, trade)

		equity = equity.Mul(one.Add(decimal.NewFromFloat(trade.Return)))
		result.EquityCurve = append(result.EquityCurve, types.EquityPoint{
			Time:   trade.ExitTime,
			Equity: equity.InexactFloat64(),
		})

		i = exitIndex
	}

	result.Summary = types.ComputeSummary(symbol, result.Trades, e.config.InitialEquity)

	e.log.Info("Simulation finished",
		zap.String("symbol", symbol),
		zap.Int("bars", total),
		zap.Int("signals", len(result.Signals)),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("final_equity", result.Summary.FinalEquity),
	)

	return result, nil
}

// resolveExit scans forward from startIndex until the open position resolves
// and returns the closed trade together with the bar index of the exit.
//
// Within a single bar the stop is checked before the target. When both
// thresholds are crossable in the same bar this conservative tie-break always
// charges the stop; it is a policy decision, not a claim about real fill
// order. If neither threshold is hit the detector is re-evaluated on the
// prefix through the current bar and an opposite-side signal closes the
// position at that bar's close. Reaching the end of the sequence closes it at
// the final close.
func (e *Engine) resolveExit(position types.Position, bars []types.Bar, startIndex int) (types.Trade, int) {
	for j := startIndex; j < len(bars); j++ {
		bar := bars[j]

		if position.Side == types.SideBuy {
			if bar.Low <= position.StopPrice {
				return e.closeTrade(position, bar.Time, position.StopPrice, types.ExitReasonStop), j
			}

			if bar.High >= position.TakePrice {
				return e.closeTrade(position, bar.Time, position.TakePrice, types.ExitReasonTarget), j
			}
		} else {
			if bar.High >= position.StopPrice {
				return e.closeTrade(position, bar.Time, position.StopPrice, types.ExitReasonStop), j
			}

			if bar.Low <= position.TakePrice {
				return e.closeTrade(position, bar.Time, position.TakePrice, types.ExitReasonTarget), j
			}
		}

		reverse := e.detector.Detect(position.Symbol, bars[:j+1])
		if reverse.IsSome() && reverse.Unwrap().Side != position.Side {
			return e.closeTrade(position, bar.Time, bar.Close, types.ExitReasonReverse), j
		}
	}

	last := bars[len(bars)-1]

	return e.closeTrade(position, last.Time, last.Close, types.ExitReasonTimeout), len(bars)
}

func (e *Engine) closeTrade(position types.Position, exitTime time.Time, exitPrice float64, reason types.ExitReason) types.Trade {
	ret := types.ReturnFraction(position.Side, position.EntryPrice, exitPrice)

	e.log.Debug("Position closed",
		zap.String("symbol", position.Symbol),
		zap.String("side", string(position.Side)),
		zap.String("exit_reason", string(reason)),
		zap.Float64("entry_price", position.EntryPrice),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("return", ret),
	)

	return types.Trade{
		Symbol:     position.Symbol,
		Side:       position.Side,
		EntryTime:  position.EntryTime,
		EntryPrice: position.EntryPrice,
		ExitTime:   exitTime,
		ExitPrice:  exitPrice,
		ExitReason: reason,
		Return:     ret,
	}
}
