package types

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Summary aggregates the outcome of one simulation pass.
//
// ProfitFactor is nil when there are no losing trades; the ratio is undefined
// in that case and downstream consumers must not read it as zero.
type Summary struct {
	// Symbol of the simulated instrument.
	Symbol string `yaml:"symbol"`
	// Count of closed trades.
	NTrades int `yaml:"n_trades"`
	// Fraction of trades with return > 0.
	WinRate float64 `yaml:"win_rate"`
	// Mean return of winning trades, 0 when there are none.
	AvgWin float64 `yaml:"avg_win"`
	// Mean return of losing trades (return <= 0), 0 when there are none.
	AvgLoss float64 `yaml:"avg_loss"`
	// Sum of winning returns divided by the absolute sum of losing returns.
	ProfitFactor *float64 `yaml:"profit_factor"`
	// Compounded return over all trades in chronological order.
	TotalReturn float64 `yaml:"total_return"`
	// Equity after compounding every trade onto the initial equity.
	FinalEquity float64 `yaml:"final_equity"`
}

// ComputeSummary derives aggregate statistics from closed trades in
// chronological order. Compounding uses decimal arithmetic to keep the final
// equity consistent with the per-trade equity curve.
func ComputeSummary(symbol string, trades []Trade, initialEquity float64) Summary {
	summary := Summary{
		Symbol:      symbol,
		NTrades:     len(trades),
		FinalEquity: initialEquity,
	}

	if len(trades) == 0 {
		return summary
	}

	var (
		winCount         int
		sumWins, sumLoss float64
		lossCount        int
	)

	growth := decimal.NewFromInt(1)
	one := decimal.NewFromInt(1)

	for _, trade := range trades {
		if trade.Return > 0 {
			winCount++
			sumWins += trade.Return
		} else {
			lossCount++
			sumLoss += trade.Return
		}

		growth = growth.Mul(one.Add(decimal.NewFromFloat(trade.Return)))
	}

	summary.WinRate = float64(winCount) / float64(len(trades))

	if winCount > 0 {
		summary.AvgWin = sumWins / float64(winCount)
	}

	if lossCount > 0 {
		summary.AvgLoss = sumLoss / float64(lossCount)
	}

	// A loss bucket holding only zero returns still leaves the ratio undefined.
	if lossCount > 0 && sumLoss < 0 {
		factor := sumWins / -sumLoss
		summary.ProfitFactor = &factor
	}

	summary.TotalReturn = growth.Sub(one).InexactFloat64()
	summary.FinalEquity = decimal.NewFromFloat(initialEquity).Mul(growth).InexactFloat64()

	return summary
}

// BuildEquityCurve compounds the initial equity through every trade and emits
// one point per exit timestamp.
func BuildEquityCurve(trades []Trade, initialEquity float64) []EquityPoint {
	points := make([]EquityPoint, 0, len(trades))
	equity := decimal.NewFromFloat(initialEquity)
	one := decimal.NewFromInt(1)

	for _, trade := range trades {
		equity = equity.Mul(one.Add(decimal.NewFromFloat(trade.Return)))
		points = append(points, EquityPoint{
			Time:   trade.ExitTime,
			Equity: equity.InexactFloat64(),
		})
	}

	return points
}

// WriteSummary writes the summary as YAML to the given path.
func WriteSummary(path string, summary Summary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary to file: %w", err)
	}

	return nil
}
