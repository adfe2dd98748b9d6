package backtest

import (
	"math"

	"github.com/ducminhle1904/pattern-cluster-bot/internal/engine"
)

// tradingDaysPerYear annualizes the daily Sharpe ratio.
const tradingDaysPerYear = 252

// maxDrawdown returns the largest peak-to-trough decline of the equity
// curve as a fraction of the peak.
func maxDrawdown(equity []float64) float64 {
	var peak, maxDD float64
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio computes the annualized Sharpe ratio of daily equity
// returns, assuming a zero risk-free rate.
func sharpeRatio(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] > 0 {
			returns = append(returns, equity[i]/equity[i-1]-1)
		}
	}
	if len(returns) == 0 {
		return 0
	}

	var avg float64
	for _, r := range returns {
		avg += r
	}
	avg /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - avg) * (r - avg)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-10 {
		return 0
	}
	return avg / stdDev * math.Sqrt(tradingDaysPerYear)
}

// profitFactor is gross profit divided by gross loss across closed
// trades.
func profitFactor(trades []engine.TradeRecord) float64 {
	var totalProfit, totalLoss float64
	for _, t := range trades {
		if t.GrossPnL > 0 {
			totalProfit += t.GrossPnL
		} else {
			totalLoss += math.Abs(t.GrossPnL)
		}
	}

	if totalLoss == 0 {
		if totalProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return totalProfit / totalLoss
}

// WinRate returns the percentage of winning trades.
func (r *Results) WinRate() float64 {
	if r.TotalTrades == 0 {
		return 0
	}
	return float64(r.WinningTrades) / float64(r.TotalTrades) * 100
}
