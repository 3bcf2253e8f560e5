package backtest

import "math"

// WindowStats summarizes the simulated trades of one holding window.
type WindowStats struct {
	WinRate        float64 `json:"win_rate"`
	AvgReturnPct   float64 `json:"avg_return_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	TradeCount     int     `json:"trade_count"`
	AvgWinPct      float64 `json:"avg_win_pct"`
	AvgLossPct     float64 `json:"avg_loss_pct"`
}

// computeStats derives per-window trading statistics from a list of
// percentage returns.
func computeStats(returns []float64) WindowStats {
	if len(returns) == 0 {
		return WindowStats{}
	}

	var wins, losses []float64
	for _, r := range returns {
		if r > 0 {
			wins = append(wins, r)
		} else {
			losses = append(losses, r)
		}
	}

	winRate := float64(len(wins)) / float64(len(returns))
	avgReturn := mean(returns)

	// Annualized Sharpe, assuming ~252 trading days. Sample standard
	// deviation; zero when variance or trade count is degenerate.
	sharpe := 0.0
	if len(returns) > 1 {
		if sd := sampleStdDev(returns); sd > 0 {
			sharpe = (avgReturn / sd) * math.Sqrt(252)
		}
	}

	return WindowStats{
		WinRate:        round3(winRate),
		AvgReturnPct:   round2(avgReturn),
		SharpeRatio:    round2(sharpe),
		MaxDrawdownPct: round2(maxDrawdownOfCumSum(returns)),
		TradeCount:     len(returns),
		AvgWinPct:      round2(mean(wins)),
		AvgLossPct:     round2(mean(losses)),
	}
}

// maxDrawdownOfCumSum computes the largest peak-to-trough drop of the
// cumulative sum of per-trade returns. Trades are treated as
// sequential and non-compounding, so this is a running sum of
// percentage returns rather than a price-based drawdown.
func maxDrawdownOfCumSum(returns []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDD := 0.0
	for _, r := range returns {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
